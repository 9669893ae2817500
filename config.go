package fractal

import (
	"fmt"
	"math"

	"github.com/gogpu/fractal/internal/workqueue"
)

// Ordering selects when a viewport's read-back is composited relative to the
// device synchronization point.
type Ordering uint8

const (
	// OrderingSynchronized waits for the device and composites the buffer
	// the kernel just wrote. Input is visible in the same frame.
	OrderingSynchronized Ordering = iota

	// OrderingPipelined composites the buffer settled at the previous frame
	// while the device computes the next one. Frames lag input by one.
	OrderingPipelined
)

// String returns the ordering name.
func (o Ordering) String() string {
	switch o {
	case OrderingSynchronized:
		return "synchronized"
	case OrderingPipelined:
		return "pipelined"
	default:
		return fmt.Sprintf("Ordering(%d)", o)
	}
}

// ParseOrdering parses an ordering name as accepted on the command line.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", "synchronized":
		return OrderingSynchronized, nil
	case "pipelined":
		return OrderingPipelined, nil
	}
	return OrderingSynchronized, fmt.Errorf("%w: unknown ordering %q", ErrInvalidConfig, s)
}

// Defaults.
const (
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultZoom            = 3.0
	DefaultIterations      = 1024
	DefaultIterationFloor  = 10
	DefaultRefreshBurst    = 4
	DefaultWorkers         = 6400
	DefaultGap             = 20
	DefaultProfileInterval = 100

	DefaultMoveSpeed     = 0.15
	DefaultZoomSpeed     = 0.4
	DefaultFastMoveSpeed = 0.45
	DefaultFastZoomSpeed = 1.2
)

// Config holds the startup configuration of a Renderer. It is read once by
// NewRenderer; later changes have no effect.
type Config struct {
	// Width and Height are the window size in pixels. Zero asks the
	// presenter for its native size and falls back to DefaultWidth x
	// DefaultHeight.
	Width, Height int

	Fullscreen bool

	// FPSCap limits the frame rate of Run. Zero is uncapped.
	FPSCap int

	// Initial view of the Mandelbrot viewport.
	CenterX, CenterY float64
	Zoom             float64
	Iterations       int
	IterationFloor   int
	Coloring         Coloring

	// Navigation speeds in plane heights (pan) and zoom factor per second.
	MoveSpeed, ZoomSpeed         float64
	FastMoveSpeed, FastZoomSpeed float64

	// RefreshBurst is the number of frames a viewport keeps rendering after
	// its last change.
	RefreshBurst int

	// Workers is the number of logical kernel workers per dispatch.
	Workers int

	Ordering   Ordering
	QueueOrder workqueue.Order

	// Julia adds the Julia viewport as an inset next to the Mandelbrot
	// viewport.
	Julia                  bool
	JuliaSeedX, JuliaSeedY float64

	// Gap is the border around the main panel in pixels.
	Gap int

	// Backend names the device backend. Empty picks the first that opens.
	Backend string

	// BudgetMB limits device allocations.
	BudgetMB int

	// ProfileInterval is the number of frames between logged profiling
	// means. Zero disables profiling.
	ProfileInterval int

	// HUD draws the status overlay.
	HUD bool

	// SnapshotDir receives snapshots requested through InputSnapshot.
	// SnapshotFormat is the file extension: png, webp or tga.
	SnapshotDir    string
	SnapshotFormat string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CenterX:         -0.29,
		Zoom:            DefaultZoom,
		Iterations:      DefaultIterations,
		IterationFloor:  DefaultIterationFloor,
		Coloring:        ColoringSmooth,
		MoveSpeed:       DefaultMoveSpeed,
		ZoomSpeed:       DefaultZoomSpeed,
		FastMoveSpeed:   DefaultFastMoveSpeed,
		FastZoomSpeed:   DefaultFastZoomSpeed,
		RefreshBurst:    DefaultRefreshBurst,
		Workers:         DefaultWorkers,
		Ordering:        OrderingSynchronized,
		QueueOrder:      workqueue.Ascending,
		JuliaSeedX:      -0.8,
		JuliaSeedY:      0.156,
		Gap:             DefaultGap,
		BudgetMB:        512,
		ProfileInterval: DefaultProfileInterval,
		HUD:             true,
		SnapshotDir:     ".",
		SnapshotFormat:  "png",
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.Width < 0 || c.Height < 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case (c.Width == 0) != (c.Height == 0):
		return fmt.Errorf("%w: resolution %dx%d, set both or neither", ErrInvalidConfig, c.Width, c.Height)
	case c.FPSCap < 0:
		return fmt.Errorf("%w: fps cap %d", ErrInvalidConfig, c.FPSCap)
	case !(c.Zoom > 0) || math.IsInf(c.Zoom, 0):
		return fmt.Errorf("%w: zoom %g", ErrInvalidConfig, c.Zoom)
	case c.IterationFloor < 1:
		return fmt.Errorf("%w: iteration floor %d", ErrInvalidConfig, c.IterationFloor)
	case c.Iterations < c.IterationFloor:
		return fmt.Errorf("%w: iterations %d below floor %d", ErrInvalidConfig, c.Iterations, c.IterationFloor)
	case c.RefreshBurst < 1:
		return fmt.Errorf("%w: refresh burst %d", ErrInvalidConfig, c.RefreshBurst)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	case c.Gap < 0:
		return fmt.Errorf("%w: gap %d", ErrInvalidConfig, c.Gap)
	case c.BudgetMB < 1:
		return fmt.Errorf("%w: budget %d MB", ErrInvalidConfig, c.BudgetMB)
	case c.ProfileInterval < 0:
		return fmt.Errorf("%w: profile interval %d", ErrInvalidConfig, c.ProfileInterval)
	case c.Ordering > OrderingPipelined:
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Ordering)
	case c.Coloring > ColoringBanded:
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Coloring)
	}
	if _, err := encoderFor(c.SnapshotFormat); err != nil {
		return fmt.Errorf("%w: snapshot format %q", ErrInvalidConfig, c.SnapshotFormat)
	}
	return nil
}

// speeds returns the navigation speeds for the fast modifier state.
func (c Config) speeds(fast bool) Speeds {
	if fast {
		return Speeds{Move: c.FastMoveSpeed, Zoom: c.FastZoomSpeed}
	}
	return Speeds{Move: c.MoveSpeed, Zoom: c.ZoomSpeed}
}
