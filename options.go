package fractal

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/fractal/internal/parallel"
	"github.com/gogpu/fractal/internal/workqueue"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := fractal.NewRenderer(presenter,
//	    fractal.WithResolution(800, 600),
//	    fractal.WithBackend("software"),
//	)
type Option func(*options)

// options holds the Config plus collaborators that are not configuration.
type options struct {
	cfg      Config
	provider gpucontext.DeviceProvider
	pool     *parallel.WorkerPool
}

func defaultOptions() options {
	return options{cfg: DefaultConfig()}
}

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.cfg = c
	}
}

// WithResolution sets the window size. 0x0 uses the presenter's native size.
func WithResolution(width, height int) Option {
	return func(o *options) {
		o.cfg.Width, o.cfg.Height = width, height
	}
}

// WithFullscreen requests a fullscreen window from presenters that have one.
func WithFullscreen(on bool) Option {
	return func(o *options) {
		o.cfg.Fullscreen = on
	}
}

// WithFPSCap limits the frame rate of Run. Zero is uncapped.
func WithFPSCap(fps int) Option {
	return func(o *options) {
		o.cfg.FPSCap = fps
	}
}

// WithView sets the initial Mandelbrot center and zoom.
func WithView(centerX, centerY, zoom float64) Option {
	return func(o *options) {
		o.cfg.CenterX, o.cfg.CenterY, o.cfg.Zoom = centerX, centerY, zoom
	}
}

// WithIterations sets the initial iteration cap and its lower bound.
func WithIterations(iterations, floor int) Option {
	return func(o *options) {
		o.cfg.Iterations, o.cfg.IterationFloor = iterations, floor
	}
}

// WithColoring sets the initial coloring of both viewports.
func WithColoring(c Coloring) Option {
	return func(o *options) {
		o.cfg.Coloring = c
	}
}

// WithRefreshBurst sets how many frames a viewport renders after a change.
func WithRefreshBurst(frames int) Option {
	return func(o *options) {
		o.cfg.RefreshBurst = frames
	}
}

// WithWorkers sets the number of logical kernel workers per dispatch.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.cfg.Workers = n
	}
}

// WithOrdering selects synchronized or pipelined compositing.
func WithOrdering(ord Ordering) Option {
	return func(o *options) {
		o.cfg.Ordering = ord
	}
}

// WithQueueOrder selects the pixel order of the work queue.
func WithQueueOrder(ord workqueue.Order) Option {
	return func(o *options) {
		o.cfg.QueueOrder = ord
	}
}

// WithJulia enables the Julia inset.
func WithJulia(on bool) Option {
	return func(o *options) {
		o.cfg.Julia = on
	}
}

// WithJuliaSeed sets the initial Julia seed.
func WithJuliaSeed(x, y float64) Option {
	return func(o *options) {
		o.cfg.JuliaSeedX, o.cfg.JuliaSeedY = x, y
	}
}

// WithGap sets the border around the main panel in pixels.
func WithGap(px int) Option {
	return func(o *options) {
		o.cfg.Gap = px
	}
}

// WithBackend selects the device backend by name.
func WithBackend(name string) Option {
	return func(o *options) {
		o.cfg.Backend = name
	}
}

// WithBudget limits device allocations to mb MiB.
func WithBudget(mb int) Option {
	return func(o *options) {
		o.cfg.BudgetMB = mb
	}
}

// WithHUD enables or disables the status overlay.
func WithHUD(on bool) Option {
	return func(o *options) {
		o.cfg.HUD = on
	}
}

// WithProfileInterval sets the number of frames between profiling logs.
func WithProfileInterval(frames int) Option {
	return func(o *options) {
		o.cfg.ProfileInterval = frames
	}
}

// WithSnapshots sets where snapshots are written and in which format.
func WithSnapshots(dir, format string) Option {
	return func(o *options) {
		o.cfg.SnapshotDir, o.cfg.SnapshotFormat = dir, format
	}
}

// WithDeviceProvider shares a GPU device created by the host application.
// It is used by the gpu backend only.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithWorkerPool shares a worker pool for compositing and software
// dispatch. The Renderer does not close a shared pool.
func WithWorkerPool(p *parallel.WorkerPool) Option {
	return func(o *options) {
		o.pool = p
	}
}
