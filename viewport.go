package fractal

import (
	"fmt"

	"github.com/gogpu/fractal/internal/kernel"
)

// Kind identifies the fractal a viewport renders.
type Kind uint8

const (
	KindMandelbrot Kind = iota
	KindJulia
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMandelbrot:
		return "mandelbrot"
	case KindJulia:
		return "julia"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Variant returns the kernel variant that renders k.
func (k Kind) Variant() kernel.Variant {
	if k == KindJulia {
		return kernel.Julia
	}
	return kernel.Mandelbrot
}

// Other returns the kind of the other viewport.
func (k Kind) Other() Kind {
	return k ^ 1
}

// Coloring selects the palette mapping.
type Coloring = kernel.Coloring

const (
	ColoringSmooth = kernel.ColoringSmooth
	ColoringBanded = kernel.ColoringBanded
)

// ParseColoring parses a coloring name as accepted on the command line.
func ParseColoring(s string) (Coloring, error) {
	switch s {
	case "", "smooth":
		return ColoringSmooth, nil
	case "banded":
		return ColoringBanded, nil
	}
	return ColoringSmooth, fmt.Errorf("%w: unknown coloring %q", ErrInvalidConfig, s)
}

// Viewport is the navigable view of one fractal.
//
// A viewport is dirty for a burst of frames after each change. The Renderer
// dispatches and composites it only while dirty and calls Advance after each
// completed cycle.
type Viewport struct {
	Kind Kind

	CenterX, CenterY float64

	// Zoom is the height of the view in plane units.
	Zoom float64

	// Iterations is the escape iteration cap. It is fractional so that
	// gradual scaling accumulates; the kernel receives the integer part.
	Iterations float64
	Floor      float64

	Coloring Coloring

	// SeedX and SeedY are the Julia constant. Mandelbrot viewports ignore
	// them.
	SeedX, SeedY float64

	Width, Height int

	burst    int
	dirty    int
	disabled bool
}

// NewViewport returns a viewport of the given size with default view
// parameters. It starts dirty.
func NewViewport(kind Kind, width, height, burst int) *Viewport {
	if burst < 1 {
		burst = DefaultRefreshBurst
	}
	v := &Viewport{
		Kind:       kind,
		Zoom:       DefaultZoom,
		Iterations: DefaultIterations,
		Floor:      DefaultIterationFloor,
		Width:      width,
		Height:     height,
		burst:      burst,
	}
	v.MarkDirty()
	return v
}

// MarkDirty restarts the refresh burst.
func (v *Viewport) MarkDirty() {
	v.dirty = v.burst
}

// Advance records one completed dispatch and composite cycle.
func (v *Viewport) Advance() {
	if v.dirty > 0 {
		v.dirty--
	}
}

// Dirty returns the number of frames left in the current burst.
func (v *Viewport) Dirty() int { return v.dirty }

// NeedsDispatch reports whether the viewport must be rendered this frame.
func (v *Viewport) NeedsDispatch() bool {
	return v.dirty > 0 && !v.disabled
}

// Disable stops the viewport from rendering for the rest of its life.
func (v *Viewport) Disable() {
	v.disabled = true
	v.dirty = 0
}

// Disabled reports whether Disable was called.
func (v *Viewport) Disabled() bool { return v.disabled }

// Pan moves the center by (dx, dy) plane units.
func (v *Viewport) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	v.CenterX += dx
	v.CenterY += dy
	v.MarkDirty()
}

// ZoomBy multiplies the zoom by f. Factors below 1 zoom in.
func (v *Viewport) ZoomBy(f float64) {
	if f <= 0 || f == 1 {
		return
	}
	v.Zoom *= f
	v.MarkDirty()
}

// ScaleIterations grows or shrinks the iteration cap over dt seconds.
// Growing adds at least one iteration; shrinking stops at the floor.
func (v *Viewport) ScaleIterations(up bool, dt float64) {
	f := 1 + 0.5*dt
	if up {
		v.Iterations = v.Iterations*f + 1
		v.MarkDirty()
		return
	}
	if v.Iterations <= v.Floor {
		return
	}
	v.Iterations = max(v.Iterations/f, v.Floor)
	v.MarkDirty()
}

// ToggleColoring switches to the next coloring.
func (v *Viewport) ToggleColoring() {
	v.Coloring = v.Coloring.Next()
	v.MarkDirty()
}

// SetSeed sets the Julia constant.
func (v *Viewport) SetSeed(x, y float64) {
	if v.SeedX == x && v.SeedY == y {
		return
	}
	v.SeedX, v.SeedY = x, y
	v.MarkDirty()
}

// ResetView recenters the viewport.
func (v *Viewport) ResetView(centerX, centerY, zoom float64) {
	if v.CenterX == centerX && v.CenterY == centerY && v.Zoom == zoom {
		return
	}
	v.CenterX, v.CenterY, v.Zoom = centerX, centerY, zoom
	v.MarkDirty()
}

// Resize changes the pixel size. The caller reallocates the buffers.
func (v *Viewport) Resize(width, height int) {
	if v.Width == width && v.Height == height {
		return
	}
	v.Width, v.Height = width, height
	v.MarkDirty()
}

// MaxIterations returns the iteration cap passed to the kernel.
func (v *Viewport) MaxIterations() int {
	return int(v.Iterations)
}

// Params returns the kernel parameters of the current view.
func (v *Viewport) Params() kernel.Params {
	return kernel.Params{
		Variant:       v.Kind.Variant(),
		Width:         uint32(v.Width),
		Height:        uint32(v.Height),
		Zoom:          v.Zoom,
		CenterX:       v.CenterX,
		CenterY:       v.CenterY,
		MaxIterations: uint32(v.MaxIterations()),
		Coloring:      v.Coloring,
		SeedX:         v.SeedX,
		SeedY:         v.SeedY,
	}
}

// PointAt maps a position in viewport pixels to the complex plane. It uses
// the same transform as the kernel, so PointAt of a pixel's corner is the
// point that pixel renders.
func (v *Viewport) PointAt(x, y float64) (re, im float64) {
	w, h := float64(v.Width), float64(v.Height)
	re = (x/w-0.5)*v.Zoom*(w/h) + v.CenterX
	im = (y/h-0.5)*v.Zoom + v.CenterY
	return re, im
}
