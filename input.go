package fractal

// InputSnapshot is the debounced input state of one frame.
//
// Held fields are true for every frame the control is held. Edge fields are
// true only in the frame the control was pressed.
type InputSnapshot struct {
	// Held navigation controls of the active viewport.
	Up, Down, Left, Right bool
	ZoomIn, ZoomOut       bool
	MoreIterations        bool
	FewerIterations       bool

	// Fast selects the fast navigation speeds.
	Fast bool

	// Pointer is true while the primary pointer button is held.
	// PointerX and PointerY are in window pixels.
	Pointer            bool
	PointerX, PointerY float64

	// Held is the number of keys held down, including keys without a
	// binding. Any held key keeps the active viewport rendering.
	Held int

	// Edges.
	ToggleColoring bool
	SwapRoles      bool
	Snapshot       bool

	// ResizeWidth and ResizeHeight are non-zero when the window was
	// resized since the last snapshot.
	ResizeWidth, ResizeHeight int

	Quit bool

	// DT is the time since the previous frame in seconds.
	DT float64
}

// Speeds are navigation rates: Move in view heights per second and Zoom as
// the relative zoom change per second.
type Speeds struct {
	Move, Zoom float64
}

// Navigate applies the held navigation controls to v and reports whether v
// changed. Panning is scaled by the zoom so that it covers the same share of
// the view at any depth.
func (in InputSnapshot) Navigate(v *Viewport, s Speeds) bool {
	before := *v

	step := s.Move * v.Zoom * in.DT
	var dx, dy float64
	if in.Up {
		dy -= step
	}
	if in.Down {
		dy += step
	}
	if in.Left {
		dx -= step
	}
	if in.Right {
		dx += step
	}
	v.Pan(dx, dy)

	f := 1 + s.Zoom*in.DT
	if in.ZoomIn {
		v.ZoomBy(1 / f)
	}
	if in.ZoomOut {
		v.ZoomBy(f)
	}

	if in.FewerIterations {
		v.ScaleIterations(false, in.DT)
	}
	if in.MoreIterations {
		v.ScaleIterations(true, in.DT)
	}

	return v.CenterX != before.CenterX || v.CenterY != before.CenterY ||
		v.Zoom != before.Zoom || v.Iterations != before.Iterations
}
