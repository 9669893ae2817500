package fractal

import (
	"sync"

	"github.com/gogpu/gpucontext"
)

// InputSource yields one InputSnapshot per frame.
type InputSource interface {
	Snapshot(dt float64) InputSnapshot
}

// Collector turns gpucontext events into InputSnapshots.
//
// Key bindings:
//
//	W A S D        pan
//	E Q            zoom in, zoom out
//	Up Down        more, fewer iterations
//	Shift          fast navigation
//	Space          toggle coloring
//	Tab            swap viewports
//	F12 P          snapshot
//	Escape         quit
//	left button    pick the Julia seed
//
// Event callbacks may arrive on any goroutine.
type Collector struct {
	mu sync.Mutex

	held  map[gpucontext.Key]bool
	shift bool

	pointer  bool
	px, py   float64
	toggle   bool
	swap     bool
	snapshot bool
	quit     bool

	resizeW, resizeH int
}

// NewCollector subscribes to src.
func NewCollector(src gpucontext.EventSource) *Collector {
	c := &Collector{held: make(map[gpucontext.Key]bool)}
	src.OnKeyPress(c.keyPress)
	src.OnKeyRelease(c.keyRelease)
	src.OnMouseMove(c.mouseMove)
	src.OnMousePress(func(b gpucontext.MouseButton, x, y float64) { c.mouseButton(b, x, y, true) })
	src.OnMouseRelease(func(b gpucontext.MouseButton, x, y float64) { c.mouseButton(b, x, y, false) })
	src.OnResize(c.resize)
	src.OnFocus(c.focus)
	return c
}

func (c *Collector) keyPress(k gpucontext.Key, mods gpucontext.Modifiers) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Repeated presses of a held key are not edges.
	if !c.held[k] {
		switch k {
		case gpucontext.KeySpace:
			c.toggle = true
		case gpucontext.KeyTab:
			c.swap = true
		case gpucontext.KeyF12, gpucontext.KeyP:
			c.snapshot = true
		case gpucontext.KeyEscape:
			c.quit = true
		}
	}
	c.held[k] = true
	c.shift = mods.HasShift()
}

func (c *Collector) keyRelease(k gpucontext.Key, mods gpucontext.Modifiers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, k)
	c.shift = mods.HasShift()
}

func (c *Collector) mouseMove(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.px, c.py = x, y
}

func (c *Collector) mouseButton(b gpucontext.MouseButton, x, y float64, down bool) {
	if b != gpucontext.MouseButtonLeft {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointer = down
	c.px, c.py = x, y
}

func (c *Collector) resize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resizeW, c.resizeH = w, h
}

// focus drops held state when the window loses focus, since the matching
// release events go elsewhere.
func (c *Collector) focus(focused bool) {
	if focused {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.held)
	c.shift = false
	c.pointer = false
}

// Quit requests the frame loop to stop at the next snapshot.
func (c *Collector) Quit() {
	c.mu.Lock()
	c.quit = true
	c.mu.Unlock()
}

// Snapshot returns the current input state and clears the edges.
func (c *Collector) Snapshot(dt float64) InputSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := InputSnapshot{
		Up:              c.held[gpucontext.KeyW],
		Down:            c.held[gpucontext.KeyS],
		Left:            c.held[gpucontext.KeyA],
		Right:           c.held[gpucontext.KeyD],
		ZoomIn:          c.held[gpucontext.KeyE],
		ZoomOut:         c.held[gpucontext.KeyQ],
		MoreIterations:  c.held[gpucontext.KeyUp],
		FewerIterations: c.held[gpucontext.KeyDown],
		Fast:            c.shift || c.held[gpucontext.KeyLeftShift] || c.held[gpucontext.KeyRightShift],
		Pointer:         c.pointer,
		PointerX:        c.px,
		PointerY:        c.py,
		Held:            len(c.held),
		ToggleColoring:  c.toggle,
		SwapRoles:       c.swap,
		Snapshot:        c.snapshot,
		ResizeWidth:     c.resizeW,
		ResizeHeight:    c.resizeH,
		Quit:            c.quit,
		DT:              dt,
	}
	c.toggle, c.swap, c.snapshot = false, false, false
	c.resizeW, c.resizeH = 0, 0
	return in
}
