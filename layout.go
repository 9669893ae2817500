package fractal

import (
	"fmt"
	"image"
)

// Layout places the viewport panels in the window. The active viewport
// fills the main panel inside a border of Gap pixels; the other viewport,
// when enabled, is drawn over the top-right corner of the main panel at a
// quarter of the window size.
type Layout struct {
	Window image.Rectangle
	Main   image.Rectangle
	Inset  image.Rectangle
	Gap    int
}

// NewLayout computes the layout of a width x height window.
func NewLayout(width, height, gap int, dual bool) (Layout, error) {
	if width-2*gap < 1 || height-2*gap < 1 {
		return Layout{}, fmt.Errorf("%w: window %dx%d too small for gap %d", ErrInvalidConfig, width, height, gap)
	}
	l := Layout{
		Window: image.Rect(0, 0, width, height),
		Main:   image.Rect(gap, gap, width-gap, height-gap),
		Gap:    gap,
	}
	if dual {
		iw, ih := max(width/4, 1), max(height/4, 1)
		l.Inset = image.Rect(width-gap-iw, gap, width-gap, gap+ih)
	}
	return l, nil
}

// Dual reports whether the layout has an inset panel.
func (l Layout) Dual() bool { return !l.Inset.Empty() }

// Panel returns the rectangle of the active or the inset viewport.
func (l Layout) Panel(active bool) image.Rectangle {
	if active {
		return l.Main
	}
	return l.Inset
}

// MainPoint converts window coordinates to main panel coordinates. It
// reports false for positions outside the main panel.
func (l Layout) MainPoint(x, y float64) (px, py float64, ok bool) {
	if x < float64(l.Main.Min.X) || y < float64(l.Main.Min.Y) ||
		x > float64(l.Main.Max.X) || y > float64(l.Main.Max.Y) {
		return 0, 0, false
	}
	return x - float64(l.Main.Min.X), y - float64(l.Main.Min.Y), true
}
