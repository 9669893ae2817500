package fractal

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Background fills the window outside the panels.
var Background = color.RGBA{0x10, 0x10, 0x14, 0xff}

// Frame holds the composited panel images and the window they are
// assembled into.
type Frame struct {
	// Window is the image handed to the Presenter.
	Window *image.RGBA

	panels [2]*image.RGBA
	layout Layout
	active Kind
}

// newFrame allocates the window and one panel image per enabled viewport,
// sized to the viewport's panel in the layout.
func newFrame(l Layout, active Kind) *Frame {
	f := &Frame{
		Window: image.NewRGBA(l.Window),
		layout: l,
		active: active,
	}
	f.panels[active] = image.NewRGBA(image.Rect(0, 0, l.Main.Dx(), l.Main.Dy()))
	if l.Dual() {
		f.panels[active.Other()] = image.NewRGBA(image.Rect(0, 0, l.Inset.Dx(), l.Inset.Dy()))
	}
	return f
}

// Panel returns the composited image of a viewport, or nil when the
// viewport is not shown.
func (f *Frame) Panel(k Kind) *image.RGBA {
	return f.panels[k]
}

// Bounds returns where a viewport's panel is drawn in the window.
func (f *Frame) Bounds(k Kind) image.Rectangle {
	return f.layout.Panel(k == f.active)
}

// assemble draws the background and the panels into the window, the active
// panel first so the inset covers its corner.
func (f *Frame) assemble() {
	draw.Draw(f.Window, f.Window.Rect, image.NewUniform(Background), image.Point{}, draw.Src)
	for _, k := range []Kind{f.active, f.active.Other()} {
		p := f.panels[k]
		if p == nil {
			continue
		}
		draw.Copy(f.Window, f.Bounds(k).Min, p, p.Rect, draw.Src, nil)
	}
}
