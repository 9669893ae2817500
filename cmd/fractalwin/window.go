package main

import (
	"image"
	"image/color"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/fractal"
)

// keyMap lists the polled keys.
var keyMap = []struct {
	rl  int32
	key gpucontext.Key
}{
	{rl.KeyW, gpucontext.KeyW},
	{rl.KeyA, gpucontext.KeyA},
	{rl.KeyS, gpucontext.KeyS},
	{rl.KeyD, gpucontext.KeyD},
	{rl.KeyE, gpucontext.KeyE},
	{rl.KeyQ, gpucontext.KeyQ},
	{rl.KeyP, gpucontext.KeyP},
	{rl.KeyUp, gpucontext.KeyUp},
	{rl.KeyDown, gpucontext.KeyDown},
	{rl.KeySpace, gpucontext.KeySpace},
	{rl.KeyTab, gpucontext.KeyTab},
	{rl.KeyF12, gpucontext.KeyF12},
	{rl.KeyEscape, gpucontext.KeyEscape},
	{rl.KeyLeftShift, gpucontext.KeyLeftShift},
	{rl.KeyRightShift, gpucontext.KeyRightShift},
}

// window is a raylib window. It presents frames through a streaming
// texture and turns polled input into gpucontext events.
//
// Every method must run on the main thread.
type window struct {
	gpucontext.NullEventSource

	tex     rl.Texture2D
	texW    int
	texH    int
	focused bool
	mx, my  float64

	keyPress     func(gpucontext.Key, gpucontext.Modifiers)
	keyRelease   func(gpucontext.Key, gpucontext.Modifiers)
	mouseMove    func(float64, float64)
	mousePress   func(gpucontext.MouseButton, float64, float64)
	mouseRelease func(gpucontext.MouseButton, float64, float64)
	resize       func(int, int)
	focus        func(bool)
}

var (
	_ fractal.Presenter      = (*window)(nil)
	_ fractal.NativeSizer    = (*window)(nil)
	_ fractal.Fullscreener   = (*window)(nil)
	_ gpucontext.EventSource = (*window)(nil)
)

func openWindow(width, height int) *window {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(width), int32(height), "fractal")
	rl.SetExitKey(rl.KeyNull)
	return &window{focused: true}
}

// SetFullscreen resizes the window to the current monitor and toggles
// fullscreen when the state changes.
func (w *window) SetFullscreen(on bool) error {
	if rl.IsWindowFullscreen() == on {
		return nil
	}
	if on {
		m := rl.GetCurrentMonitor()
		rl.SetWindowSize(rl.GetMonitorWidth(m), rl.GetMonitorHeight(m))
	}
	rl.ToggleFullscreen()
	return nil
}

// NativeSize returns the current screen size.
func (w *window) NativeSize() (int, int) {
	return rl.GetScreenWidth(), rl.GetScreenHeight()
}

// Present uploads frame and draws it at the window origin.
func (w *window) Present(frame *image.RGBA) error {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	if w.tex.ID == 0 || w.texW != fw || w.texH != fh {
		if w.tex.ID != 0 {
			rl.UnloadTexture(w.tex)
		}
		img := rl.GenImageColor(fw, fh, color.RGBA{A: 255})
		w.tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		w.texW, w.texH = fw, fh
	}
	if len(frame.Pix) >= 4 {
		px := unsafe.Slice((*color.RGBA)(unsafe.Pointer(&frame.Pix[0])), len(frame.Pix)/4)
		rl.UpdateTexture(w.tex, px)
	}

	rl.BeginDrawing()
	rl.ClearBackground(fractal.Background)
	rl.DrawTexture(w.tex, 0, 0, rl.White)
	rl.EndDrawing()
	return nil
}

func (w *window) close() {
	if w.tex.ID != 0 {
		rl.UnloadTexture(w.tex)
	}
	rl.CloseWindow()
}

// poll delivers the input raylib gathered since the last frame.
func (w *window) poll() {
	var mods gpucontext.Modifiers
	if rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift) {
		mods |= gpucontext.ModShift
	}
	for _, k := range keyMap {
		if rl.IsKeyPressed(k.rl) && w.keyPress != nil {
			w.keyPress(k.key, mods)
		}
		if rl.IsKeyReleased(k.rl) && w.keyRelease != nil {
			w.keyRelease(k.key, mods)
		}
	}
	if rl.WindowShouldClose() && w.keyPress != nil {
		w.keyPress(gpucontext.KeyEscape, mods)
	}

	p := rl.GetMousePosition()
	x, y := float64(p.X), float64(p.Y)
	if (x != w.mx || y != w.my) && w.mouseMove != nil {
		w.mouseMove(x, y)
	}
	w.mx, w.my = x, y
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && w.mousePress != nil {
		w.mousePress(gpucontext.MouseButtonLeft, x, y)
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) && w.mouseRelease != nil {
		w.mouseRelease(gpucontext.MouseButtonLeft, x, y)
	}

	if rl.IsWindowResized() && w.resize != nil {
		w.resize(rl.GetScreenWidth(), rl.GetScreenHeight())
	}
	if f := rl.IsWindowFocused(); f != w.focused {
		w.focused = f
		if w.focus != nil {
			w.focus(f)
		}
	}
}

func (w *window) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers))   { w.keyPress = fn }
func (w *window) OnKeyRelease(fn func(gpucontext.Key, gpucontext.Modifiers)) { w.keyRelease = fn }
func (w *window) OnMouseMove(fn func(float64, float64))                      { w.mouseMove = fn }
func (w *window) OnMousePress(fn func(gpucontext.MouseButton, float64, float64)) {
	w.mousePress = fn
}
func (w *window) OnMouseRelease(fn func(gpucontext.MouseButton, float64, float64)) {
	w.mouseRelease = fn
}
func (w *window) OnResize(fn func(int, int)) { w.resize = fn }
func (w *window) OnFocus(fn func(bool))      { w.focus = fn }

// polledInput polls the window before each collector snapshot.
type polledInput struct {
	w *window
	c *fractal.Collector
}

func (p polledInput) Snapshot(dt float64) fractal.InputSnapshot {
	p.w.poll()
	return p.c.Snapshot(dt)
}
