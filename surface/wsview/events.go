package wsview

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
)

// ErrBadMessage is returned for client messages that cannot be decoded.
var ErrBadMessage = errors.New("wsview: bad message")

// message is one JSON event sent by the browser viewer.
//
//	{"type":"key","code":"KeyW","down":true,"shift":false}
//	{"type":"mouse","action":"down","button":0,"x":12,"y":40}
//	{"type":"resize","width":1280,"height":720}
//	{"type":"focus","focused":false}
//	{"type":"snapshot"}
type message struct {
	Type string `json:"type"`

	Code  string `json:"code,omitempty"`
	Down  bool   `json:"down,omitempty"`
	Shift bool   `json:"shift,omitempty"`

	Action string  `json:"action,omitempty"`
	Button int     `json:"button,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	Focused bool `json:"focused,omitempty"`
}

func decode(data []byte) (message, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return message{}, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	switch m.Type {
	case "key", "focus", "snapshot":
	case "mouse":
		switch m.Action {
		case "down", "up", "move":
		default:
			return message{}, fmt.Errorf("%w: mouse action %q", ErrBadMessage, m.Action)
		}
	case "resize":
		if m.Width <= 0 || m.Height <= 0 {
			return message{}, fmt.Errorf("%w: resize to %dx%d", ErrBadMessage, m.Width, m.Height)
		}
	default:
		return message{}, fmt.Errorf("%w: type %q", ErrBadMessage, m.Type)
	}
	return m, nil
}

// keyCodes maps KeyboardEvent.code values to keys.
var keyCodes = func() map[string]gpucontext.Key {
	m := map[string]gpucontext.Key{
		"ArrowUp":    gpucontext.KeyUp,
		"ArrowDown":  gpucontext.KeyDown,
		"ArrowLeft":  gpucontext.KeyLeft,
		"ArrowRight": gpucontext.KeyRight,
		"Space":      gpucontext.KeySpace,
		"Tab":        gpucontext.KeyTab,
		"Escape":     gpucontext.KeyEscape,
		"Enter":      gpucontext.KeyEnter,
		"F12":        gpucontext.KeyF12,
		"ShiftLeft":  gpucontext.KeyLeftShift,
		"ShiftRight": gpucontext.KeyRightShift,
	}
	for c := 'A'; c <= 'Z'; c++ {
		m["Key"+string(c)] = gpucontext.KeyA + gpucontext.Key(c-'A')
	}
	return m
}()

// handlers holds the registered EventSource callbacks.
type handlers struct {
	mu sync.RWMutex

	keyPress     func(gpucontext.Key, gpucontext.Modifiers)
	keyRelease   func(gpucontext.Key, gpucontext.Modifiers)
	textInput    func(string)
	mouseMove    func(float64, float64)
	mousePress   func(gpucontext.MouseButton, float64, float64)
	mouseRelease func(gpucontext.MouseButton, float64, float64)
	scroll       func(float64, float64)
	resize       func(int, int)
	focus        func(bool)
}

// dispatch delivers m to the registered callbacks.
func (h *handlers) dispatch(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch m.Type {
	case "key":
		k, ok := keyCodes[m.Code]
		if !ok {
			return
		}
		var mods gpucontext.Modifiers
		if m.Shift {
			mods |= gpucontext.ModShift
		}
		if m.Down && h.keyPress != nil {
			h.keyPress(k, mods)
		}
		if !m.Down && h.keyRelease != nil {
			h.keyRelease(k, mods)
		}
	case "mouse":
		b := gpucontext.MouseButton(m.Button)
		switch {
		case m.Action == "move" && h.mouseMove != nil:
			h.mouseMove(m.X, m.Y)
		case m.Action == "down" && h.mousePress != nil:
			h.mousePress(b, m.X, m.Y)
		case m.Action == "up" && h.mouseRelease != nil:
			h.mouseRelease(b, m.X, m.Y)
		}
	case "resize":
		if h.resize != nil {
			h.resize(m.Width, m.Height)
		}
	case "focus":
		if h.focus != nil {
			h.focus(m.Focused)
		}
	case "snapshot":
		if h.keyPress != nil {
			h.keyPress(gpucontext.KeyF12, 0)
		}
		if h.keyRelease != nil {
			h.keyRelease(gpucontext.KeyF12, 0)
		}
	}
}

func (h *handlers) set(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

// OnKeyPress registers a key press callback.
func (s *Server) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	s.h.set(func() { s.h.keyPress = fn })
}

// OnKeyRelease registers a key release callback.
func (s *Server) OnKeyRelease(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	s.h.set(func() { s.h.keyRelease = fn })
}

// OnTextInput registers a text callback. The viewer sends no text events.
func (s *Server) OnTextInput(fn func(string)) {
	s.h.set(func() { s.h.textInput = fn })
}

// OnMouseMove registers a pointer move callback. Coordinates are window
// pixels.
func (s *Server) OnMouseMove(fn func(x, y float64)) {
	s.h.set(func() { s.h.mouseMove = fn })
}

// OnMousePress registers a button press callback.
func (s *Server) OnMousePress(fn func(gpucontext.MouseButton, float64, float64)) {
	s.h.set(func() { s.h.mousePress = fn })
}

// OnMouseRelease registers a button release callback.
func (s *Server) OnMouseRelease(fn func(gpucontext.MouseButton, float64, float64)) {
	s.h.set(func() { s.h.mouseRelease = fn })
}

// OnScroll registers a scroll callback. The viewer sends no scroll events.
func (s *Server) OnScroll(fn func(dx, dy float64)) {
	s.h.set(func() { s.h.scroll = fn })
}

// OnResize registers a resize callback.
func (s *Server) OnResize(fn func(width, height int)) {
	s.h.set(func() { s.h.resize = fn })
}

// OnFocus registers a focus callback. A disconnecting client reports focus
// loss so held keys are released.
func (s *Server) OnFocus(fn func(bool)) {
	s.h.set(func() { s.h.focus = fn })
}

// OnIMECompositionStart is not supported by the viewer.
func (s *Server) OnIMECompositionStart(func()) {}

// OnIMECompositionUpdate is not supported by the viewer.
func (s *Server) OnIMECompositionUpdate(func(gpucontext.IMEState)) {}

// OnIMECompositionEnd is not supported by the viewer.
func (s *Server) OnIMECompositionEnd(func(string)) {}
