package fractal

import (
	"math"
	"testing"
)

func cleanViewport() *Viewport {
	v := NewViewport(KindMandelbrot, 100, 100, 4)
	for v.NeedsDispatch() {
		v.Advance()
	}
	return v
}

func TestNavigatePan(t *testing.T) {
	s := Speeds{Move: 0.15, Zoom: 0.4}
	tests := []struct {
		name   string
		in     InputSnapshot
		dx, dy float64
	}{
		{"up", InputSnapshot{Up: true}, 0, -1},
		{"down", InputSnapshot{Down: true}, 0, 1},
		{"left", InputSnapshot{Left: true}, -1, 0},
		{"right", InputSnapshot{Right: true}, 1, 0},
		{"up+right", InputSnapshot{Up: true, Right: true}, 1, -1},
		{"left+right", InputSnapshot{Left: true, Right: true}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cleanViewport()
			v.Zoom = 2
			tt.in.DT = 0.5
			changed := tt.in.Navigate(v, s)

			// The step scales with zoom and frame time.
			step := 0.15 * 2 * 0.5
			if math.Abs(v.CenterX-tt.dx*step) > 1e-15 || math.Abs(v.CenterY-tt.dy*step) > 1e-15 {
				t.Errorf("center = (%v, %v), want (%v, %v)", v.CenterX, v.CenterY, tt.dx*step, tt.dy*step)
			}
			if want := tt.dx != 0 || tt.dy != 0; changed != want {
				t.Errorf("Navigate() = %v, want %v", changed, want)
			}
			if want := tt.dx != 0 || tt.dy != 0; (v.Dirty() > 0) != want {
				t.Errorf("dirty = %v, want %v", v.Dirty() > 0, want)
			}
		})
	}
}

func TestNavigateZoom(t *testing.T) {
	s := Speeds{Move: 0.15, Zoom: 0.4}

	v := cleanViewport()
	InputSnapshot{ZoomIn: true, DT: 0.5}.Navigate(v, s)
	if want := 3 / 1.2; math.Abs(v.Zoom-want) > 1e-12 {
		t.Errorf("Zoom after zoom in = %v, want %v", v.Zoom, want)
	}

	v = cleanViewport()
	InputSnapshot{ZoomOut: true, DT: 0.5}.Navigate(v, s)
	if want := 3 * 1.2; math.Abs(v.Zoom-want) > 1e-12 {
		t.Errorf("Zoom after zoom out = %v, want %v", v.Zoom, want)
	}
}

func TestNavigateIterations(t *testing.T) {
	s := Speeds{}

	v := cleanViewport()
	v.Iterations = 10
	if (InputSnapshot{FewerIterations: true, DT: 1}).Navigate(v, s) {
		t.Error("Navigate() changed iterations at the floor")
	}

	InputSnapshot{MoreIterations: true, DT: 1}.Navigate(v, s)
	if v.Iterations != 16 {
		t.Errorf("Iterations = %v, want 16", v.Iterations)
	}
}

func TestNavigateNoInput(t *testing.T) {
	v := cleanViewport()
	if (InputSnapshot{DT: 1}).Navigate(v, Speeds{Move: 1, Zoom: 1}) {
		t.Error("Navigate() = true without input")
	}
	if v.Dirty() != 0 {
		t.Errorf("Dirty() = %d without input", v.Dirty())
	}
}

func TestConfigSpeeds(t *testing.T) {
	c := DefaultConfig()
	if got := c.speeds(false); got != (Speeds{Move: 0.15, Zoom: 0.4}) {
		t.Errorf("speeds(false) = %+v", got)
	}
	if got := c.speeds(true); got != (Speeds{Move: 0.45, Zoom: 1.2}) {
		t.Errorf("speeds(true) = %+v", got)
	}
}
