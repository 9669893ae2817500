package fractal

import (
	"errors"
	"image"
	"testing"
)

func TestNewLayout(t *testing.T) {
	tests := []struct {
		name          string
		w, h, gap     int
		dual          bool
		main, inset   image.Rectangle
		wantDualPanel bool
	}{
		{
			name: "single", w: 800, h: 600, gap: 20,
			main: image.Rect(20, 20, 780, 580),
		},
		{
			name: "dual", w: 800, h: 600, gap: 20, dual: true,
			main:          image.Rect(20, 20, 780, 580),
			inset:         image.Rect(580, 20, 780, 170),
			wantDualPanel: true,
		},
		{
			name: "no gap", w: 64, h: 48, dual: true,
			main:          image.Rect(0, 0, 64, 48),
			inset:         image.Rect(48, 0, 64, 12),
			wantDualPanel: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout(tt.w, tt.h, tt.gap, tt.dual)
			if err != nil {
				t.Fatal(err)
			}
			if l.Main != tt.main {
				t.Errorf("Main = %v, want %v", l.Main, tt.main)
			}
			if l.Inset != tt.inset {
				t.Errorf("Inset = %v, want %v", l.Inset, tt.inset)
			}
			if l.Dual() != tt.wantDualPanel {
				t.Errorf("Dual() = %v, want %v", l.Dual(), tt.wantDualPanel)
			}
			if l.Panel(true) != l.Main || l.Panel(false) != l.Inset {
				t.Error("Panel() does not match Main/Inset")
			}
		})
	}
}

func TestNewLayoutTooSmall(t *testing.T) {
	if _, err := NewLayout(40, 40, 20, false); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewLayout(40, 40, 20) = %v, want ErrInvalidConfig", err)
	}
}

func TestLayoutMainPoint(t *testing.T) {
	l, err := NewLayout(200, 100, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, y   float64
		px, py float64
		ok     bool
	}{
		{10, 10, 0, 0, true},
		{110, 60, 100, 50, true},
		{190, 90, 180, 80, true},
		{9, 50, 0, 0, false},
		{50, 91, 0, 0, false},
	}
	for _, tt := range tests {
		px, py, ok := l.MainPoint(tt.x, tt.y)
		if ok != tt.ok || px != tt.px || py != tt.py {
			t.Errorf("MainPoint(%v, %v) = (%v, %v, %v), want (%v, %v, %v)",
				tt.x, tt.y, px, py, ok, tt.px, tt.py, tt.ok)
		}
	}
}
