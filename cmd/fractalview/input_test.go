package main

import (
	"testing"

	"github.com/gogpu/fractal"
)

func TestTourPhases(t *testing.T) {
	tr := newTour()
	var got []fractal.InputSnapshot
	for range 4 * tourPhase {
		got = append(got, tr.Snapshot(0.016))
	}

	tests := []struct {
		frame int
		check func(fractal.InputSnapshot) bool
		what  string
	}{
		{0, func(in fractal.InputSnapshot) bool { return in.ZoomIn && !in.ToggleColoring }, "zoom in, no toggle"},
		{tourPhase, func(in fractal.InputSnapshot) bool { return in.Left && in.MoreIterations && in.ToggleColoring }, "pan left deeper, toggle"},
		{tourPhase + 1, func(in fractal.InputSnapshot) bool { return !in.ToggleColoring }, "toggle is an edge"},
		{2 * tourPhase, func(in fractal.InputSnapshot) bool { return in.ZoomOut }, "zoom out"},
		{3 * tourPhase, func(in fractal.InputSnapshot) bool { return in.Right && in.FewerIterations }, "pan right shallower"},
	}
	for _, tt := range tests {
		if !tt.check(got[tt.frame]) {
			t.Errorf("frame %d = %+v, want %s", tt.frame, got[tt.frame], tt.what)
		}
	}
	for i, in := range got {
		if in.DT != 0.016 || in.Held == 0 {
			t.Fatalf("frame %d: DT = %v, Held = %d", i, in.DT, in.Held)
		}
	}
}

func TestLimit(t *testing.T) {
	l := &limit{src: newTour(), left: 3}
	for i := range 3 {
		if l.Snapshot(0.01).Quit {
			t.Fatalf("Quit at frame %d, want after 3", i)
		}
	}
	if !l.Snapshot(0.01).Quit {
		t.Error("Snapshot() after the limit did not quit")
	}
}
