package main

import "github.com/gogpu/fractal"

// tourPhase is the length of one tour phase in frames.
const tourPhase = 150

// tour drives headless runs: it zooms in, deepens, zooms out and pans back,
// switching the coloring at each phase change.
type tour struct {
	frame int
}

func newTour() *tour { return &tour{} }

func (t *tour) Snapshot(dt float64) fractal.InputSnapshot {
	in := fractal.InputSnapshot{DT: dt, Held: 1}
	switch (t.frame / tourPhase) % 4 {
	case 0:
		in.ZoomIn = true
	case 1:
		in.Left, in.MoreIterations = true, true
		in.Held = 2
	case 2:
		in.ZoomOut = true
	case 3:
		in.Right, in.FewerIterations = true, true
		in.Held = 2
	}
	in.ToggleColoring = t.frame > 0 && t.frame%tourPhase == 0
	t.frame++
	return in
}

// limit quits after a number of frames.
type limit struct {
	src  fractal.InputSource
	left int
}

func (l *limit) Snapshot(dt float64) fractal.InputSnapshot {
	if l.left <= 0 {
		return fractal.InputSnapshot{Quit: true}
	}
	l.left--
	return l.src.Snapshot(dt)
}
