package fractal

import (
	"log/slog"
	"time"
)

// Profiled stages of a frame.
const (
	stageIssue   = iota // enqueue commands and composite
	stageDevice         // wait for the device
	stagePresent        // assemble, overlay and present
	numStages
)

var stageNames = [numStages]string{"issue", "device", "present"}

// Profile is the mean duration of each frame stage over a profiling window.
type Profile struct {
	Frames  int
	Issue   time.Duration
	Device  time.Duration
	Present time.Duration
}

// Total returns the mean frame time.
func (p Profile) Total() time.Duration {
	return p.Issue + p.Device + p.Present
}

// LogValue implements slog.LogValuer.
func (p Profile) LogValue() slog.Value {
	total := p.Total()
	share := func(d time.Duration) float64 {
		if total == 0 {
			return 0
		}
		return float64(d) / float64(total) * 100
	}
	return slog.GroupValue(
		slog.Int("frames", p.Frames),
		slog.Duration("total", total),
		slog.Duration(stageNames[stageIssue], p.Issue),
		slog.Float64("issue_pct", share(p.Issue)),
		slog.Duration(stageNames[stageDevice], p.Device),
		slog.Float64("device_pct", share(p.Device)),
		slog.Duration(stageNames[stagePresent], p.Present),
		slog.Float64("present_pct", share(p.Present)),
	)
}

// profiler accumulates stage durations and reports their means every
// interval frames.
type profiler struct {
	interval int
	frames   int
	sums     [numStages]time.Duration
	last     Profile
}

func newProfiler(interval int) *profiler {
	return &profiler{interval: interval}
}

// add records one frame. It returns the means and true when a window is
// complete.
func (p *profiler) add(stages [numStages]time.Duration) (Profile, bool) {
	if p.interval <= 0 {
		return Profile{}, false
	}
	for i, d := range stages {
		p.sums[i] += d
	}
	p.frames++
	if p.frames < p.interval {
		return Profile{}, false
	}

	n := time.Duration(p.frames)
	p.last = Profile{
		Frames:  p.frames,
		Issue:   p.sums[stageIssue] / n,
		Device:  p.sums[stageDevice] / n,
		Present: p.sums[stagePresent] / n,
	}
	p.frames = 0
	p.sums = [numStages]time.Duration{}
	return p.last, true
}
