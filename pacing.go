package fractal

import (
	"context"
	"time"
)

// pacer caps the frame rate by sleeping until the next frame is due.
type pacer struct {
	interval time.Duration
	next     time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// newPacer returns a pacer for fps frames per second. Zero fps never waits.
func newPacer(fps int) *pacer {
	p := &pacer{now: time.Now, sleep: sleepContext}
	if fps > 0 {
		p.interval = time.Second / time.Duration(fps)
	}
	return p
}

// Wait blocks until the next frame is due or ctx is done. A frame that ran
// over its slot starts the schedule again from now instead of bursting to
// catch up.
func (p *pacer) Wait(ctx context.Context) error {
	if p.interval == 0 {
		return ctx.Err()
	}
	now := p.now()
	if p.next.IsZero() {
		p.next = now
	}
	p.next = p.next.Add(p.interval)
	if p.next.Before(now) {
		p.next = now
		return ctx.Err()
	}
	return p.sleep(ctx, p.next.Sub(now))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
