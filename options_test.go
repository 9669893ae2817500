package fractal

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/fractal/internal/parallel"
	"github.com/gogpu/fractal/internal/workqueue"
)

func TestDefaultConfigValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}

	tests := []struct {
		name      string
		got, want any
	}{
		{"Zoom", c.Zoom, 3.0},
		{"Iterations", c.Iterations, 1024},
		{"IterationFloor", c.IterationFloor, 10},
		{"RefreshBurst", c.RefreshBurst, 4},
		{"Workers", c.Workers, 6400},
		{"CenterX", c.CenterX, -0.29},
		{"Ordering", c.Ordering, OrderingSynchronized},
		{"FPSCap", c.FPSCap, 0},
		{"Width", c.Width, 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{"negative width", func(c *Config) { c.Width, c.Height = -1, 100 }},
		{"width only", func(c *Config) { c.Width = 100 }},
		{"negative fps", func(c *Config) { c.FPSCap = -1 }},
		{"zero zoom", func(c *Config) { c.Zoom = 0 }},
		{"NaN zoom", func(c *Config) { c.Zoom = math.NaN() }},
		{"infinite zoom", func(c *Config) { c.Zoom = math.Inf(1) }},
		{"zero floor", func(c *Config) { c.IterationFloor = 0 }},
		{"iterations below floor", func(c *Config) { c.Iterations = 5 }},
		{"zero burst", func(c *Config) { c.RefreshBurst = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative gap", func(c *Config) { c.Gap = -1 }},
		{"zero budget", func(c *Config) { c.BudgetMB = 0 }},
		{"negative profile interval", func(c *Config) { c.ProfileInterval = -1 }},
		{"bad ordering", func(c *Config) { c.Ordering = 7 }},
		{"bad coloring", func(c *Config) { c.Coloring = 9 }},
		{"bad snapshot format", func(c *Config) { c.SnapshotFormat = "jpeg" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mod(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in      string
		want    Ordering
		wantErr bool
	}{
		{"", OrderingSynchronized, false},
		{"synchronized", OrderingSynchronized, false},
		{"pipelined", OrderingPipelined, false},
		{"stale", OrderingSynchronized, true},
	}
	for _, tt := range tests {
		got, err := ParseOrdering(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOrdering(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
		if err == nil && tt.in != "" && got.String() != tt.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
		}
	}
}

func TestOptions(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	o := defaultOptions()
	for _, opt := range []Option{
		WithResolution(640, 480),
		WithFullscreen(true),
		WithFPSCap(30),
		WithView(-0.7, 0.2, 1.5),
		WithIterations(256, 16),
		WithColoring(ColoringBanded),
		WithRefreshBurst(6),
		WithWorkers(128),
		WithOrdering(OrderingPipelined),
		WithQueueOrder(workqueue.Shuffled),
		WithJulia(true),
		WithJuliaSeed(0.3, -0.01),
		WithGap(4),
		WithBackend("software"),
		WithBudget(64),
		WithHUD(false),
		WithProfileInterval(10),
		WithSnapshots("/tmp", "webp"),
		WithWorkerPool(pool),
	} {
		opt(&o)
	}

	c := o.cfg
	want := DefaultConfig()
	want.Width, want.Height = 640, 480
	want.Fullscreen = true
	want.FPSCap = 30
	want.CenterX, want.CenterY, want.Zoom = -0.7, 0.2, 1.5
	want.Iterations, want.IterationFloor = 256, 16
	want.Coloring = ColoringBanded
	want.RefreshBurst = 6
	want.Workers = 128
	want.Ordering = OrderingPipelined
	want.QueueOrder = workqueue.Shuffled
	want.Julia = true
	want.JuliaSeedX, want.JuliaSeedY = 0.3, -0.01
	want.Gap = 4
	want.Backend = "software"
	want.BudgetMB = 64
	want.HUD = false
	want.ProfileInterval = 10
	want.SnapshotDir, want.SnapshotFormat = "/tmp", "webp"

	if c != want {
		t.Errorf("config = %+v\nwant %+v", c, want)
	}
	if o.pool != pool {
		t.Error("WithWorkerPool not applied")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestWithConfigThenOptions(t *testing.T) {
	base := DefaultConfig()
	base.Workers = 99

	o := defaultOptions()
	WithConfig(base)(&o)
	WithFPSCap(24)(&o)
	if o.cfg.Workers != 99 || o.cfg.FPSCap != 24 {
		t.Errorf("Workers, FPSCap = %d, %d; want 99, 24", o.cfg.Workers, o.cfg.FPSCap)
	}
}
