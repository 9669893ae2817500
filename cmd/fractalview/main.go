// Command fractalview renders the Mandelbrot set headless or in a browser.
//
// Headless surfaces (null, image, webp) are driven by a zooming tour; the
// ws surface serves a viewer page and takes keyboard and mouse input from
// it:
//
//	fractalview -surface ws -addr :8080 -julia
//	fractalview -surface webp -record tour.webp -frames 120
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/internal/workqueue"
	"github.com/gogpu/fractal/surface"
	_ "github.com/gogpu/fractal/surface/wsview" // registers the ws surface
)

func main() {
	def := fractal.DefaultConfig()
	var (
		width      = flag.Int("width", fractal.DefaultWidth, "window width")
		height     = flag.Int("height", fractal.DefaultHeight, "window height")
		fps        = flag.Int("fps", 30, "frame rate cap, 0 for uncapped")
		julia      = flag.Bool("julia", false, "show the Julia inset")
		backend    = flag.String("backend", "", "compute backend (gpu, software), empty for the best available")
		ordering   = flag.String("ordering", def.Ordering.String(), "frame ordering (synchronized, pipelined)")
		queueOrder = flag.String("queue-order", def.QueueOrder.String(), "pixel order (ascending, shuffled)")
		coloring   = flag.String("coloring", def.Coloring.String(), "coloring (smooth, banded)")
		workers    = flag.Int("workers", def.Workers, "work items per dispatch")
		burst      = flag.Int("burst", def.RefreshBurst, "frames rendered after each change")
		iterations = flag.Int("iterations", def.Iterations, "initial iteration cap")
		floor      = flag.Int("floor", def.IterationFloor, "iteration floor")
		budget     = flag.Int("budget", def.BudgetMB, "device memory budget in MiB")
		hudOn      = flag.Bool("hud", def.HUD, "draw the status overlay")
		profile    = flag.Int("profile", def.ProfileInterval, "frames per profile log, 0 to disable")
		snapDir    = flag.String("snapshot-dir", def.SnapshotDir, "snapshot directory")
		snapFormat = flag.String("snapshot-format", def.SnapshotFormat, "snapshot format (png, webp, tga)")
		surf       = flag.String("surface", "auto", "presenter (null, image, webp, ws, auto)")
		addr       = flag.String("addr", ":8080", "listen address of the ws surface")
		record     = flag.String("record", "", "output file of the webp surface")
		frames     = flag.Int("frames", 0, "stop after this many frames, 0 to run until interrupted")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	fractal.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ord, err := fractal.ParseOrdering(*ordering)
	if err != nil {
		log.Fatalf("Invalid -ordering: %v", err)
	}
	qo, err := workqueue.ParseOrder(*queueOrder)
	if err != nil {
		log.Fatalf("Invalid -queue-order: %v", err)
	}
	col, err := fractal.ParseColoring(*coloring)
	if err != nil {
		log.Fatalf("Invalid -coloring: %v", err)
	}

	sopts := surface.Options{Width: *width, Height: *height, Path: *record, Addr: *addr}
	var s surface.Surface
	if *surf == "auto" {
		s, err = surface.NewSurface(sopts)
	} else {
		s, err = surface.NewSurfaceByName(*surf, sopts)
	}
	if err != nil {
		log.Fatalf("Failed to create surface: %v", err)
	}

	r, err := fractal.NewRenderer(s,
		fractal.WithResolution(*width, *height),
		fractal.WithFPSCap(*fps),
		fractal.WithJulia(*julia),
		fractal.WithBackend(*backend),
		fractal.WithOrdering(ord),
		fractal.WithQueueOrder(qo),
		fractal.WithColoring(col),
		fractal.WithWorkers(*workers),
		fractal.WithRefreshBurst(*burst),
		fractal.WithIterations(*iterations, *floor),
		fractal.WithBudget(*budget),
		fractal.WithHUD(*hudOn),
		fractal.WithProfileInterval(*profile),
		fractal.WithSnapshots(*snapDir, *snapFormat),
	)
	if err != nil {
		_ = s.Close()
		log.Fatalf("Failed to start renderer: %v", err)
	}

	var src fractal.InputSource
	if es, ok := s.(gpucontext.EventSource); ok {
		src = fractal.NewCollector(es)
	} else {
		src = newTour()
	}
	if *frames > 0 {
		src = &limit{src: src, left: *frames}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := r.Run(ctx, src)
	stop()

	n, dev := r.Frames(), r.DeviceName()
	if err := r.Close(); err != nil {
		fractal.Logger().Warn("fractalview: close renderer", "err", err)
	}
	if err := s.Close(); err != nil {
		fractal.Logger().Warn("fractalview: close surface", "err", err)
	}
	if runErr != nil {
		log.Fatalf("Renderer stopped: %v", runErr)
	}
	log.Printf("Rendered %d frames on %s\n", n, dev)
}
