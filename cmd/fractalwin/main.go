// Command fractalwin explores the Mandelbrot and Julia sets in a desktop
// window.
//
// Keys: W A S D pan, E Q zoom, Up Down iterations, Shift fast, Space
// coloring, Tab swap viewports, F12 or P snapshot, Escape quit. Hold the
// left button over the Mandelbrot panel to pick the Julia seed.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/gogpu/fractal"
)

func init() {
	// raylib must be called from the main thread.
	runtime.LockOSThread()
}

func main() {
	def := fractal.DefaultConfig()
	var (
		width      = flag.Int("width", fractal.DefaultWidth, "window width")
		height     = flag.Int("height", fractal.DefaultHeight, "window height")
		fullscreen = flag.Bool("fullscreen", false, "fullscreen at the monitor size")
		fps        = flag.Int("fps", 60, "frame rate cap, 0 for uncapped")
		single     = flag.Bool("single", false, "hide the Julia inset")
		backend    = flag.String("backend", "", "compute backend (gpu, software), empty for the best available")
		ordering   = flag.String("ordering", def.Ordering.String(), "frame ordering (synchronized, pipelined)")
		iterations = flag.Int("iterations", def.Iterations, "initial iteration cap")
		hudOn      = flag.Bool("hud", def.HUD, "draw the status overlay")
		snapDir    = flag.String("snapshot-dir", def.SnapshotDir, "snapshot directory")
		snapFormat = flag.String("snapshot-format", def.SnapshotFormat, "snapshot format (png, webp, tga)")
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

	win := openWindow(*width, *height)
	defer win.close()

	opts := []fractal.Option{
		fractal.WithFullscreen(*fullscreen),
		fractal.WithFPSCap(*fps),
		fractal.WithJulia(!*single),
		fractal.WithBackend(*backend),
		fractal.WithOrdering(ord),
		fractal.WithIterations(*iterations, def.IterationFloor),
		fractal.WithHUD(*hudOn),
		fractal.WithSnapshots(*snapDir, *snapFormat),
	}
	if *fullscreen {
		// The renderer switches the window to fullscreen and takes its
		// native size.
		opts = append(opts, fractal.WithResolution(0, 0))
	} else {
		opts = append(opts, fractal.WithResolution(*width, *height))
	}

	r, err := fractal.NewRenderer(win, opts...)
	if err != nil {
		log.Printf("Failed to start renderer: %v", err)
		return
	}
	defer func() {
		if err := r.Close(); err != nil {
			fractal.Logger().Warn("fractalwin: close renderer", "err", err)
		}
	}()

	in := polledInput{w: win, c: fractal.NewCollector(win)}
	if err := r.Run(context.Background(), in); err != nil {
		fractal.Logger().Error("fractalwin: renderer stopped", "err", err)
	}
}
