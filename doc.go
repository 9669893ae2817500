// Package fractal renders interactive Mandelbrot and Julia sets on a compute
// device.
//
// # Overview
//
// A Renderer owns one or two viewports. Each viewport has a device buffer
// set with two planar pixel buffers that swap roles every frame: the kernel
// writes one while the host composites the other. Pixels are handed out to a
// fixed number of logical workers through an atomic cursor over a work queue,
// so expensive regions of the set do not stall a fixed pixel-to-worker
// mapping.
//
// # Quick Start
//
//	r, err := fractal.NewRenderer(surface.Null{},
//	    fractal.WithResolution(1280, 720),
//	    fractal.WithJulia(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	err = r.Run(ctx, fractal.NewCollector(events))
//
// # Frame Loop
//
// Every frame the Renderer applies one InputSnapshot to the active viewport,
// issues prepare, dispatch and read-back for each dirty viewport, waits for
// the device, composites the settled buffers into the window image and hands
// it to the Presenter. A viewport stays dirty for a short burst of frames
// after its last change and is skipped entirely afterwards.
//
// # Devices
//
// Two backends are registered: "gpu", which runs WGSL kernels through
// gogpu/wgpu, and "software", which runs the same per-pixel function on a
// worker pool. An empty backend name picks the first that opens. Build with
// -tags nogpu to leave the GPU backend out.
//
// # Logging
//
// The package is silent by default. SetLogger enables log/slog output for
// the renderer and the device layer.
package fractal
