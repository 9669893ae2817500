package fractal

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/fractal/internal/composite"
	"github.com/gogpu/fractal/internal/device"
	_ "github.com/gogpu/fractal/internal/device/software" // registers the software backend
	"github.com/gogpu/fractal/internal/hud"
	"github.com/gogpu/fractal/internal/kernel"
	"github.com/gogpu/fractal/internal/parallel"
)

// Presenter shows composited frames.
type Presenter interface {
	Present(frame *image.RGBA) error
}

// PanelPresenter is implemented by presenters that also show each viewport
// on its own. A failing panel disables that viewport only.
type PanelPresenter interface {
	PresentPanel(kind Kind, panel *image.RGBA) error
}

// NativeSizer is implemented by presenters with a preferred window size. It
// is consulted when the configured resolution is 0x0.
type NativeSizer interface {
	NativeSize() (width, height int)
}

// Fullscreener is implemented by presenters that can fill the screen. With
// Config.Fullscreen set, NewRenderer switches the presenter to fullscreen
// before it asks for the native size.
type Fullscreener interface {
	SetFullscreen(on bool) error
}

// RenderContext holds the resources shared by the viewports of a Renderer.
type RenderContext struct {
	Device    device.Device
	Pool      *parallel.WorkerPool
	Presenter Presenter
}

// view is a viewport with its device resources.
type view struct {
	*Viewport
	buffers *device.BufferSet
	kernel  device.Kernel
	binder  kernel.Binder
}

// Renderer runs the frame loop of one or two viewports.
//
// A Renderer is driven from a single goroutine; its methods are not safe
// for concurrent use.
type Renderer struct {
	cfg     Config
	rc      RenderContext
	ownPool bool

	views  [2]*view
	active Kind
	layout Layout
	frame  *Frame
	hud    *hud.HUD
	pacer  *pacer
	prof   *profiler

	// Last pointer position inside the main panel, in panel pixels.
	pointerX, pointerY float64
	hasPointer         bool

	frames    uint64
	frameTime time.Duration
	closed    bool

	now func() time.Time
}

// NewRenderer opens a device, allocates the viewports and returns a
// Renderer presenting to p.
func NewRenderer(p Presenter, opts ...Option) (*Renderer, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil presenter", ErrInvalidConfig)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Fullscreen {
		fs, ok := p.(Fullscreener)
		if !ok {
			Logger().Warn("fractal: presenter has no fullscreen mode", "presenter", fmt.Sprintf("%T", p))
		} else if err := fs.SetFullscreen(true); err != nil {
			return nil, fmt.Errorf("%w: fullscreen: %w", ErrPresentation, err)
		}
	}

	width, height := cfg.Width, cfg.Height
	if width == 0 {
		width, height = DefaultWidth, DefaultHeight
		if ns, ok := p.(NativeSizer); ok {
			if w, h := ns.NativeSize(); w > 0 && h > 0 {
				width, height = w, h
			}
		}
	}
	layout, err := NewLayout(width, height, cfg.Gap, cfg.Julia)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		cfg:    cfg,
		rc:     RenderContext{Presenter: p, Pool: o.pool},
		active: KindMandelbrot,
		layout: layout,
		pacer:  newPacer(cfg.FPSCap),
		prof:   newProfiler(cfg.ProfileInterval),
		now:    time.Now,
	}
	if r.rc.Pool == nil {
		r.rc.Pool = parallel.NewWorkerPool(0)
		r.ownPool = true
	}
	if err := r.init(o); err != nil {
		_ = r.Close()
		return nil, err
	}

	propagateLogger(p, Logger())
	Logger().Info("fractal: renderer ready",
		"device", r.rc.Device.Name(),
		"width", width, "height", height,
		"julia", cfg.Julia,
		"ordering", cfg.Ordering,
		"workers", cfg.Workers)
	return r, nil
}

func (r *Renderer) init(o options) error {
	dev, err := device.Open(r.cfg.Backend, device.Options{
		Budget:   device.NewBudget(r.cfg.BudgetMB),
		Provider: o.provider,
		Pool:     r.rc.Pool,
	})
	if err != nil {
		return err
	}
	r.rc.Device = dev

	mandel := NewViewport(KindMandelbrot, r.layout.Main.Dx(), r.layout.Main.Dy(), r.cfg.RefreshBurst)
	mandel.CenterX, mandel.CenterY, mandel.Zoom = r.cfg.CenterX, r.cfg.CenterY, r.cfg.Zoom
	r.initIterations(mandel)
	if err := r.attach(mandel); err != nil {
		return err
	}

	if r.cfg.Julia {
		julia := NewViewport(KindJulia, r.layout.Inset.Dx(), r.layout.Inset.Dy(), r.cfg.RefreshBurst)
		julia.SeedX, julia.SeedY = r.cfg.JuliaSeedX, r.cfg.JuliaSeedY
		r.initIterations(julia)
		if err := r.attach(julia); err != nil {
			return err
		}
	}

	r.frame = newFrame(r.layout, r.active)
	if r.cfg.HUD {
		if r.hud, err = hud.New(hud.DefaultSize); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) initIterations(v *Viewport) {
	v.Iterations = float64(r.cfg.Iterations)
	v.Floor = float64(r.cfg.IterationFloor)
	v.Coloring = r.cfg.Coloring
}

// attach builds the kernel and buffer set of v.
func (r *Renderer) attach(v *Viewport) error {
	k, err := r.rc.Device.Kernel(v.Kind.Variant())
	if err != nil {
		return err
	}
	b, err := device.NewBufferSet(r.rc.Device, v.Width, v.Height, r.cfg.QueueOrder)
	if err != nil {
		return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
	}
	r.views[v.Kind] = &view{
		Viewport: v,
		buffers:  b,
		kernel:   k,
		binder:   kernel.BinderFor(v.Kind.Variant()),
	}
	return nil
}

// Viewport returns the viewport of a kind, or nil if it is not enabled.
func (r *Renderer) Viewport(k Kind) *Viewport {
	if v := r.views[k]; v != nil {
		return v.Viewport
	}
	return nil
}

// Active returns the kind of the viewport driven by navigation input.
func (r *Renderer) Active() Kind { return r.active }

// Layout returns the current panel layout.
func (r *Renderer) Layout() Layout { return r.layout }

// Image returns the most recently presented window image.
func (r *Renderer) Image() *image.RGBA { return r.frame.Window }

// Frames returns the number of completed frames.
func (r *Renderer) Frames() uint64 { return r.frames }

// DeviceName describes the compute device.
func (r *Renderer) DeviceName() string { return r.rc.Device.Name() }

// Frame runs one iteration of the frame loop with the given input.
//
// A presentation failure of the whole window is returned wrapped in
// ErrPresentation; the Renderer stays usable. Any other error is fatal.
func (r *Renderer) Frame(in InputSnapshot) error {
	if r.closed {
		return ErrClosed
	}
	start := r.now()

	if in.ResizeWidth > 0 && in.ResizeHeight > 0 {
		if err := r.Resize(in.ResizeWidth, in.ResizeHeight); err != nil {
			return err
		}
	}
	if in.SwapRoles {
		if err := r.SwapRoles(); err != nil {
			return err
		}
	}
	r.apply(in)

	var stages [numStages]time.Duration
	dirty := r.dirtyViews()

	t0 := r.now()
	for _, v := range dirty {
		if err := r.issue(v); err != nil {
			return err
		}
	}
	if r.cfg.Ordering == OrderingPipelined {
		// The read host settled at the previous Finish and no command
		// issued above touches it.
		for _, v := range dirty {
			if err := r.composite(v, v.buffers.ReadHost()); err != nil {
				return err
			}
		}
	}
	t1 := r.now()
	for _, v := range dirty {
		if err := v.buffers.Queue().Finish(); err != nil {
			return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
		}
	}
	t2 := r.now()
	if r.cfg.Ordering == OrderingSynchronized {
		for _, v := range dirty {
			if err := r.composite(v, v.buffers.WriteHost()); err != nil {
				return err
			}
		}
	}
	for _, v := range dirty {
		v.buffers.Swap()
		v.Advance()
	}
	t3 := r.now()
	stages[stageIssue] = t1.Sub(t0) + t3.Sub(t2)
	stages[stageDevice] = t2.Sub(t1)

	if in.DT > 0 {
		r.frameTime = time.Duration(in.DT * float64(time.Second))
	}
	presentErr := r.present(dirty)
	stages[stagePresent] = r.now().Sub(t3)

	if in.Snapshot {
		path := snapshotPath(r.cfg.SnapshotDir, r.cfg.SnapshotFormat, r.now())
		if err := r.Snapshot(path); err != nil {
			Logger().Warn("fractal: snapshot failed", "path", path, "err", err)
		}
	}

	if p, ok := r.prof.add(stages); ok {
		Logger().Info("fractal: profile", "profile", p)
	}
	if in.DT <= 0 {
		r.frameTime = r.now().Sub(start)
	}
	r.frames++
	return presentErr
}

// apply feeds one input snapshot to the viewports.
func (r *Renderer) apply(in InputSnapshot) {
	active := r.views[r.active]
	in.Navigate(active.Viewport, r.cfg.speeds(in.Fast))
	if in.Held > 0 {
		active.MarkDirty()
	}
	if in.ToggleColoring {
		active.ToggleColoring()
		for _, v := range r.views {
			if v != nil {
				v.MarkDirty()
			}
		}
	}
	if in.Pointer && r.active == KindMandelbrot {
		r.pickSeed(in.PointerX, in.PointerY)
	}
}

// pickSeed sets the Julia seed to the Mandelbrot point under the pointer.
// Positions outside the main panel reuse the last position inside it.
func (r *Renderer) pickSeed(x, y float64) {
	julia := r.views[KindJulia]
	if julia == nil {
		return
	}
	if px, py, ok := r.layout.MainPoint(x, y); ok {
		r.pointerX, r.pointerY, r.hasPointer = px, py, true
	}
	if !r.hasPointer {
		return
	}
	sx, sy := r.views[KindMandelbrot].PointAt(r.pointerX, r.pointerY)
	julia.SetSeed(sx, sy)
	julia.ResetView(0, 0, DefaultZoom)
	julia.MarkDirty()
}

func (r *Renderer) dirtyViews() []*view {
	dirty := make([]*view, 0, len(r.views))
	for _, v := range r.views {
		if v != nil && v.NeedsDispatch() {
			dirty = append(dirty, v)
		}
	}
	return dirty
}

// issue enqueues prepare, dispatch and read-back of v and submits them.
func (r *Renderer) issue(v *view) error {
	b := v.buffers
	q := b.Queue()
	p := v.Params()
	if err := b.PrepareForDispatch(); err != nil {
		return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
	}
	if err := q.Dispatch(v.kernel, b.Bindings(), v.binder.Bind(p), r.cfg.Workers); err != nil {
		return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
	}
	if err := q.ReadBuffer(b.Write(), b.WriteHost()); err != nil {
		return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
	}
	Logger().Debug("fractal: dispatch",
		"viewport", v.Kind,
		"width", p.Width, "height", p.Height,
		"zoom", p.Zoom, "iterations", p.MaxIterations)
	return q.Flush()
}

func (r *Renderer) composite(v *view, host []uint32) error {
	if err := composite.Planar(r.frame.Panel(v.Kind), host, r.rc.Pool); err != nil {
		return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
	}
	return nil
}

// present shows the panels rendered this frame and the assembled window.
func (r *Renderer) present(rendered []*view) error {
	if pp, ok := r.rc.Presenter.(PanelPresenter); ok {
		for _, v := range rendered {
			if err := pp.PresentPanel(v.Kind, r.frame.Panel(v.Kind)); err != nil {
				v.Disable()
				Logger().Warn("fractal: panel presentation failed, viewport disabled",
					"viewport", v.Kind, "err", err)
			}
		}
	}

	r.frame.assemble()
	if r.hud != nil {
		r.hud.Draw(r.frame.Window, r.status())
	}
	if err := r.rc.Presenter.Present(r.frame.Window); err != nil {
		return fmt.Errorf("%w: %w", ErrPresentation, err)
	}
	return nil
}

func (r *Renderer) status() hud.Status {
	v := r.views[r.active]
	return hud.Status{
		FrameTime:  r.frameTime,
		Active:     v.Kind.String(),
		Iterations: v.MaxIterations(),
		Zoom:       v.Zoom,
		CenterX:    v.CenterX,
		CenterY:    v.CenterY,
		Coloring:   v.Coloring.String(),
		Device:     r.rc.Device.Name(),
	}
}

// Snapshot writes the current window image to path. The format follows the
// extension: .png, .webp or .tga.
func (r *Renderer) Snapshot(path string) error {
	if r.closed {
		return ErrClosed
	}
	if err := SaveImage(path, r.frame.Window); err != nil {
		return err
	}
	Logger().Info("fractal: snapshot saved", "path", path)
	return nil
}

// Resize changes the window size. Outstanding work is finished and every
// buffer set is reallocated before the next dispatch.
func (r *Renderer) Resize(width, height int) error {
	if r.closed {
		return ErrClosed
	}
	if width == r.layout.Window.Dx() && height == r.layout.Window.Dy() {
		return nil
	}
	l, err := NewLayout(width, height, r.cfg.Gap, r.views[KindJulia] != nil)
	if err != nil {
		return err
	}
	return r.relayout(l, r.active)
}

// SwapRoles exchanges the main and inset viewports. Navigation input then
// drives the other viewport. Without a Julia viewport it does nothing.
func (r *Renderer) SwapRoles() error {
	if r.closed {
		return ErrClosed
	}
	if r.views[KindJulia] == nil {
		return nil
	}
	return r.relayout(r.layout, r.active.Other())
}

func (r *Renderer) relayout(l Layout, active Kind) error {
	if err := r.finishAll(); err != nil {
		return err
	}
	for _, v := range r.views {
		if v == nil {
			continue
		}
		rect := l.Panel(v.Kind == active)
		v.Resize(rect.Dx(), rect.Dy())
		v.MarkDirty()
		if err := v.buffers.Resize(rect.Dx(), rect.Dy()); err != nil {
			return fmt.Errorf("fractal: %s viewport: %w", v.Kind, err)
		}
	}
	r.layout, r.active = l, active
	r.frame = newFrame(l, active)
	Logger().Info("fractal: layout changed",
		"width", l.Window.Dx(), "height", l.Window.Dy(), "active", active)
	return nil
}

func (r *Renderer) finishAll() error {
	var errs []error
	for _, v := range r.views {
		if v != nil && !v.buffers.Released() {
			if err := v.buffers.Queue().Finish(); err != nil {
				errs = append(errs, fmt.Errorf("fractal: %s viewport: %w", v.Kind, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Run drives the frame loop from src until ctx is done or src reports Quit.
// Frames are paced to Config.FPSCap. Non-fatal frame errors are logged.
func (r *Renderer) Run(ctx context.Context, src InputSource) error {
	last := r.now()
	for ctx.Err() == nil {
		now := r.now()
		dt := now.Sub(last).Seconds()
		last = now

		in := src.Snapshot(dt)
		if in.Quit {
			return nil
		}
		if err := r.Frame(in); err != nil {
			if IsFatal(err) {
				return err
			}
			Logger().Warn("fractal: frame not presented", "err", err)
		}
		if err := r.pacer.Wait(ctx); err != nil {
			break
		}
	}
	return nil
}

// Close waits for outstanding work and releases every resource. It is safe
// to call more than once.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := r.finishAll()
	for i := len(r.views) - 1; i >= 0; i-- {
		if v := r.views[i]; v != nil {
			v.buffers.Release()
		}
	}
	if r.hud != nil {
		if herr := r.hud.Close(); herr != nil {
			Logger().Warn("fractal: close hud", "err", herr)
		}
	}
	if r.rc.Device != nil {
		err = errors.Join(err, r.rc.Device.Close())
	}
	if r.ownPool {
		r.rc.Pool.Close()
	}
	return err
}
