//go:build !nogpu

package gpu

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/fractal/internal/device"
	_ "github.com/gogpu/fractal/internal/device/software"
	"github.com/gogpu/fractal/internal/kernel"
	"github.com/gogpu/fractal/internal/workqueue"
)

// openOrSkip opens a device or skips the test on machines without an adapter.
func openOrSkip(t *testing.T) device.Device {
	t.Helper()
	dev, err := Backend{}.Open(device.Options{})
	if err != nil {
		t.Skipf("no GPU available: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestBackendName(t *testing.T) {
	if got := (Backend{}).Name(); got != device.BackendGPU {
		t.Errorf("Name() = %q, want %q", got, device.BackendGPU)
	}
}

func TestKernelsBuiltAtOpen(t *testing.T) {
	dev := openOrSkip(t)
	for _, v := range []kernel.Variant{kernel.Mandelbrot, kernel.Julia} {
		k, err := dev.Kernel(v)
		if err != nil {
			t.Fatalf("Kernel(%s) = %v", v, err)
		}
		if k.Variant() != v {
			t.Errorf("Kernel(%s).Variant() = %s", v, k.Variant())
		}
	}
}

func TestDispatchCoversEveryPixel(t *testing.T) {
	dev := openOrSkip(t)
	const w, h = 40, 30
	b, err := device.NewBufferSet(dev, w, h, workqueue.Shuffled)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Release)

	k, err := dev.Kernel(kernel.Mandelbrot)
	if err != nil {
		t.Fatal(err)
	}
	p := kernel.Params{Variant: kernel.Mandelbrot, Width: w, Height: h, Zoom: 3, CenterX: -0.7, MaxIterations: 64}
	q := b.Queue()
	if err := b.PrepareForDispatch(); err != nil {
		t.Fatal(err)
	}
	if err := q.Dispatch(k, b.Bindings(), kernel.MandelbrotBinder{}.Bind(p), 6400); err != nil {
		t.Fatal(err)
	}
	if err := q.ReadBuffer(b.Write(), b.WriteHost()); err != nil {
		t.Fatal(err)
	}
	cursor := make([]uint32, 1)
	if err := q.ReadBuffer(b.Cursor(), cursor); err != nil {
		t.Fatal(err)
	}
	if err := q.Finish(); err != nil {
		t.Fatalf("Finish() = %v", err)
	}

	if cursor[0] < w*h {
		t.Errorf("cursor = %d, want >= %d", cursor[0], w*h)
	}

	// The center pixel lies in the main cardioid.
	center := uint32(h/2*w + w/2)
	host := b.WriteHost()
	for ch := range uint32(3) {
		if v := host[ch*w*h+center]; v != 0 {
			t.Errorf("center channel %d = %d, want 0", ch, v)
		}
	}
	if slices.Max(host) > 255 {
		t.Errorf("channel value %d out of range", slices.Max(host))
	}
}

func TestNewBufferBudget(t *testing.T) {
	dev, err := Backend{}.Open(device.Options{Budget: device.NewBudgetBytes(1024)})
	if err != nil {
		t.Skipf("no GPU available: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })

	if _, err := dev.NewBuffer("big", 1024); !errors.Is(err, device.ErrResourceExhausted) {
		t.Errorf("NewBuffer over budget = %v, want ErrResourceExhausted", err)
	}
}

func TestCheckAdapter(t *testing.T) {
	tests := []struct {
		name string
		cpu  bool
		want error
	}{
		{"NVIDIA GeForce RTX 4090", false, nil},
		{"Software Renderer", true, device.ErrNoDevice},
	}
	for _, tt := range tests {
		err := checkAdapter(tt.name, tt.cpu)
		if tt.want == nil && err != nil {
			t.Errorf("checkAdapter(%q) = %v, want nil", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("checkAdapter(%q) = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestCheckCursor(t *testing.T) {
	tests := []struct {
		cursor, pixels uint32
		ok             bool
	}{
		{1200, 1200, true},
		{7600, 1200, true},
		{0, 1200, false},
		{1199, 1200, false},
	}
	for _, tt := range tests {
		err := checkCursor(kernel.Mandelbrot, tt.cursor, tt.pixels)
		if tt.ok && err != nil {
			t.Errorf("checkCursor(%d, %d) = %v, want nil", tt.cursor, tt.pixels, err)
		}
		if !tt.ok && !errors.Is(err, device.ErrTransfer) {
			t.Errorf("checkCursor(%d, %d) = %v, want ErrTransfer", tt.cursor, tt.pixels, err)
		}
	}
}

func TestOpenFallsBackFromCPUAdapter(t *testing.T) {
	// Whatever adapter this machine has, the default backend selection must
	// end with a device, CPU adapters being handed to the software backend.
	dev, err := device.Open("", device.Options{})
	if err != nil {
		t.Fatalf("Open(\"\") = %v, want a device", err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	if d, ok := dev.(*Device); ok && d.info.DeviceType == gputypes.DeviceTypeCPU {
		t.Errorf("Open() selected CPU adapter %q", d.name)
	}
}
