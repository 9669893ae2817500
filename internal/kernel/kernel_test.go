package kernel

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// ABI
// =============================================================================

func TestSignatureOrder(t *testing.T) {
	want := []string{
		"output", "width", "height", "zoom", "centerX", "centerY",
		"maxIterations", "workQueue", "cursor", "coloring",
	}
	sig := SignatureFor(Mandelbrot)
	if len(sig.Params) != len(want) {
		t.Fatalf("len(Params) = %d, want %d", len(sig.Params), len(want))
	}
	for i, name := range want {
		if sig.Params[i].Name != name {
			t.Errorf("Params[%d] = %s, want %s", i, sig.Params[i].Name, name)
		}
	}

	julia := SignatureFor(Julia)
	if len(julia.Params) != len(want)+2 {
		t.Fatalf("len(julia Params) = %d, want %d", len(julia.Params), len(want)+2)
	}
	if julia.Params[10].Name != "seedX" || julia.Params[11].Name != "seedY" {
		t.Errorf("julia tail = %s, %s, want seedX, seedY", julia.Params[10].Name, julia.Params[11].Name)
	}
	if sig.Entry != EntryPoint || sig.Version != ABIVersion {
		t.Errorf("signature = %s v%d, want %s v%d", sig.Entry, sig.Version, EntryPoint, ABIVersion)
	}
}

func TestBinderMatchesSignature(t *testing.T) {
	p := Params{Width: 8, Height: 4, Zoom: 3, MaxIterations: 64}
	for _, v := range []Variant{Mandelbrot, Julia} {
		b := BinderFor(v)
		if b.Variant() != v {
			t.Errorf("BinderFor(%s).Variant() = %s", v, b.Variant())
		}
		if err := b.Bind(p).Check(SignatureFor(v)); err != nil {
			t.Errorf("%s Check() = %v, want nil", v, err)
		}
	}
}

func TestCheckMismatch(t *testing.T) {
	p := Params{Width: 8, Height: 4}
	tests := []struct {
		name string
		args Args
		sig  Signature
	}{
		{"wrong variant", MandelbrotBinder{}.Bind(p), SignatureFor(Julia)},
		{"missing seed", Args{Variant: Julia, Version: ABIVersion, List: MandelbrotBinder{}.Bind(p).List}, SignatureFor(Julia)},
		{"old version", Args{Variant: Mandelbrot, Version: ABIVersion - 1, List: MandelbrotBinder{}.Bind(p).List}, SignatureFor(Mandelbrot)},
		{"swapped", swapped(MandelbrotBinder{}.Bind(p), 1, 2), SignatureFor(Mandelbrot)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.args.Check(tt.sig)
			if !errors.Is(err, ErrABIMismatch) {
				t.Errorf("Check() = %v, want ErrABIMismatch", err)
			}
		})
	}
}

func swapped(a Args, i, j int) Args {
	list := append([]Arg(nil), a.List...)
	list[i], list[j] = list[j], list[i]
	a.List = list
	return a
}

func TestUniformsLayout(t *testing.T) {
	p := Params{
		Width: 640, Height: 480, Zoom: 3, CenterX: -0.5, CenterY: 0.25,
		MaxIterations: 1024, Coloring: ColoringBanded, SeedX: 0.3, SeedY: -0.01,
	}

	m := MandelbrotBinder{}.Bind(p).Uniforms()
	if len(m) != 32 {
		t.Fatalf("len(mandelbrot Uniforms()) = %d, want 32", len(m))
	}
	words := func(b []byte) []uint32 {
		out := make([]uint32, len(b)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(b[i*4:])
		}
		return out
	}
	mw := words(m)
	want := []uint32{
		640, 480, math.Float32bits(3), math.Float32bits(-0.5), math.Float32bits(0.25),
		1024, uint32(ColoringBanded), 0,
	}
	for i := range want {
		if mw[i] != want[i] {
			t.Errorf("mandelbrot word %d = %#x, want %#x", i, mw[i], want[i])
		}
	}

	j := JuliaBinder{}.Bind(p).Uniforms()
	if len(j) != 48 {
		t.Fatalf("len(julia Uniforms()) = %d, want 48", len(j))
	}
	jw := words(j)
	if jw[7] != math.Float32bits(0.3) || jw[8] != math.Float32bits(-0.01) {
		t.Errorf("julia seed words = %#x, %#x", jw[7], jw[8])
	}
}

func TestArgsParamsRoundTrip(t *testing.T) {
	p := Params{
		Variant: Julia, Width: 16, Height: 9, Zoom: 1.5, CenterX: 0.1, CenterY: -0.2,
		MaxIterations: 77, Coloring: ColoringBanded, SeedX: -0.8, SeedY: 0.156,
	}
	a := JuliaBinder{}.Bind(p)
	if got := a.Params(); got != p {
		t.Errorf("Params() = %+v, want %+v", got, p)
	}
	if got := a.Pixels(); got != 144 {
		t.Errorf("Pixels() = %d, want 144", got)
	}
}

func TestColoringNext(t *testing.T) {
	if ColoringSmooth.Next() != ColoringBanded || ColoringBanded.Next() != ColoringSmooth {
		t.Error("Next() does not alternate between smooth and banded")
	}
}

// =============================================================================
// CPU reference
// =============================================================================

func TestEscape(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		want   uint32
	}{
		{"origin", 0, 0, 64},
		{"cardioid", -0.7, 0, 64},
		{"corner", -2.2, -1.5, 3},
		{"far", 10, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := Escape(0, 0, tt.cx, tt.cy, 64)
			if n != tt.want {
				t.Errorf("Escape(%v, %v) n = %d, want %d", tt.cx, tt.cy, n, tt.want)
			}
		})
	}
}

func TestEscapeStartsOutside(t *testing.T) {
	n, r2 := Escape(9, 0, 0, 0, 64)
	if n != 0 || r2 != 81 {
		t.Errorf("Escape(9, 0) = %d, %v, want 0, 81", n, r2)
	}
}

func TestSmooth(t *testing.T) {
	if got := Smooth(3, math.Exp(2)); math.Abs(got-4) > 1e-12 {
		t.Errorf("Smooth(3, e^2) = %v, want 4", got)
	}
}

func TestPalette(t *testing.T) {
	want := []uint32{235, 134, 14}
	for ch, w := range want {
		if got := Palette(0, smoothRate, ch); got != w {
			t.Errorf("Palette(0, channel %d) = %d, want %d", ch, got, w)
		}
	}
	for mu := 0.0; mu < 200; mu += 0.37 {
		for ch := range 3 {
			if v := Palette(mu, bandedRate, ch); v > 255 {
				t.Fatalf("Palette(%v, %d) = %d, out of range", mu, ch, v)
			}
		}
	}
}

func TestShadeInsideIsBlack(t *testing.T) {
	for _, c := range []Coloring{ColoringSmooth, ColoringBanded} {
		r, g, b := Shade(100, 1, 100, c)
		if r != 0 || g != 0 || b != 0 {
			t.Errorf("Shade(inside, %s) = %d,%d,%d, want black", c, r, g, b)
		}
	}
}

func TestShadeBandedUsesCount(t *testing.T) {
	r, g, b := Shade(10, 100, 64, ColoringBanded)
	if r != Palette(10, bandedRate, 0) || g != Palette(10, bandedRate, 1) || b != Palette(10, bandedRate, 2) {
		t.Errorf("Shade(banded) = %d,%d,%d, not the integer-count palette", r, g, b)
	}
}

func TestPlaneCenter(t *testing.T) {
	p := Params{Width: 64, Height: 32, Zoom: 3, CenterX: -0.7, CenterY: 0.1}
	re, im := Plane(p, 16*64+32)
	if re != -0.7 || im != 0.1 {
		t.Errorf("Plane(center) = %v, %v, want -0.7, 0.1", re, im)
	}

	// Horizontal span is Zoom scaled by the aspect ratio.
	re0, im0 := Plane(p, 0)
	if want := -0.7 - 3.0; math.Abs(re0-want) > 1e-12 {
		t.Errorf("Plane(0) re = %v, want %v", re0, want)
	}
	if want := 0.1 - 1.5; math.Abs(im0-want) > 1e-12 {
		t.Errorf("Plane(0) im = %v, want %v", im0, want)
	}
}

func TestPixelDeterministic(t *testing.T) {
	p := Params{Variant: Mandelbrot, Width: 64, Height: 64, Zoom: 3, CenterX: -0.7, MaxIterations: 64}
	total := p.Width * p.Height
	center := uint32(32*64 + 32)

	a := make([]uint32, 3*total)
	b := make([]uint32, 3*total)
	Pixel(p, center, a)
	Pixel(p, center, b)
	for ch := range uint32(3) {
		if a[ch*total+center] != 0 {
			t.Errorf("center channel %d = %d, want 0", ch, a[ch*total+center])
		}
		if a[ch*total+center] != b[ch*total+center] {
			t.Errorf("center channel %d differs between runs", ch)
		}
	}

	Pixel(p, 0, a)
	if a[0] == 0 && a[total] == 0 && a[2*total] == 0 {
		t.Error("corner pixel is black, want escaped colour")
	}
}

func TestPixelJuliaUsesSeed(t *testing.T) {
	p := Params{Variant: Julia, Width: 4, Height: 4, Zoom: 3, MaxIterations: 32, SeedX: 10}
	out := make([]uint32, 3*16)
	Pixel(p, 10, out)

	re, im := Plane(p, 10)
	n, r2 := Escape(re, im, 10, 0, 32)
	r, _, _ := Shade(n, r2, 32, ColoringSmooth)
	if out[10] != r {
		t.Errorf("julia red = %d, want %d", out[10], r)
	}
}

// =============================================================================
// Drain
// =============================================================================

func TestDrainExactlyOnce(t *testing.T) {
	for _, workers := range []int{1, 2, 7, 64, 6400} {
		queue := make([]uint32, 1000)
		for i := range queue {
			queue[i] = uint32(len(queue) - 1 - i)
		}

		var cursor atomic.Uint32
		hits := make([]atomic.Int32, len(queue))
		var processed atomic.Int64
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n := Drain(&cursor, queue, func(px uint32) { hits[px].Add(1) })
				processed.Add(int64(n))
			}()
		}
		wg.Wait()

		for i := range hits {
			if h := hits[i].Load(); h != 1 {
				t.Fatalf("workers=%d: pixel %d processed %d times", workers, i, h)
			}
		}
		if processed.Load() != int64(len(queue)) {
			t.Errorf("workers=%d: processed = %d, want %d", workers, processed.Load(), len(queue))
		}
		if cursor.Load() < uint32(len(queue)) {
			t.Errorf("workers=%d: cursor = %d, want >= %d", workers, cursor.Load(), len(queue))
		}
	}
}

func TestDrainEmpty(t *testing.T) {
	var cursor atomic.Uint32
	if n := Drain(&cursor, nil, func(uint32) { t.Error("fn called on empty queue") }); n != 0 {
		t.Errorf("Drain(empty) = %d, want 0", n)
	}
}

// =============================================================================
// Compilation
// =============================================================================

func TestSource(t *testing.T) {
	for _, v := range []Variant{Mandelbrot, Julia} {
		src := Source(v)
		if !strings.Contains(src, "fn "+EntryPoint+"(") {
			t.Errorf("Source(%s) lacks entry point %s", v, EntryPoint)
		}
		if !strings.Contains(src, "atomicAdd(&cursor") {
			t.Errorf("Source(%s) lacks the cursor claim", v)
		}
	}
	if !strings.Contains(Source(Julia), "seed_x") {
		t.Error("Source(Julia) lacks seed parameters")
	}
}

func TestCompile(t *testing.T) {
	for _, v := range []Variant{Mandelbrot, Julia} {
		prog, err := Compile(v)
		if err != nil {
			t.Fatalf("Compile(%s) = %v", v, err)
		}
		if len(prog.SPIRV) == 0 || prog.SPIRV[0] != SPIRVMagic {
			t.Errorf("Compile(%s) SPIR-V magic missing", v)
		}
	}
}

func TestCompileBuildError(t *testing.T) {
	_, err := compileSource(Mandelbrot, "fn render( {")
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("compileSource(bad) = %v, want *BuildError", err)
	}
	if be.Kernel != "mandelbrot" || be.Log == "" {
		t.Errorf("BuildError = %+v, want kernel and log", be)
	}
	if be.Unwrap() == nil {
		t.Error("BuildError.Unwrap() = nil, want compiler error")
	}
}
