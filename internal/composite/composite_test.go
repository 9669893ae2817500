package composite

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/fractal/internal/parallel"
)

func planes(w, h int) []uint32 {
	n := w * h
	src := make([]uint32, 3*n)
	for i := range n {
		src[i] = uint32(i % 256)
		src[n+i] = uint32((i * 7) % 300) // exceeds 255 on purpose
		src[2*n+i] = uint32(255 - i%256)
	}
	return src
}

func TestPlanarPixels(t *testing.T) {
	const w, h = 3, 2
	src := planes(w, h)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := Planar(dst, src, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, color.RGBA{0, 0, 255, 255}},
		{2, 0, color.RGBA{2, 14, 253, 255}},
		{1, 1, color.RGBA{4, 28, 251, 255}},
	}
	for _, tt := range tests {
		if got := dst.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("RGBAAt(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestPlanarClamps(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := Planar(dst, []uint32{300, 256, 1 << 31}, nil); err != nil {
		t.Fatal(err)
	}
	if got, want := dst.RGBAAt(0, 0), (color.RGBA{255, 255, 255, 255}); got != want {
		t.Errorf("RGBAAt = %v, want %v", got, want)
	}
}

func TestPlanarParallelMatchesSerial(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	for _, sz := range [][2]int{{1, 1}, {7, 3}, {64, 48}, {130, 257}} {
		w, h := sz[0], sz[1]
		src := planes(w, h)
		serial := image.NewRGBA(image.Rect(0, 0, w, h))
		par := image.NewRGBA(image.Rect(0, 0, w, h))
		if err := Planar(serial, src, nil); err != nil {
			t.Fatal(err)
		}
		if err := Planar(par, src, pool); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(serial.Pix, par.Pix) {
			t.Errorf("%dx%d: parallel output differs from serial", w, h)
		}
	}
}

func TestPlanarSubImage(t *testing.T) {
	// A destination whose stride exceeds its width.
	full := image.NewRGBA(image.Rect(0, 0, 8, 4))
	sub, ok := full.SubImage(image.Rect(2, 1, 5, 3)).(*image.RGBA)
	if !ok {
		t.Fatal("SubImage is not *image.RGBA")
	}
	if err := Planar(sub, planes(3, 2), nil); err != nil {
		t.Fatal(err)
	}
	if got := full.RGBAAt(2, 1); got.A != 255 {
		t.Errorf("sub origin alpha = %d, want 255", got.A)
	}
	if got := full.RGBAAt(1, 1); got.A != 0 {
		t.Errorf("outside sub-image alpha = %d, want 0", got.A)
	}
	if got := full.RGBAAt(5, 1); got.A != 0 {
		t.Errorf("right of sub-image alpha = %d, want 0", got.A)
	}
}

func TestPlanarSizeMismatch(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := Planar(dst, make([]uint32, 47), nil); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Planar(short) = %v, want ErrSizeMismatch", err)
	}
}

func BenchmarkPlanar(b *testing.B) {
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()
	src := planes(1280, 720)
	dst := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for b.Loop() {
		_ = Planar(dst, src, pool)
	}
}
