// Package composite converts planar kernel output into packed RGBA images.
package composite

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/fractal/internal/parallel"
)

// ErrSizeMismatch is returned when the planar source does not hold three
// channels for every pixel of the destination.
var ErrSizeMismatch = errors.New("composite: source size does not match destination")

// Planar writes src, three planes of width*height channel values (red, then
// green, then blue), into dst with alpha 255. Values above 255 are clamped.
// Rows are split across the pool; a nil pool converts on the calling
// goroutine.
func Planar(dst *image.RGBA, src []uint32, pool *parallel.WorkerPool) error {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	n := w * h
	if len(src) != 3*n {
		return fmt.Errorf("%w: %d words for %dx%d", ErrSizeMismatch, len(src), w, h)
	}
	if n == 0 {
		return nil
	}

	red, green, blue := src[:n], src[n:2*n], src[2*n:]
	parallel.ForRows(pool, h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			base := y * w
			for x := range w {
				i := base + x
				o := row[x*4 : x*4+4 : x*4+4]
				o[0] = clamp(red[i])
				o[1] = clamp(green[i])
				o[2] = clamp(blue[i])
				o[3] = 0xff
			}
		}
	})
	return nil
}

func clamp(v uint32) uint8 {
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}
