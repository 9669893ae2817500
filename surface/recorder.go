package surface

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/HugoSmits86/nativewebp"
)

// WebPRecorder keeps the most recent frames and writes them as a looping
// animated WebP when closed.
//
// It is safe for concurrent use.
type WebPRecorder struct {
	mu     sync.Mutex
	w      io.Writer
	frames []*image.RGBA
	first  int
	max    int
	delay  uint
	closed bool
}

// NewWebPRecorder returns a recorder writing to w. If w is an io.Closer it
// is closed by Close.
func NewWebPRecorder(w io.Writer, opts Options) *WebPRecorder {
	return &WebPRecorder{
		w:     w,
		max:   opts.maxFrames(),
		delay: uint(opts.frameDelay().Milliseconds()),
	}
}

// CreateWebPRecorder creates opts.Path and returns a recorder writing to it.
func CreateWebPRecorder(opts Options) (*WebPRecorder, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: webp recorder needs a path", ErrInvalidOptions)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("surface: create recording: %w", err)
	}
	return NewWebPRecorder(f, opts), nil
}

// Present records a copy of frame, dropping the oldest frame when full.
func (r *WebPRecorder) Present(frame *image.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if len(r.frames) < r.max {
		r.frames = append(r.frames, cloneRGBA(nil, frame))
		return nil
	}
	// Ring buffer: reuse the oldest slot.
	r.frames[r.first] = cloneRGBA(r.frames[r.first], frame)
	r.first = (r.first + 1) % r.max
	return nil
}

// Len returns the number of recorded frames.
func (r *WebPRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Close encodes the recorded frames in presentation order. Without frames
// nothing is written.
func (r *WebPRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if n := len(r.frames); n > 0 {
		ani := &nativewebp.Animation{
			Images:    make([]image.Image, 0, n),
			Durations: make([]uint, 0, n),
			Disposals: make([]uint, 0, n),
		}
		for i := range n {
			ani.Images = append(ani.Images, r.frames[(r.first+i)%n])
			ani.Durations = append(ani.Durations, r.delay)
			ani.Disposals = append(ani.Disposals, 0)
		}
		if err = nativewebp.EncodeAll(r.w, ani, nil); err != nil {
			err = fmt.Errorf("surface: encode recording: %w", err)
		}
	}
	r.frames = nil

	if c, ok := r.w.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
