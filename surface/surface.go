// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"sync"
	"time"
)

// Surface is a presentation target. Present receives the window image of
// one frame; the image is reused by the caller after Present returns, so
// surfaces that keep it must copy.
//
// Close is idempotent.
type Surface interface {
	Present(frame *image.RGBA) error
	Close() error
}

// Options configures surface creation. Each surface reads the fields it
// needs and ignores the rest.
type Options struct {
	// Width and Height are the preferred window size. Zero leaves the
	// choice to the renderer.
	Width, Height int

	// Path is the output file of recording surfaces.
	Path string

	// Addr is the listen address of network surfaces.
	Addr string

	// FrameDelay is the display time of one recorded frame.
	// Default: 40ms
	FrameDelay time.Duration

	// MaxFrames bounds the number of recorded frames; older frames are
	// dropped first.
	// Default: 250
	MaxFrames int
}

// Defaults for recording surfaces.
const (
	DefaultFrameDelay = 40 * time.Millisecond
	DefaultMaxFrames  = 250
)

func (o Options) frameDelay() time.Duration {
	if o.FrameDelay <= 0 {
		return DefaultFrameDelay
	}
	return o.FrameDelay
}

func (o Options) maxFrames() int {
	if o.MaxFrames <= 0 {
		return DefaultMaxFrames
	}
	return o.MaxFrames
}

// Errors.
var (
	// ErrInvalidOptions is returned by factories whose required options are
	// missing.
	ErrInvalidOptions = errors.New("surface: invalid options")

	// ErrClosed is returned by Present after Close.
	ErrClosed = errors.New("surface: closed")
)

// Null discards every frame.
type Null struct{}

// Present does nothing.
func (Null) Present(*image.RGBA) error { return nil }

// Close does nothing.
func (Null) Close() error { return nil }

// NativeSize reports no preference.
func (Null) NativeSize() (int, int) { return 0, 0 }

// Capture keeps a copy of the most recent frame.
// It is safe for concurrent use.
type Capture struct {
	mu     sync.Mutex
	last   *image.RGBA
	frames int
	width  int
	height int
	closed bool
}

// NewCapture returns a Capture that reports width x height as its native
// size. Zero leaves the size to the renderer.
func NewCapture(width, height int) *Capture {
	return &Capture{width: width, height: height}
}

// Present copies frame.
func (c *Capture) Present(frame *image.RGBA) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.last = cloneRGBA(c.last, frame)
	c.frames++
	return nil
}

// Last returns a copy of the most recent frame, or nil before the first.
func (c *Capture) Last() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	return cloneRGBA(nil, c.last)
}

// Frames returns the number of presented frames.
func (c *Capture) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// NativeSize returns the size passed to NewCapture.
func (c *Capture) NativeSize() (int, int) { return c.width, c.height }

// Close stops accepting frames. The last frame stays readable.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// cloneRGBA copies src into dst, reallocating dst when the size differs.
// The copy is rebased to the origin.
func cloneRGBA(dst, src *image.RGBA) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if dst == nil || dst.Rect.Dx() != w || dst.Rect.Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	for y := range h {
		s := src.Pix[y*src.Stride : y*src.Stride+w*4]
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], s)
	}
	return dst
}
