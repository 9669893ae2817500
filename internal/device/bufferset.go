package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/fractal/internal/workqueue"
)

// Channels is the number of planar colour channels in a pixel buffer.
const Channels = 3

// BufferSet is the resource bundle owned by one viewport: a command queue,
// two pixel buffers with host mirrors that alternate between the read and
// write roles, the work queue and the dispatch cursor.
//
// All resources are created by NewBufferSet and freed by Release. A
// BufferSet is not safe for concurrent use.
type BufferSet struct {
	dev    Device
	order  workqueue.Order
	width  int
	height int

	queue     Queue
	pixels    [2]Buffer
	hosts     [2][]uint32
	read      int
	workQueue Buffer
	cursor    Buffer
	indices   []uint32

	// releasers free the buffers; run back to front after the queue is
	// drained.
	releasers []func()
	released  bool
}

// NewBufferSet allocates every buffer for a width x height viewport and
// uploads zeroed pixels, a fresh work queue and a zero cursor.
// If any allocation fails, everything created so far is released and the
// error is returned.
func NewBufferSet(dev Device, width, height int, order workqueue.Order) (*BufferSet, error) {
	indices := workqueue.New(width, height, order)
	if indices == nil {
		return nil, fmt.Errorf("%w: invalid buffer set size %dx%d", ErrResourceExhausted, width, height)
	}

	b := &BufferSet{
		dev:     dev,
		order:   order,
		width:   width,
		height:  height,
		indices: indices,
	}
	if err := b.allocate(); err != nil {
		b.Release()
		return nil, err
	}

	Logger().Debug("device: buffer set allocated",
		"width", width, "height", height, "order", order,
		"pixelWords", Channels*width*height)
	return b, nil
}

func (b *BufferSet) allocate() error {
	q, err := b.dev.NewQueue()
	if err != nil {
		return fmt.Errorf("buffer set: queue: %w", err)
	}
	b.queue = q

	n := b.width * b.height
	for i, label := range []string{"pixels-a", "pixels-b"} {
		buf, err := b.newBuffer(label, Channels*n)
		if err != nil {
			return err
		}
		b.pixels[i] = buf
		b.hosts[i] = make([]uint32, Channels*n)
	}
	if b.workQueue, err = b.newBuffer("work-queue", n); err != nil {
		return err
	}
	if b.cursor, err = b.newBuffer("cursor", 1); err != nil {
		return err
	}

	for i := range b.pixels {
		if err := q.WriteBuffer(b.pixels[i], 0, b.hosts[i]); err != nil {
			return fmt.Errorf("buffer set: upload pixels: %w", err)
		}
	}
	return b.PrepareForDispatch()
}

func (b *BufferSet) newBuffer(label string, words int) (Buffer, error) {
	buf, err := b.dev.NewBuffer(label, words)
	if err != nil {
		return nil, fmt.Errorf("buffer set: %s: %w", label, err)
	}
	b.releasers = append(b.releasers, buf.Release)
	return buf, nil
}

// PrepareForDispatch enqueues a zeroed cursor and a re-upload of the work
// queue. It does not block and may be called repeatedly.
func (b *BufferSet) PrepareForDispatch() error {
	if b.released {
		return ErrReleased
	}
	if err := b.queue.WriteBuffer(b.cursor, 0, []uint32{0}); err != nil {
		return fmt.Errorf("buffer set: reset cursor: %w", err)
	}
	if err := b.queue.WriteBuffer(b.workQueue, 0, b.indices); err != nil {
		return fmt.Errorf("buffer set: upload work queue: %w", err)
	}
	return nil
}

// Swap exchanges the read and write roles of the pixel buffers and their host
// mirrors. No data is copied.
func (b *BufferSet) Swap() {
	b.read ^= 1
}

// Release waits for the queue to drain and releases it, then frees the
// buffers in reverse creation order. It is safe on a partially built set and
// idempotent.
func (b *BufferSet) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.queue != nil {
		if err := b.queue.Finish(); err != nil {
			Logger().Warn("device: release with failed commands", "err", err)
		}
		b.queue.Release()
	}
	for i := len(b.releasers) - 1; i >= 0; i-- {
		b.releasers[i]()
	}
	b.releasers = nil
	b.queue = nil
	b.pixels = [2]Buffer{}
	b.hosts = [2][]uint32{}
	b.workQueue = nil
	b.cursor = nil
}

// Resize waits for outstanding work, releases every resource and allocates a
// fresh set of the new size with a new work queue.
func (b *BufferSet) Resize(width, height int) error {
	if b.released {
		return ErrReleased
	}
	finishErr := b.queue.Finish()
	b.Release()

	next, err := NewBufferSet(b.dev, width, height, b.order)
	if err != nil {
		return errors.Join(finishErr, err)
	}
	*b = *next
	Logger().Info("device: buffer set resized", "width", width, "height", height)
	return finishErr
}

// Bindings returns the buffers a dispatch into the write buffer binds.
func (b *BufferSet) Bindings() Bindings {
	return Bindings{Output: b.Write(), WorkQueue: b.workQueue, Cursor: b.cursor}
}

// Width returns the viewport width in pixels.
func (b *BufferSet) Width() int { return b.width }

// Height returns the viewport height in pixels.
func (b *BufferSet) Height() int { return b.height }

// Pixels returns width*height.
func (b *BufferSet) Pixels() int { return b.width * b.height }

// Read returns the buffer holding the last completed frame.
func (b *BufferSet) Read() Buffer { return b.pixels[b.read] }

// Write returns the buffer the next dispatch writes.
func (b *BufferSet) Write() Buffer { return b.pixels[b.read^1] }

// ReadHost returns the host mirror of Read.
func (b *BufferSet) ReadHost() []uint32 { return b.hosts[b.read] }

// WriteHost returns the host mirror of Write.
func (b *BufferSet) WriteHost() []uint32 { return b.hosts[b.read^1] }

// WorkQueue returns the device work queue buffer.
func (b *BufferSet) WorkQueue() Buffer { return b.workQueue }

// Indices returns the host copy of the work queue.
func (b *BufferSet) Indices() []uint32 { return b.indices }

// Cursor returns the device dispatch cursor buffer.
func (b *BufferSet) Cursor() Buffer { return b.cursor }

// Queue returns the set's command queue.
func (b *BufferSet) Queue() Queue { return b.queue }

// Released reports whether Release has run.
func (b *BufferSet) Released() bool { return b.released }
