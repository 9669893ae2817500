package software

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/fractal/internal/device"
	"github.com/gogpu/fractal/internal/kernel"
)

// queueDepth bounds the number of commands waiting for the runner.
const queueDepth = 64

// Queue runs commands in order on its own goroutine. Commands start as soon
// as they are enqueued, so Flush has nothing to do.
type Queue struct {
	dev  *Device
	cmds chan func() error
	done chan struct{}

	// mu guards closed and sends on cmds.
	mu     sync.Mutex
	closed bool

	pending sync.WaitGroup

	errMu sync.Mutex
	err   error
}

func newQueue(d *Device) *Queue {
	q := &Queue{
		dev:  d,
		cmds: make(chan func() error, queueDepth),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for cmd := range q.cmds {
		if err := cmd(); err != nil {
			q.errMu.Lock()
			if q.err == nil {
				q.err = err
			}
			q.errMu.Unlock()
		}
		q.pending.Done()
	}
}

func (q *Queue) enqueue(cmd func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return device.ErrReleased
	}
	q.pending.Add(1)
	q.cmds <- cmd
	return nil
}

// WriteBuffer enqueues a copy of data into dst.
func (q *Queue) WriteBuffer(dst device.Buffer, offset int, data []uint32) error {
	buf, err := asBuffer(dst)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > buf.Words() {
		return fmt.Errorf("%w: write %d words at %d into %s of %d",
			device.ErrTransfer, len(data), offset, buf.label, buf.Words())
	}
	src := slices.Clone(data)
	return q.enqueue(func() error {
		if len(buf.data) < offset+len(src) {
			return fmt.Errorf("%w: write to released buffer %s", device.ErrTransfer, buf.label)
		}
		copy(buf.data[offset:], src)
		return nil
	})
}

// ReadBuffer enqueues a copy of src into dst.
func (q *Queue) ReadBuffer(src device.Buffer, dst []uint32) error {
	buf, err := asBuffer(src)
	if err != nil {
		return err
	}
	if len(dst) > buf.Words() {
		return fmt.Errorf("%w: read %d words from %s of %d",
			device.ErrTransfer, len(dst), buf.label, buf.Words())
	}
	return q.enqueue(func() error {
		if len(buf.data) < len(dst) {
			return fmt.Errorf("%w: read from released buffer %s", device.ErrTransfer, buf.label)
		}
		copy(dst, buf.data)
		return nil
	})
}

// Dispatch enqueues a kernel launch of workers logical workers.
func (q *Queue) Dispatch(k device.Kernel, b device.Bindings, args kernel.Args, workers int) error {
	if err := args.Check(k.Signature()); err != nil {
		return fmt.Errorf("%w: dispatch %s: %w", device.ErrTransfer, k.Variant(), err)
	}
	if workers < 1 {
		return fmt.Errorf("%w: dispatch with %d workers", device.ErrTransfer, workers)
	}
	out, err := asBuffer(b.Output)
	if err != nil {
		return err
	}
	wq, err := asBuffer(b.WorkQueue)
	if err != nil {
		return err
	}
	cur, err := asBuffer(b.Cursor)
	if err != nil {
		return err
	}

	p := args.Params()
	n := int(p.Width) * int(p.Height)
	if wq.Words() < n || out.Words() < device.Channels*n {
		return fmt.Errorf("%w: dispatch %dx%d into %s of %d words",
			device.ErrTransfer, p.Width, p.Height, out.label, out.Words())
	}

	return q.enqueue(func() error {
		if len(out.data) < device.Channels*n || len(wq.data) < n || len(cur.data) < 1 {
			return fmt.Errorf("%w: dispatch into released buffer %s", device.ErrTransfer, out.label)
		}
		q.run1(p, out.data, wq.data[:n], cur.data, workers)
		return nil
	})
}

// run1 executes one dispatch. The cursor word is loaded into an atomic for
// the duration of the launch and stored back afterwards.
func (q *Queue) run1(p kernel.Params, out, indices, cursorWord []uint32, workers int) {
	var cursor atomic.Uint32
	cursor.Store(cursorWord[0])

	pixel := func(px uint32) { kernel.Pixel(p, px, out) }
	tasks := make([]func(), workers)
	for i := range tasks {
		tasks[i] = func() { kernel.Drain(&cursor, indices, pixel) }
	}
	q.dev.pool.ExecuteAll(tasks)

	cursorWord[0] = cursor.Load()
	q.dev.dispatches.Add(1)
}

// Flush returns nil; commands are already running.
func (q *Queue) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return device.ErrReleased
	}
	return nil
}

// Finish waits for every enqueued command and returns the first error
// reported since the previous Finish.
func (q *Queue) Finish() error {
	q.pending.Wait()

	q.errMu.Lock()
	defer q.errMu.Unlock()
	err := q.err
	q.err = nil
	return err
}

// Release waits for outstanding commands and stops the runner.
func (q *Queue) Release() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.cmds)
	q.mu.Unlock()
	<-q.done
}

func asBuffer(b device.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("%w: buffer %T not owned by the software device", device.ErrTransfer, b)
	}
	return buf, nil
}
