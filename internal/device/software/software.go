// Package software implements the compute device on the CPU.
//
// Kernels run the reference escape-time function from internal/kernel. A
// dispatch starts the requested number of logical workers on a
// parallel.WorkerPool; they claim pixels through a shared atomic cursor
// exactly as the GPU kernel does, so both backends follow the same work
// distribution protocol.
package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/fractal/internal/device"
	"github.com/gogpu/fractal/internal/kernel"
	"github.com/gogpu/fractal/internal/parallel"
)

func init() {
	device.Register(Backend{})
}

// Backend opens software devices. It is always available.
type Backend struct{}

// Name returns device.BackendSoftware.
func (Backend) Name() string { return device.BackendSoftware }

// Available returns true.
func (Backend) Available() bool { return true }

// Open returns a new software device.
func (Backend) Open(opts device.Options) (device.Device, error) {
	return New(opts), nil
}

// Device is a CPU compute device.
type Device struct {
	budget  *device.Budget
	pool    *parallel.WorkerPool
	ownPool bool

	mu      sync.Mutex
	kernels map[kernel.Variant]*Kernel

	dispatches atomic.Uint64
	closed     atomic.Bool
}

// New creates a software device. A nil opts.Pool makes the device start
// and own a pool of GOMAXPROCS workers.
func New(opts device.Options) *Device {
	d := &Device{
		budget:  opts.Budget,
		pool:    opts.Pool,
		kernels: make(map[kernel.Variant]*Kernel),
	}
	if d.budget == nil {
		d.budget = device.NewBudget(device.DefaultBudgetMB)
	}
	if d.pool == nil {
		d.pool = parallel.NewWorkerPool(0)
		d.ownPool = true
	}
	return d
}

// Name describes the device.
func (d *Device) Name() string {
	return fmt.Sprintf("software (%d threads)", d.pool.Workers())
}

// Budget returns the allocation budget.
func (d *Device) Budget() *device.Budget { return d.budget }

// Dispatches returns the number of kernel launches executed so far.
func (d *Device) Dispatches() uint64 { return d.dispatches.Load() }

// NewBuffer allocates a zeroed buffer of the given length.
func (d *Device) NewBuffer(label string, words int) (device.Buffer, error) {
	if d.closed.Load() {
		return nil, device.ErrReleased
	}
	if words <= 0 {
		return nil, fmt.Errorf("%w: %s: %d words", device.ErrResourceExhausted, label, words)
	}
	size := uint64(words) * 4 //nolint:gosec // words is positive
	if err := d.budget.Reserve(label, size); err != nil {
		return nil, err
	}
	return &Buffer{label: label, data: make([]uint32, words), budget: d.budget, size: size}, nil
}

// NewQueue starts a command queue.
func (d *Device) NewQueue() (device.Queue, error) {
	if d.closed.Load() {
		return nil, device.ErrReleased
	}
	return newQueue(d), nil
}

// Kernel returns the kernel of a variant.
func (d *Device) Kernel(v kernel.Variant) (device.Kernel, error) {
	if v != kernel.Mandelbrot && v != kernel.Julia {
		return nil, &kernel.BuildError{Kernel: v.String(), Log: "unknown variant"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels[v]
	if !ok {
		k = &Kernel{sig: kernel.SignatureFor(v)}
		d.kernels[v] = k
	}
	return k, nil
}

// Close stops the device's own worker pool. Buffers and queues must be
// released first.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if d.ownPool {
		d.pool.Close()
	}
	return nil
}

// Kernel evaluates kernel.Pixel for every claimed pixel.
type Kernel struct {
	sig kernel.Signature
}

// Variant returns the kernel variant.
func (k *Kernel) Variant() kernel.Variant { return k.sig.Variant }

// Signature returns the kernel signature.
func (k *Kernel) Signature() kernel.Signature { return k.sig }

// Buffer is a host slice standing in for device memory.
type Buffer struct {
	label  string
	data   []uint32
	budget *device.Budget
	size   uint64
	once   sync.Once
}

// Label returns the buffer label.
func (b *Buffer) Label() string { return b.label }

// Words returns the buffer length.
func (b *Buffer) Words() int { return len(b.data) }

// Release returns the buffer's memory to the budget.
func (b *Buffer) Release() {
	b.once.Do(func() {
		b.budget.Free(b.size)
		b.data = nil
	})
}
