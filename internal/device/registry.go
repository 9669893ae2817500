package device

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/fractal/internal/parallel"
)

// Options configure Open.
type Options struct {
	// Budget limits allocations. Nil selects a DefaultBudgetMB budget.
	Budget *Budget

	// Provider shares a device already created by the host application.
	// Only the gpu backend uses it.
	Provider gpucontext.DeviceProvider

	// Pool runs CPU-side work. Only the software backend uses it.
	// Nil makes the backend create its own.
	Pool *parallel.WorkerPool
}

// Backend opens devices of one kind.
type Backend interface {
	Name() string

	// Available reports whether Open can be expected to succeed on this
	// system.
	Available() bool

	Open(opts Options) (Device, error)
}

// Backend names in preference order.
const (
	BackendGPU      = "gpu"
	BackendSoftware = "software"
)

// preference orders backend selection. Unlisted backends come last, by
// name.
var preference = []string{BackendGPU, BackendSoftware}

var backends = gpucontext.NewRegistry[Backend](gpucontext.WithPriority(preference...))

// Register adds a backend, replacing any backend of the same name.
// Backends register themselves from init.
func Register(b Backend) {
	backends.Register(b.Name(), func() Backend { return b })
}

// Unregister removes a backend.
func Unregister(name string) {
	backends.Unregister(name)
}

// Backends returns the registered backend names, preferred first.
func Backends() []string {
	names := backends.Available()
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(rank(a), rank(b)), strings.Compare(a, b))
	})
	return names
}

func rank(name string) int {
	if i := slices.Index(preference, name); i >= 0 {
		return i
	}
	return len(preference)
}

// Open opens a device from the named backend. An empty name tries every
// available backend in preference order and returns the first device that
// opens.
func Open(name string, opts Options) (Device, error) {
	if opts.Budget == nil {
		opts.Budget = NewBudget(DefaultBudgetMB)
	}
	if name != "" {
		return openNamed(name, opts)
	}

	var lastErr error
	for _, n := range Backends() {
		b := backends.Get(n)
		if b == nil || !b.Available() {
			continue
		}
		dev, err := b.Open(opts)
		if err == nil {
			Logger().Info("device: opened", "backend", n, "device", dev.Name())
			return dev, nil
		}
		Logger().Warn("device: backend failed, trying next", "backend", n, "err", err)
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, lastErr)
	}
	return nil, ErrNoDevice
}

func openNamed(name string, opts Options) (Device, error) {
	if !backends.Has(name) {
		return nil, &BackendNotFoundError{Name: name, Available: Backends()}
	}
	b := backends.Get(name)
	if !b.Available() {
		return nil, fmt.Errorf("%w: backend %q unavailable", ErrNoDevice, name)
	}
	dev, err := b.Open(opts)
	if err != nil {
		return nil, err
	}
	Logger().Info("device: opened", "backend", name, "device", dev.Name())
	return dev, nil
}
