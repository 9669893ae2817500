// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device abstracts the compute device the fractal kernels run on.
//
// A Device hands out buffers, kernels and command queues. Queues are
// asynchronous: WriteBuffer, Dispatch and ReadBuffer only enqueue work, and
// nothing they touch on the host is valid until Finish returns. Two backends
// exist: internal/device/gpu runs the WGSL kernels through wgpu and
// internal/device/software runs the CPU reference on a worker pool.
package device

import (
	"github.com/gogpu/fractal/internal/kernel"
)

// Buffer is a device allocation of 32-bit words.
type Buffer interface {
	Label() string

	// Words returns the buffer length in 32-bit words.
	Words() int

	// Release frees the allocation. Calling it more than once is a no-op.
	Release()
}

// Kernel is a compiled kernel variant ready for dispatch.
type Kernel interface {
	Variant() kernel.Variant
	Signature() kernel.Signature
}

// Bindings names the buffers bound to the kernel's buffer slots.
type Bindings struct {
	Output    Buffer
	WorkQueue Buffer
	Cursor    Buffer
}

// Queue is an in-order command queue.
type Queue interface {
	// WriteBuffer enqueues a copy of data into dst at the given word offset.
	// data is captured before WriteBuffer returns.
	WriteBuffer(dst Buffer, offset int, data []uint32) error

	// Dispatch enqueues one kernel launch over a fixed grid of workers.
	// Each worker claims work queue positions through the cursor until the
	// queue is drained.
	Dispatch(k Kernel, b Bindings, args kernel.Args, workers int) error

	// ReadBuffer enqueues a copy of src into dst. dst holds the result
	// once Finish returns.
	ReadBuffer(src Buffer, dst []uint32) error

	// Flush submits enqueued work to the device without waiting.
	Flush() error

	// Finish blocks until every enqueued command has completed and returns
	// the first error any of them reported.
	Finish() error

	// Release waits for outstanding work and frees the queue.
	Release()
}

// Device is an opened compute device.
type Device interface {
	// Name identifies the backend and adapter.
	Name() string

	NewQueue() (Queue, error)
	NewBuffer(label string, words int) (Buffer, error)

	// Kernel returns the compiled kernel of a variant, building it on first
	// use. Build failures are *kernel.BuildError.
	Kernel(v kernel.Variant) (Kernel, error)

	// Budget returns the allocation budget the device enforces.
	Budget() *Budget

	Close() error
}
