// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu implements the compute device on top of wgpu.
//
// Kernels are the embedded WGSL sources, compiled to SPIR-V with naga when
// the device opens. Each dispatch binds the output, work queue, cursor and a
// fresh uniform block and launches ceil(workers/64) workgroups of 64
// invocations that drain the work queue through atomicAdd on the cursor.
package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/fractal/internal/device"
	"github.com/gogpu/fractal/internal/kernel"

	// Register all available GPU backends (Vulkan, DX12, GLES, Metal, etc.)
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// WorkgroupSize matches @workgroup_size in the kernel sources.
const WorkgroupSize = 64

func init() {
	device.Register(Backend{})
}

// Backend opens wgpu devices.
type Backend struct{}

// Name returns device.BackendGPU.
func (Backend) Name() string { return device.BackendGPU }

// Available returns true; adapter discovery happens in Open.
func (Backend) Available() bool { return true }

// Open creates a device. With opts.Provider set, the provider's wgpu device
// is shared and not released by Close.
func (Backend) Open(opts device.Options) (device.Device, error) {
	budget := opts.Budget
	if budget == nil {
		budget = device.NewBudget(device.DefaultBudgetMB)
	}

	if opts.Provider != nil {
		wd, ok := opts.Provider.Device().(*wgpu.Device)
		if !ok || wd == nil {
			return nil, fmt.Errorf("%w: provider device %T is not a wgpu device",
				device.ErrDeviceInit, opts.Provider.Device())
		}
		info := opts.Provider.AdapterInfo()
		if err := checkAdapter(info.Name, info.Type == gpucontext.AdapterTypeSoftware); err != nil {
			return nil, err
		}
		d := &Device{dev: wd, name: info.Name, budget: budget}
		return d.init()
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", device.ErrDeviceInit, err)
	}
	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", device.ErrNoDevice, err)
	}
	info := adapter.Info()
	if err := checkAdapter(info.Name, info.DeviceType == gputypes.DeviceTypeCPU); err != nil {
		adapter.Release()
		instance.Release()
		return nil, err
	}
	wd, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", device.ErrDeviceInit, err)
	}

	d := &Device{
		instance: instance,
		adapter:  adapter,
		dev:      wd,
		owned:    true,
		name:     info.Name,
		info:     info,
		budget:   budget,
	}
	return d.init()
}

// checkAdapter rejects CPU adapters. Their compute dispatch is unreliable,
// and the software backend runs the same kernels natively.
func checkAdapter(name string, cpu bool) error {
	if cpu {
		return fmt.Errorf("%w: adapter %q is a CPU renderer", device.ErrNoDevice, name)
	}
	return nil
}

// Device is a wgpu compute device.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	dev      *wgpu.Device
	owned    bool
	name     string
	info     gputypes.AdapterInfo
	budget   *device.Budget

	layout   *wgpu.BindGroupLayout
	plLayout *wgpu.PipelineLayout

	mu      sync.Mutex
	kernels map[kernel.Variant]*Kernel
	closed  bool
}

// init builds the shared layouts and both kernels. On failure everything
// created so far, including an owned device, is released.
func (d *Device) init() (*Device, error) {
	d.kernels = make(map[kernel.Variant]*Kernel)

	layout, err := d.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "fractal-bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: uint32(kernel.SlotOutput), Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: uint32(kernel.SlotWorkQueue), Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: uint32(kernel.SlotCursor), Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: uint32(kernel.SlotUniforms), Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%w: create bind group layout: %w", device.ErrDeviceInit, err)
	}
	d.layout = layout

	plLayout, err := d.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "fractal-pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%w: create pipeline layout: %w", device.ErrDeviceInit, err)
	}
	d.plLayout = plLayout

	for _, v := range []kernel.Variant{kernel.Mandelbrot, kernel.Julia} {
		if _, err := d.Kernel(v); err != nil {
			_ = d.Close()
			return nil, err
		}
	}

	device.Logger().Info("gpu: device ready",
		"adapter", d.name, "type", d.info.DeviceType, "backend", d.info.Backend, "shared", !d.owned)
	return d, nil
}

// Name returns the adapter name.
func (d *Device) Name() string { return "gpu (" + d.name + ")" }

// Budget returns the allocation budget.
func (d *Device) Budget() *device.Budget { return d.budget }

// Kernel returns the compute pipeline of a variant.
func (d *Device) Kernel(v kernel.Variant) (device.Kernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if k, ok := d.kernels[v]; ok {
		return k, nil
	}
	if v != kernel.Mandelbrot && v != kernel.Julia {
		return nil, &kernel.BuildError{Kernel: v.String(), Log: "unknown variant"}
	}

	prog, err := kernel.Compile(v)
	if err != nil {
		return nil, err
	}
	module, err := d.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: v.String(),
		SPIRV: prog.SPIRV,
	})
	if err != nil {
		return nil, &kernel.BuildError{Kernel: v.String(), Log: err.Error(), Err: err}
	}
	pipeline, err := d.dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      v.String() + "-pipeline",
		Layout:     d.plLayout,
		Module:     module,
		EntryPoint: kernel.EntryPoint,
	})
	if err != nil {
		module.Release()
		return nil, &kernel.BuildError{Kernel: v.String(), Log: err.Error(), Err: err}
	}

	k := &Kernel{sig: kernel.SignatureFor(v), module: module, pipeline: pipeline}
	d.kernels[v] = k
	device.Logger().Debug("gpu: kernel built", "variant", v, "spirvWords", len(prog.SPIRV))
	return k, nil
}

// NewBuffer creates a storage buffer of words 32-bit words.
func (d *Device) NewBuffer(label string, words int) (device.Buffer, error) {
	if words <= 0 {
		return nil, fmt.Errorf("%w: %s: %d words", device.ErrResourceExhausted, label, words)
	}
	size := uint64(words) * 4 //nolint:gosec // words is positive
	if err := d.budget.Reserve(label, size); err != nil {
		return nil, err
	}

	buf, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		d.budget.Free(size)
		if errors.Is(err, wgpu.ErrOutOfMemory) {
			return nil, fmt.Errorf("%w: %s: %w", device.ErrResourceExhausted, label, err)
		}
		return nil, fmt.Errorf("%w: create %s: %w", device.ErrTransfer, label, err)
	}
	return &Buffer{label: label, words: words, size: size, buf: buf, dev: d}, nil
}

// NewQueue returns a command queue on the device queue.
func (d *Device) NewQueue() (device.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, device.ErrReleased
	}
	return &Queue{d: d}, nil
}

// Close releases kernels and layouts, then the device if it is owned.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.dev != nil {
		err = d.dev.WaitIdle()
	}
	for _, k := range d.kernels {
		k.release()
	}
	d.kernels = nil
	if d.plLayout != nil {
		d.plLayout.Release()
	}
	if d.layout != nil {
		d.layout.Release()
	}
	if d.owned {
		d.dev.Release()
		d.adapter.Release()
		d.instance.Release()
	}
	return err
}

// Kernel is a compiled compute pipeline.
type Kernel struct {
	sig      kernel.Signature
	module   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

// Variant returns the kernel variant.
func (k *Kernel) Variant() kernel.Variant { return k.sig.Variant }

// Signature returns the kernel signature.
func (k *Kernel) Signature() kernel.Signature { return k.sig }

func (k *Kernel) release() {
	k.pipeline.Release()
	k.module.Release()
}

// Buffer is a wgpu storage buffer with an optional staging buffer for
// read-back.
type Buffer struct {
	label   string
	words   int
	size    uint64
	buf     *wgpu.Buffer
	staging *wgpu.Buffer
	dev     *Device
	once    sync.Once
}

// Label returns the buffer label.
func (b *Buffer) Label() string { return b.label }

// Words returns the buffer length.
func (b *Buffer) Words() int { return b.words }

// Release frees the buffer and its staging buffer.
func (b *Buffer) Release() {
	b.once.Do(func() {
		if b.staging != nil {
			b.staging.Release()
		}
		b.buf.Release()
		b.dev.budget.Free(b.size)
	})
}

func (b *Buffer) stagingBuffer() (*wgpu.Buffer, error) {
	if b.staging != nil {
		return b.staging, nil
	}
	s, err := b.dev.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label + "-staging",
		Size:  b.size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, err
	}
	b.staging = s
	return s, nil
}
