//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/fractal/internal/device"
	"github.com/gogpu/fractal/internal/kernel"
)

// mapTimeout bounds the wait for a staging buffer to map at Finish.
const mapTimeout = 10 * time.Second

type pendingRead struct {
	src *Buffer
	dst []uint32
}

// completion holds a copy of the cursor taken right after a dispatch.
type completion struct {
	variant kernel.Variant
	cursor  *wgpu.Buffer
	pixels  uint32
}

// Queue records commands into a command encoder and submits them on Flush.
// Buffer writes go through the device queue; a write issued after recorded
// commands flushes them first so that execution order matches call order.
type Queue struct {
	d        *Device
	encoder  *wgpu.CommandEncoder
	reads    []pendingRead
	checks   []completion
	inFlight []interface{ Release() }
	released bool
}

func (q *Queue) encoderFor() (*wgpu.CommandEncoder, error) {
	if q.encoder != nil {
		return q.encoder, nil
	}
	enc, err := q.d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create encoder: %w", device.ErrTransfer, err)
	}
	q.encoder = enc
	return enc, nil
}

// WriteBuffer uploads data into dst at the given word offset.
func (q *Queue) WriteBuffer(dst device.Buffer, offset int, data []uint32) error {
	if q.released {
		return device.ErrReleased
	}
	buf, err := asBuffer(dst)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > buf.words {
		return fmt.Errorf("%w: write %d words at %d into %s of %d",
			device.ErrTransfer, len(data), offset, buf.label, buf.words)
	}
	if len(data) == 0 {
		return nil
	}
	if q.encoder != nil {
		if err := q.Flush(); err != nil {
			return err
		}
	}

	bytes := make([]byte, len(data)*4)
	for i, w := range data {
		binary.LittleEndian.PutUint32(bytes[i*4:], w)
	}
	//nolint:gosec // offset is non-negative
	if err := q.d.dev.Queue().WriteBuffer(buf.buf, uint64(offset)*4, bytes); err != nil {
		return fmt.Errorf("%w: write %s: %w", device.ErrTransfer, buf.label, err)
	}
	return nil
}

// Dispatch records one compute pass.
func (q *Queue) Dispatch(k device.Kernel, b device.Bindings, args kernel.Args, workers int) error {
	if q.released {
		return device.ErrReleased
	}
	gk, ok := k.(*Kernel)
	if !ok {
		return fmt.Errorf("%w: kernel %T not owned by the gpu device", device.ErrTransfer, k)
	}
	if err := args.Check(gk.sig); err != nil {
		return fmt.Errorf("%w: dispatch %s: %w", device.ErrTransfer, gk.sig.Variant, err)
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

	uniforms := args.Uniforms()
	ubuf, err := q.d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "params",
		Size:  uint64(len(uniforms)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: create uniform buffer: %w", device.ErrTransfer, err)
	}
	q.inFlight = append(q.inFlight, ubuf)
	if err := q.d.dev.Queue().WriteBuffer(ubuf, 0, uniforms); err != nil {
		return fmt.Errorf("%w: write uniforms: %w", device.ErrTransfer, err)
	}

	bg, err := q.d.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "fractal-bg",
		Layout: q.d.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: uint32(kernel.SlotOutput), Buffer: out.buf, Size: out.size},
			{Binding: uint32(kernel.SlotWorkQueue), Buffer: wq.buf, Size: wq.size},
			{Binding: uint32(kernel.SlotCursor), Buffer: cur.buf, Size: cur.size},
			{Binding: uint32(kernel.SlotUniforms), Buffer: ubuf, Size: uint64(len(uniforms))},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create bind group: %w", device.ErrTransfer, err)
	}
	q.inFlight = append(q.inFlight, bg)

	enc, err := q.encoderFor()
	if err != nil {
		return err
	}
	pass, err := enc.BeginComputePass(nil)
	if err != nil {
		return fmt.Errorf("%w: begin compute pass: %w", device.ErrTransfer, err)
	}
	groups := (workers + WorkgroupSize - 1) / WorkgroupSize
	pass.SetPipeline(gk.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(uint32(groups), 1, 1) //nolint:gosec // workers is positive
	if err := pass.End(); err != nil {
		return fmt.Errorf("%w: end compute pass: %w", device.ErrTransfer, err)
	}

	check, err := q.d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cursor-check",
		Size:  4,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return fmt.Errorf("%w: create cursor check: %w", device.ErrTransfer, err)
	}
	q.inFlight = append(q.inFlight, check)
	enc.CopyBufferToBuffer(cur.buf, 0, check, 0, 4)
	q.checks = append(q.checks, completion{
		variant: gk.sig.Variant,
		cursor:  check,
		pixels:  uint32(args.Pixels()), //nolint:gosec // bounded by the buffer size
	})
	return nil
}

// ReadBuffer records a copy of src into its staging buffer. dst is filled
// when Finish maps the staging buffer.
func (q *Queue) ReadBuffer(src device.Buffer, dst []uint32) error {
	if q.released {
		return device.ErrReleased
	}
	buf, err := asBuffer(src)
	if err != nil {
		return err
	}
	if len(dst) > buf.words {
		return fmt.Errorf("%w: read %d words from %s of %d",
			device.ErrTransfer, len(dst), buf.label, buf.words)
	}
	if len(dst) == 0 {
		return nil
	}
	staging, err := buf.stagingBuffer()
	if err != nil {
		return fmt.Errorf("%w: create staging for %s: %w", device.ErrTransfer, buf.label, err)
	}
	enc, err := q.encoderFor()
	if err != nil {
		return err
	}
	enc.CopyBufferToBuffer(buf.buf, 0, staging, 0, uint64(len(dst))*4)
	q.reads = append(q.reads, pendingRead{src: buf, dst: dst})
	return nil
}

// Flush submits the recorded commands.
func (q *Queue) Flush() error {
	if q.released {
		return device.ErrReleased
	}
	if q.encoder == nil {
		return nil
	}
	enc := q.encoder
	q.encoder = nil

	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("%w: finish encoder: %w", device.ErrTransfer, err)
	}
	q.inFlight = append(q.inFlight, cb)
	if _, err := q.d.dev.Queue().Submit(cb); err != nil {
		return fmt.Errorf("%w: submit: %w", device.ErrTransfer, err)
	}
	return nil
}

// Finish submits outstanding commands, waits for the device and copies every
// pending read into its host slice.
func (q *Queue) Finish() error {
	if q.released {
		return device.ErrReleased
	}
	err := q.Flush()
	if err == nil {
		err = q.d.dev.WaitIdle()
		if err != nil {
			err = fmt.Errorf("%w: wait idle: %w", device.ErrTransfer, err)
		}
	}

	reads := q.reads
	q.reads = nil
	for _, r := range reads {
		if err != nil {
			break
		}
		err = readStaging(r)
	}
	checks := q.checks
	q.checks = nil
	for _, c := range checks {
		if err != nil {
			break
		}
		err = verify(c)
	}

	for _, res := range q.inFlight {
		res.Release()
	}
	q.inFlight = q.inFlight[:0]
	return err
}

func readStaging(r pendingRead) error {
	return mapWords(r.src.staging, r.src.label, r.dst)
}

// mapWords maps buf and copies its first len(dst) words into dst.
func mapWords(buf *wgpu.Buffer, label string, dst []uint32) error {
	size := uint64(len(dst)) * 4
	ctx, cancel := context.WithTimeout(context.Background(), mapTimeout)
	defer cancel()

	if err := buf.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("%w: map %s: %w", device.ErrTransfer, label, err)
	}
	rng, err := buf.MappedRange(0, size)
	if err != nil {
		_ = buf.Unmap()
		return fmt.Errorf("%w: mapped range %s: %w", device.ErrTransfer, label, err)
	}
	data := rng.Bytes()
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if err := buf.Unmap(); err != nil {
		return fmt.Errorf("%w: unmap %s: %w", device.ErrTransfer, label, err)
	}
	return nil
}

// verify reads back the cursor copied after a dispatch. A dispatch that
// did not claim every pixel failed on the device.
func verify(c completion) error {
	got := []uint32{0}
	if err := mapWords(c.cursor, "cursor-check", got); err != nil {
		return err
	}
	return checkCursor(c.variant, got[0], c.pixels)
}

func checkCursor(v kernel.Variant, cursor, pixels uint32) error {
	if cursor < pixels {
		return fmt.Errorf("%w: %s dispatch incomplete: cursor %d of %d pixels",
			device.ErrTransfer, v, cursor, pixels)
	}
	return nil
}

// Release waits for outstanding work and frees per-dispatch resources.
func (q *Queue) Release() {
	if q.released {
		return
	}
	if err := q.Finish(); err != nil {
		device.Logger().Warn("gpu: queue release", "err", err)
	}
	q.released = true
}

func asBuffer(b device.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("%w: buffer %T not owned by the gpu device", device.ErrTransfer, b)
	}
	return buf, nil
}
