// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ABIVersion identifies the argument layout shared by the host binders and
// the kernel sources. Any change to argument order, kinds or the uniform
// packing must bump it.
const ABIVersion = 2

// EntryPoint is the kernel function every variant exports.
const EntryPoint = "render"

// ErrABIMismatch is returned when an argument set does not match the
// signature of the kernel it is dispatched to.
var ErrABIMismatch = errors.New("kernel: argument set does not match kernel signature")

// Variant selects the fractal a kernel computes.
type Variant uint8

const (
	// Mandelbrot iterates z from 0 with c taken from the pixel.
	Mandelbrot Variant = iota

	// Julia iterates z from the pixel with a fixed seed c.
	Julia
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case Mandelbrot:
		return "mandelbrot"
	case Julia:
		return "julia"
	default:
		return fmt.Sprintf("Variant(%d)", v)
	}
}

// ArgKind is the type of one positional kernel argument.
type ArgKind uint8

const (
	// ArgBuffer is a device buffer bound to a fixed slot.
	ArgBuffer ArgKind = iota
	// ArgUint is a 32-bit unsigned scalar.
	ArgUint
	// ArgFloat is a real scalar, narrowed to 32 bits in the uniform block.
	ArgFloat
)

// String returns the kind name.
func (k ArgKind) String() string {
	switch k {
	case ArgBuffer:
		return "buffer"
	case ArgUint:
		return "uint"
	case ArgFloat:
		return "float"
	default:
		return fmt.Sprintf("ArgKind(%d)", k)
	}
}

// Slot is the binding index of a buffer argument.
type Slot uint8

// Binding slots. SlotUniforms holds the packed scalar arguments.
const (
	SlotOutput Slot = iota
	SlotWorkQueue
	SlotCursor
	SlotUniforms
)

// Arg is one positional argument of a dispatch.
type Arg struct {
	Name  string
	Kind  ArgKind
	Slot  Slot    // ArgBuffer only
	Uint  uint32  // ArgUint only
	Float float64 // ArgFloat only
}

// ArgSpec describes one parameter of a kernel signature.
type ArgSpec struct {
	Name string
	Kind ArgKind
}

// Signature is the versioned parameter list of a kernel variant.
type Signature struct {
	Variant Variant
	Entry   string
	Version int
	Params  []ArgSpec
}

var mandelbrotParams = []ArgSpec{
	{"output", ArgBuffer},
	{"width", ArgUint},
	{"height", ArgUint},
	{"zoom", ArgFloat},
	{"centerX", ArgFloat},
	{"centerY", ArgFloat},
	{"maxIterations", ArgUint},
	{"workQueue", ArgBuffer},
	{"cursor", ArgBuffer},
	{"coloring", ArgUint},
}

var juliaParams = append(append([]ArgSpec(nil), mandelbrotParams...),
	ArgSpec{"seedX", ArgFloat},
	ArgSpec{"seedY", ArgFloat},
)

// SignatureFor returns the signature of the given variant.
func SignatureFor(v Variant) Signature {
	params := mandelbrotParams
	if v == Julia {
		params = juliaParams
	}
	return Signature{Variant: v, Entry: EntryPoint, Version: ABIVersion, Params: params}
}

// Args is an ordered argument set produced by a Binder.
type Args struct {
	Variant Variant
	Version int
	List    []Arg
}

// Check verifies a against sig position by position.
func (a Args) Check(sig Signature) error {
	if a.Variant != sig.Variant {
		return fmt.Errorf("%w: variant %s, kernel %s", ErrABIMismatch, a.Variant, sig.Variant)
	}
	if a.Version != sig.Version {
		return fmt.Errorf("%w: ABI version %d, kernel %d", ErrABIMismatch, a.Version, sig.Version)
	}
	if len(a.List) != len(sig.Params) {
		return fmt.Errorf("%w: %d arguments, kernel takes %d", ErrABIMismatch, len(a.List), len(sig.Params))
	}
	for i, p := range sig.Params {
		got := a.List[i]
		if got.Name != p.Name || got.Kind != p.Kind {
			return fmt.Errorf("%w: argument %d is %s %s, want %s %s",
				ErrABIMismatch, i, got.Name, got.Kind, p.Name, p.Kind)
		}
	}
	return nil
}

// Uniforms packs the scalar arguments in order into a little-endian block
// padded to a multiple of 16 bytes, the layout of the kernel's Params struct.
func (a Args) Uniforms() []byte {
	words := make([]uint32, 0, len(a.List))
	for _, arg := range a.List {
		switch arg.Kind {
		case ArgUint:
			words = append(words, arg.Uint)
		case ArgFloat:
			words = append(words, math.Float32bits(float32(arg.Float)))
		}
	}
	for len(words)%4 != 0 {
		words = append(words, 0)
	}

	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// Params decodes the scalar arguments back into host parameters.
// Backends that evaluate the kernel on the CPU read their inputs through it.
func (a Args) Params() Params {
	var p Params
	for _, arg := range a.List {
		switch arg.Name {
		case "width":
			p.Width = arg.Uint
		case "height":
			p.Height = arg.Uint
		case "zoom":
			p.Zoom = arg.Float
		case "centerX":
			p.CenterX = arg.Float
		case "centerY":
			p.CenterY = arg.Float
		case "maxIterations":
			p.MaxIterations = arg.Uint
		case "coloring":
			p.Coloring = Coloring(arg.Uint)
		case "seedX":
			p.SeedX = arg.Float
		case "seedY":
			p.SeedY = arg.Float
		}
	}
	p.Variant = a.Variant
	return p
}

// Pixels returns width*height of the argument set.
func (a Args) Pixels() int {
	p := a.Params()
	return int(p.Width) * int(p.Height)
}
