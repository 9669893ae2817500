// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// Coloring selects the palette mapping applied to the escape count.
type Coloring uint32

const (
	// ColoringSmooth uses the fractional escape count with a slow palette.
	ColoringSmooth Coloring = iota

	// ColoringBanded uses the integer escape count with a fast palette,
	// producing visible iteration bands.
	ColoringBanded
)

// String returns the coloring name.
func (c Coloring) String() string {
	switch c {
	case ColoringSmooth:
		return "smooth"
	case ColoringBanded:
		return "banded"
	default:
		return fmt.Sprintf("Coloring(%d)", c)
	}
}

// Next returns the coloring that follows c in toggle order.
func (c Coloring) Next() Coloring {
	return (c + 1) % 2
}

// Params are the host-side values of one dispatch.
type Params struct {
	Variant       Variant
	Width, Height uint32
	Zoom          float64
	CenterX       float64
	CenterY       float64
	MaxIterations uint32
	Coloring      Coloring
	SeedX, SeedY  float64 // Julia only
}

// Binder turns host parameters into the ordered argument set of one kernel
// variant.
type Binder interface {
	Variant() Variant
	Bind(p Params) Args
}

// MandelbrotBinder binds the ten Mandelbrot arguments.
type MandelbrotBinder struct{}

// Variant returns Mandelbrot.
func (MandelbrotBinder) Variant() Variant { return Mandelbrot }

// Bind returns the Mandelbrot argument set.
func (MandelbrotBinder) Bind(p Params) Args {
	return Args{Variant: Mandelbrot, Version: ABIVersion, List: baseArgs(p)}
}

// JuliaBinder binds the Mandelbrot arguments followed by the seed.
type JuliaBinder struct{}

// Variant returns Julia.
func (JuliaBinder) Variant() Variant { return Julia }

// Bind returns the Julia argument set.
func (JuliaBinder) Bind(p Params) Args {
	list := append(baseArgs(p),
		Arg{Name: "seedX", Kind: ArgFloat, Float: p.SeedX},
		Arg{Name: "seedY", Kind: ArgFloat, Float: p.SeedY},
	)
	return Args{Variant: Julia, Version: ABIVersion, List: list}
}

func baseArgs(p Params) []Arg {
	list := make([]Arg, 0, len(juliaParams))
	return append(list,
		Arg{Name: "output", Kind: ArgBuffer, Slot: SlotOutput},
		Arg{Name: "width", Kind: ArgUint, Uint: p.Width},
		Arg{Name: "height", Kind: ArgUint, Uint: p.Height},
		Arg{Name: "zoom", Kind: ArgFloat, Float: p.Zoom},
		Arg{Name: "centerX", Kind: ArgFloat, Float: p.CenterX},
		Arg{Name: "centerY", Kind: ArgFloat, Float: p.CenterY},
		Arg{Name: "maxIterations", Kind: ArgUint, Uint: p.MaxIterations},
		Arg{Name: "workQueue", Kind: ArgBuffer, Slot: SlotWorkQueue},
		Arg{Name: "cursor", Kind: ArgBuffer, Slot: SlotCursor},
		Arg{Name: "coloring", Kind: ArgUint, Uint: uint32(p.Coloring)},
	)
}

// BinderFor returns the binder of a variant.
func BinderFor(v Variant) Binder {
	if v == Julia {
		return JuliaBinder{}
	}
	return MandelbrotBinder{}
}
