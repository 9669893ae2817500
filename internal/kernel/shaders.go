package kernel

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/common.wgsl
var commonSource string

//go:embed shaders/mandelbrot.wgsl
var mandelbrotSource string

//go:embed shaders/julia.wgsl
var juliaSource string

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// BuildError reports a kernel that failed to compile. Log holds the
// compiler diagnostic.
type BuildError struct {
	Kernel string
	Log    string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("kernel: build %s failed: %s", e.Kernel, e.Log)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Program is a compiled kernel variant.
type Program struct {
	Variant Variant
	WGSL    string
	SPIRV   []uint32
}

// Source returns the complete WGSL source of a variant.
func Source(v Variant) string {
	body := mandelbrotSource
	if v == Julia {
		body = juliaSource
	}
	return commonSource + "\n" + body
}

// Compile translates the WGSL source of a variant to SPIR-V.
// Failures are returned as *BuildError.
func Compile(v Variant) (*Program, error) {
	return compileSource(v, Source(v))
}

func compileSource(v Variant, src string) (*Program, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, &BuildError{Kernel: v.String(), Log: err.Error(), Err: err}
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, &BuildError{
			Kernel: v.String(),
			Log:    fmt.Sprintf("malformed SPIR-V output of %d bytes", len(spirvBytes)),
		}
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return &Program{Variant: v, WGSL: src, SPIRV: words}, nil
}
