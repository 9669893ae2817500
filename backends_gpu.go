//go:build !nogpu

package fractal

import (
	_ "github.com/gogpu/fractal/internal/device/gpu" // registers the gpu backend
)
