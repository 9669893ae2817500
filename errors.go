package fractal

import (
	"errors"

	"github.com/gogpu/fractal/internal/device"
	"github.com/gogpu/fractal/internal/kernel"
)

// Errors reported by the device layer. All of them except ErrPresentation
// end the frame loop.
var (
	// ErrNoDevice is returned when no backend can provide a device.
	ErrNoDevice = device.ErrNoDevice

	// ErrDeviceInit is returned when a device was found but could not be
	// initialized.
	ErrDeviceInit = device.ErrDeviceInit

	// ErrTransfer is returned when a host/device copy or a dispatch fails.
	ErrTransfer = device.ErrTransfer

	// ErrPresentation is returned when a frame could not be shown.
	ErrPresentation = device.ErrPresentation

	// ErrResourceExhausted is returned when a buffer allocation is rejected.
	ErrResourceExhausted = device.ErrResourceExhausted
)

var (
	// ErrInvalidConfig is returned by NewRenderer for an unusable Config.
	ErrInvalidConfig = errors.New("fractal: invalid configuration")

	// ErrClosed is returned when using a Renderer after Close.
	ErrClosed = errors.New("fractal: renderer closed")

	// ErrUnknownFormat is returned for snapshot paths with an unsupported
	// extension.
	ErrUnknownFormat = errors.New("fractal: unknown image format")
)

// BuildError reports a kernel that failed to compile. Log holds the
// compiler diagnostic.
type BuildError = kernel.BuildError

// IsFatal reports whether err must end the frame loop. Presentation failures
// are the only recoverable errors.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrPresentation)
}
