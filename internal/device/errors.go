package device

import (
	"errors"
	"fmt"
)

// Device errors. All of them are fatal to the frame loop.
var (
	// ErrNoDevice is returned when no backend can provide a device.
	ErrNoDevice = errors.New("device: no compute device available")

	// ErrDeviceInit is returned when a device was found but could not be
	// initialized.
	ErrDeviceInit = errors.New("device: initialization failed")

	// ErrTransfer is returned when a host/device copy or a dispatch fails.
	ErrTransfer = errors.New("device: transfer failed")

	// ErrPresentation is returned when a frame could not be shown.
	ErrPresentation = errors.New("device: presentation failed")

	// ErrResourceExhausted is returned when an allocation is rejected.
	ErrResourceExhausted = errors.New("device: resources exhausted")

	// ErrReleased is returned when using a queue or buffer set after Release.
	ErrReleased = errors.New("device: use after release")
)

// BackendNotFoundError is returned when a requested backend is not
// registered.
type BackendNotFoundError struct {
	Name      string
	Available []string
}

func (e *BackendNotFoundError) Error() string {
	return fmt.Sprintf("device: backend %q not registered (have %v)", e.Name, e.Available)
}

// Unwrap returns ErrNoDevice.
func (e *BackendNotFoundError) Unwrap() error { return ErrNoDevice }
