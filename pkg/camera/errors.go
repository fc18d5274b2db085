package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why a capture failed.
var (
	// ErrDeviceUnavailable is returned when the device cannot be opened.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")

	// ErrFrameUnavailable is returned when no frame could be read.
	ErrFrameUnavailable = errors.New("camera: frame unavailable")

	// ErrNoFrame is returned by sessions whose read produced no data.
	ErrNoFrame = errors.New("camera: empty frame")

	// ErrUnknownPreset is returned for an unrecognised resolution preset.
	ErrUnknownPreset = errors.New("camera: unknown preset")
)

// CaptureError reports a failed capture on a specific device.
type CaptureError struct {
	// Device is the index of the device that failed.
	Device int

	// Kind is ErrDeviceUnavailable or ErrFrameUnavailable.
	Kind error

	// Err is the underlying backend error, if any.
	Err error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	var msg string
	switch e.Kind {
	case ErrDeviceUnavailable:
		msg = fmt.Sprintf("unable to open camera device %d", e.Device)
	case ErrFrameUnavailable:
		msg = fmt.Sprintf("failed to capture a frame from camera device %d", e.Device)
	default:
		msg = fmt.Sprintf("camera device %d: %v", e.Device, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the backend error to errors.Is.
func (e *CaptureError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
