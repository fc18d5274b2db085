// Package camera captures single still frames from a capture device.
//
// The native capture library sits behind the Opener and Session interfaces so
// the capture sequence can be exercised with MockOpener in tests.
package camera

import (
	"errors"
	"time"
)

// Defaults for a capture.
const (
	DefaultDevice = 0
	DefaultWarmup = 5
)

// Config holds the parameters of one capture.
type Config struct {
	// Device is the capture device index.
	Device int `json:"device"`

	// Warmup is how many frames are read and discarded first so
	// auto-exposure and focus can settle. Zero or less skips warm-up.
	Warmup int `json:"warmup"`

	// Requested resolution. Zero keeps the device default.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Timeout bounds the whole capture. Zero waits forever.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the capture defaults: device 0, five warm-up frames,
// device resolution.
func DefaultConfig() Config {
	return Config{
		Device: DefaultDevice,
		Warmup: DefaultWarmup,
	}
}

// Validate checks that the config values are usable.
func (c Config) Validate() error {
	var errs []error
	if c.Device < 0 {
		errs = append(errs, errors.New("device must be >= 0"))
	}
	if c.Width < 0 || c.Width > SensorMaxWidth {
		errs = append(errs, errors.New("width must be between 0 and 7680"))
	}
	if c.Height < 0 || c.Height > SensorMaxHeight {
		errs = append(errs, errors.New("height must be between 0 and 4320"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be >= 0"))
	}
	return errors.Join(errs...)
}
