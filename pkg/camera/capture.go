package camera

import (
	"context"
	"image"
	"log/slog"
)

// Opener opens capture devices by index.
type Opener interface {
	// Open acquires the device. The returned session must be closed.
	Open(device int) (Session, error)
}

// Session is an open capture device.
type Session interface {
	// SetResolution requests a capture size. Devices may ignore it.
	// A dimension <= 0 leaves that dimension at the device default.
	SetResolution(width, height int)

	// Read returns the next frame. The returned image is owned by the caller.
	Read() (image.Image, error)

	// Close releases the device.
	Close() error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(device int) (Session, error)

// Open calls f(device).
func (f OpenerFunc) Open(device int) (Session, error) {
	return f(device)
}

// Capture opens the configured device, discards cfg.Warmup frames, reads one
// frame and releases the device on every path.
//
// If ctx is cancelled or cfg.Timeout elapses first, Capture returns a
// CaptureError wrapping the context error. A read that is already blocked in
// the backend keeps the device until it returns and then releases it.
func Capture(ctx context.Context, opener Opener, cfg Config, logger *slog.Logger) (image.Image, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := captureOnce(opener, cfg, logger)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		logger.Warn("capture abandoned", "device", cfg.Device, "error", ctx.Err())
		return nil, &CaptureError{Device: cfg.Device, Kind: ErrFrameUnavailable, Err: ctx.Err()}
	}
}

func captureOnce(opener Opener, cfg Config, logger *slog.Logger) (image.Image, error) {
	sess, err := opener.Open(cfg.Device)
	if err != nil {
		return nil, &CaptureError{Device: cfg.Device, Kind: ErrDeviceUnavailable, Err: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("failed to release camera", "device", cfg.Device, "error", err)
		}
	}()

	if cfg.Width > 0 || cfg.Height > 0 {
		sess.SetResolution(cfg.Width, cfg.Height)
	}

	// Warm-up frames are read only to let exposure settle; failures are ignored.
	for i := 0; i < cfg.Warmup; i++ {
		if _, err := sess.Read(); err != nil {
			logger.Debug("warm-up read failed", "device", cfg.Device, "frame", i, "error", err)
		}
	}

	img, err := sess.Read()
	if err != nil {
		return nil, &CaptureError{Device: cfg.Device, Kind: ErrFrameUnavailable, Err: err}
	}
	if img == nil || img.Bounds().Empty() {
		return nil, &CaptureError{Device: cfg.Device, Kind: ErrFrameUnavailable, Err: ErrNoFrame}
	}

	b := img.Bounds()
	logger.Debug("frame captured", "device", cfg.Device, "width", b.Dx(), "height", b.Dy(), "warmup", cfg.Warmup)
	return img, nil
}
