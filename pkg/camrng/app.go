// Package camrng runs the capture, seed and generate flow behind the camrng
// command.
package camrng

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/teslashibe/go-camrng/internal/config"
	"github.com/teslashibe/go-camrng/pkg/camera"
	"github.com/teslashibe/go-camrng/pkg/moments"
	"github.com/teslashibe/go-camrng/pkg/rng"
	"github.com/teslashibe/go-camrng/pkg/seed"
)

// ErrNoOpener is returned when a capture is needed but no camera backend
// was configured.
var ErrNoOpener = errors.New("camrng: no camera backend configured")

// App runs one camrng invocation.
type App struct {
	cfg    config.Config
	opener camera.Opener
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
	store  moments.Store
}

// Option configures an App.
type Option func(*App)

// WithOpener sets the camera backend.
func WithOpener(o camera.Opener) Option {
	return func(a *App) {
		a.opener = o
	}
}

// WithOutput sets where the seed and values are printed.
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.out = w
	}
}

// WithErrOutput sets where warnings are printed.
func WithErrOutput(w io.Writer) Option {
	return func(a *App) {
		a.errOut = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithStore sets the moments journal, overriding cfg.Journal.
func WithStore(s moments.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// New creates an App for cfg.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run validates the config, obtains a seed, optionally saves the frame,
// prints the seed line and the generated values, and journals the result.
// Nothing is printed if the seed cannot be obtained.
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	sd, frame, err := a.acquire(ctx)
	if err != nil {
		return err
	}

	photoPath := a.saveFrame(frame)

	gen, err := rng.New(sd, a.cfg.Lower, a.cfg.Upper)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(a.out, "Seed (sha256 int): %s\n", sd); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	journaling := a.cfg.Journal != "" || a.store != nil
	var results []string
	for v := range gen.Values(a.cfg.Count) {
		line := rng.Format(v, a.cfg.CoinFlip)
		if _, err := fmt.Fprintln(a.out, line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if journaling {
			results = append(results, line)
		}
	}

	if journaling {
		a.journal(sd, results, photoPath)
	}
	return nil
}

// acquire returns the injected seed, or captures a frame and derives one.
func (a *App) acquire(ctx context.Context) (seed.Seed, image.Image, error) {
	if a.cfg.Seed != "" {
		sd, err := seed.Parse(a.cfg.Seed)
		if err != nil {
			return seed.Seed{}, nil, fmt.Errorf("%w: %v", config.ErrUsage, err)
		}
		a.logger.Debug("using injected seed")
		return sd, nil, nil
	}
	if a.opener == nil {
		return seed.Seed{}, nil, ErrNoOpener
	}
	return CaptureSeed(ctx, a.opener, a.cfg.Camera, a.logger)
}

// CaptureSeed captures one frame and derives its seed.
func CaptureSeed(ctx context.Context, opener camera.Opener, cfg camera.Config, logger *slog.Logger) (seed.Seed, image.Image, error) {
	if logger == nil {
		logger = slog.Default()
	}
	frame, err := camera.Capture(ctx, opener, cfg, logger)
	if err != nil {
		return seed.Seed{}, nil, err
	}
	sd, err := seed.Derive(frame)
	if err != nil {
		return seed.Seed{}, nil, err
	}
	logger.Debug("seed derived", "device", cfg.Device, "sha256", sd.Hex())
	return sd, frame, nil
}

// saveFrame writes the frame if requested and returns the written path.
// Failures are warnings: the numbers are still produced.
func (a *App) saveFrame(frame image.Image) string {
	path := a.cfg.ResolvedSavePath()
	if path == "" {
		return ""
	}
	if frame == nil {
		a.warn("no frame was captured, not saving", "path", path)
		return ""
	}
	if err := camera.SaveFrame(path, frame); err != nil {
		a.warn("failed to save frame", "path", path, "error", err)
		return ""
	}
	a.logger.Info("frame saved", "path", path)
	return path
}

func (a *App) journal(sd seed.Seed, results []string, photoPath string) {
	store := a.store
	if store == nil {
		s, err := moments.NewJSONStore(a.cfg.Journal, a.logger)
		if err != nil {
			a.warn("failed to open journal", "path", a.cfg.Journal, "error", err)
			return
		}
		store = s
	}

	mode := moments.ModeNumbers
	if a.cfg.CoinFlip {
		mode = moments.ModeCoinFlip
	}
	m := &moments.Moment{
		Mode:        mode,
		Seed:        sd.String(),
		ResultTitle: fmt.Sprintf("%d numbers in [%d, %d)", a.cfg.Count, a.cfg.Lower, a.cfg.Upper),
		ResultValue: strings.Join(results, ", "),
		PhotoPath:   photoPath,
	}
	if err := store.Add(m); err != nil {
		a.warn("failed to record moment", "error", err)
		return
	}
	a.logger.Info("moment recorded", "id", m.ID)
}

// warn logs msg and echoes it on the error output.
func (a *App) warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
	var detail string
	for i := 0; i+1 < len(args); i += 2 {
		detail += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	fmt.Fprintf(a.errOut, "Warning: %s%s\n", msg, detail)
}
