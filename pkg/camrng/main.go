package camrng

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-camrng/internal/config"
	"github.com/teslashibe/go-camrng/internal/log"
	"github.com/teslashibe/go-camrng/pkg/camera"
	"github.com/teslashibe/go-camrng/pkg/rng"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps a Run error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, rng.ErrInvalidBounds), errors.Is(err, config.ErrUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Main is the whole camrng command: it parses args, runs the flow against
// opener and returns the exit status. Results and "Error: ..." lines go to
// stdout; logs, warnings and flag diagnostics go to stderr.
func Main(args []string, stdout, stderr io.Writer, opener camera.Opener) int {
	cfg, err := config.Parse(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		// The flag package has already reported syntax errors on stderr.
		if errors.Is(err, rng.ErrInvalidBounds) || errors.Is(err, config.ErrUsage) {
			fmt.Fprintf(stdout, "Error: %v\n", err)
		}
		return ExitUsage
	}

	level := "warn"
	if cfg.Debug {
		level = "debug"
	}
	logger := log.New(stderr, level).With("component", "camrng")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := New(cfg,
		WithOpener(opener),
		WithOutput(stdout),
		WithErrOutput(stderr),
		WithLogger(logger),
	)
	if err := app.Run(ctx); err != nil {
		logger.Debug("run failed", "error", err)
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}
