// Package config parses camrng command-line flags into an immutable Config.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/teslashibe/go-camrng/pkg/camera"
	"github.com/teslashibe/go-camrng/pkg/rng"
	"github.com/teslashibe/go-camrng/pkg/seed"
)

// Environment variables consulted when the matching flag is not given.
const (
	EnvDevice  = "CAMRNG_DEVICE"
	EnvJournal = "CAMRNG_JOURNAL"
)

// Defaults.
const (
	DefaultCount = 5
)

// ErrUsage marks argument combinations that are rejected before any capture.
var ErrUsage = errors.New("invalid arguments")

// Config is the validated set of CLI inputs. It is built once by Parse and
// passed down by value.
type Config struct {
	Camera camera.Config

	// Preset names a resolution preset applied to unset dimensions.
	Preset string

	// SavePath is where the captured frame is written. Empty with SaveFrame
	// false means the frame is not written.
	SavePath  string
	SaveFrame bool

	Count    int
	Lower    int64
	Upper    int64
	CoinFlip bool

	// Seed, when set, is a decimal seed used instead of capturing a frame.
	Seed string

	// Journal is the moments journal path. Empty disables journaling.
	Journal string

	Debug bool
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		Camera: camera.DefaultConfig(),
		Count:  DefaultCount,
		Lower:  rng.DefaultLower,
		Upper:  rng.DefaultUpper,
	}
}

// Parse reads args (without the program name). Flag syntax errors are
// reported on output by the flag package; validation errors are returned for
// the caller to print. -h returns flag.ErrHelp.
func Parse(args []string, output io.Writer) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("camrng", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Generate random numbers seeded from a camera frame.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Usage: camrng [flags]")
		fs.PrintDefaults()
	}

	fs.IntVar(&cfg.Camera.Device, "device", cfg.Camera.Device, "Camera device index (or set "+EnvDevice+")")
	fs.IntVar(&cfg.Camera.Warmup, "warmup", cfg.Camera.Warmup, "Frames to discard before capturing")
	fs.IntVar(&cfg.Camera.Width, "width", 0, "Capture width (0 = device default)")
	fs.IntVar(&cfg.Camera.Height, "height", 0, "Capture height (0 = device default)")
	fs.DurationVar(&cfg.Camera.Timeout, "timeout", 0, "Give up on the capture after this long (0 = wait forever)")
	fs.StringVar(&cfg.Preset, "preset", "", fmt.Sprintf("Resolution preset %v for unset width/height", camera.PresetNames()))
	fs.StringVar(&cfg.SavePath, "save", "", "Optional path to save the captured frame")
	fs.BoolVar(&cfg.SaveFrame, "save-frame", false, "Save the captured frame to "+camera.DefaultSavePath)
	fs.IntVar(&cfg.Count, "count", cfg.Count, "How many random numbers to output")
	fs.Int64Var(&cfg.Lower, "lower", cfg.Lower, "Lower bound (inclusive)")
	fs.Int64Var(&cfg.Upper, "upper", cfg.Upper, "Upper bound (exclusive)")
	fs.BoolVar(&cfg.CoinFlip, "coin-flip", false, "Also output a heads/tails result for each number")
	fs.StringVar(&cfg.Seed, "seed", "", "Use this decimal seed instead of capturing a frame")
	fs.StringVar(&cfg.Journal, "journal", "", "Record the run in this moments journal (or set "+EnvJournal+")")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging on stderr")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(output, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return Config{}, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Environment variables fill in flags that were not given
	if !set["device"] {
		if v := os.Getenv(EnvDevice); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("%w: %s=%q is not an integer", ErrUsage, EnvDevice, v)
			}
			cfg.Camera.Device = n
		}
	}
	if !set["journal"] {
		cfg.Journal = os.Getenv(EnvJournal)
	}

	if err := cfg.Camera.ApplyPreset(cfg.Preset); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration. Bound ordering is checked first so that
// upper <= lower is always reported as rng.ErrInvalidBounds.
//
// Device, resolution and count are passed through as given: a resolution is
// only a request the device may ignore (values <= 0 are not sent), and a
// count <= 0 prints just the seed line.
func (c Config) Validate() error {
	if err := rng.CheckBounds(c.Lower, c.Upper); err != nil {
		return err
	}
	if c.Camera.Timeout < 0 {
		return fmt.Errorf("%w: --timeout must be >= 0", ErrUsage)
	}
	if c.Seed != "" {
		if _, err := seed.Parse(c.Seed); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
	}
	return nil
}

// ResolvedSavePath returns where the frame should be written, or "" when the
// frame is not saved.
func (c Config) ResolvedSavePath() string {
	if c.SavePath != "" {
		return c.SavePath
	}
	if c.SaveFrame {
		return camera.DefaultSavePath
	}
	return ""
}
