// camrng-web - serve camera-seeded rolls over HTTP and websocket
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/teslashibe/go-camrng/internal/config"
	"github.com/teslashibe/go-camrng/internal/log"
	"github.com/teslashibe/go-camrng/pkg/camera/opencv"
	"github.com/teslashibe/go-camrng/pkg/moments"
	"github.com/teslashibe/go-camrng/pkg/web"
)

func main() {
	cfg, journal := parseFlags()

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.With("component", "camrng-web")

	var store moments.Store
	var err error
	switch journal {
	case "off":
	case "":
		store, err = moments.NewDefaultStore(logger)
	default:
		store, err = moments.NewJSONStore(journal, logger)
	}
	if err != nil {
		log.Error("failed to open journal", "path", journal, "error", err)
		os.Exit(1)
	}

	srv := web.NewServer(cfg, opencv.NewOpener(), store, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Warn("shutdown failed", "error", err)
		}
	}
}

// parseFlags parses command line flags and returns the server configuration
// and the journal path ("off" disables journaling).
func parseFlags() (web.Config, string) {
	cfg := web.DefaultConfig()

	port := flag.Int("port", 8080, "HTTP port (overrides PORT env var)")
	device := flag.Int("device", cfg.Camera.Device, "Camera device index (or set "+config.EnvDevice+")")
	warmup := flag.Int("warmup", cfg.Camera.Warmup, "Frames to discard before capture")
	width := flag.Int("width", 0, "Requested frame width")
	height := flag.Int("height", 0, "Requested frame height")
	preset := flag.String("preset", "", "Resolution preset: vga, 720p, 1080p, 4k")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-capture timeout")
	maxCount := flag.Int("max-count", cfg.MaxCount, "Largest count one roll may request")
	journal := flag.String("journal", "", "Moments journal path, \"off\" to disable (default ~/.camrng/moments.json)")
	debug := flag.Bool("debug", false, "Enable debug logging and request logs")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg.Debug, cfg.MaxCount = *debug, *maxCount
	cfg.Camera.Device, cfg.Camera.Warmup = *device, *warmup
	cfg.Camera.Width, cfg.Camera.Height = *width, *height
	cfg.Camera.Timeout = *timeout

	// Environment variables
	cfg.Addr = ":" + strconv.Itoa(*port)
	if p := os.Getenv("PORT"); p != "" && !set["port"] {
		cfg.Addr = ":" + p
	}
	if d := os.Getenv(config.EnvDevice); d != "" && !set["device"] {
		if n, err := strconv.Atoi(d); err == nil {
			cfg.Camera.Device = n
		}
	}
	j := *journal
	if env := os.Getenv(config.EnvJournal); env != "" && !set["journal"] {
		j = env
	}

	if *preset != "" {
		if err := cfg.Camera.ApplyPreset(*preset); err != nil {
			log.Error("invalid preset", "preset", *preset, "error", err)
			os.Exit(2)
		}
	}
	if err := cfg.Camera.Validate(); err != nil {
		log.Error("invalid camera settings", "error", err)
		os.Exit(2)
	}
	return cfg, j
}
