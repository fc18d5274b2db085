// Package web serves camera-seeded rolls over HTTP and websocket.
package web

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/teslashibe/go-camrng/pkg/camera"
	"github.com/teslashibe/go-camrng/pkg/camrng"
	"github.com/teslashibe/go-camrng/pkg/hub"
	"github.com/teslashibe/go-camrng/pkg/moments"
	"github.com/teslashibe/go-camrng/pkg/seed"
)

// Version is reported by /health.
const Version = "1.0.0"

// Config holds server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Camera is the initial capture configuration; PATCH /api/camera
	// changes it at runtime.
	Camera camera.Config

	// MaxCount caps how many values one roll may request.
	MaxCount int

	// Debug enables request logging.
	Debug bool
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:     ":8080",
		Camera:   camera.DefaultConfig(),
		MaxCount: 1000,
	}
}

// Server exposes the capture/seed/generate flow over HTTP.
type Server struct {
	app    *fiber.App
	cfg    Config
	opener camera.Opener
	camera *camera.Manager
	store  moments.Store
	logger *slog.Logger

	// feed pushes journal changes to /ws/moments subscribers.
	feed     *hub.Hub
	stopFeed context.CancelFunc

	// Serializes device access; one capture at a time.
	camMu sync.Mutex
}

// NewServer creates the server. store may be nil to disable journaling.
func NewServer(cfg Config, opener camera.Opener, store moments.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultConfig().MaxCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		opener:   opener,
		camera:   camera.NewManager(cfg.Camera),
		store:    store,
		logger:   log,
		feed:     hub.New(log),
		stopFeed: cancel,
	}
	go s.feed.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               "camrng-web",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)

	// API routes
	api := app.Group("/api")
	api.Get("/roll", s.handleRoll)
	api.Get("/coin-flip", s.handleCoinFlip)
	api.Get("/lucky-digits", s.handleLuckyDigits)
	api.Get("/moments", s.handleListMoments)
	api.Patch("/moments/:id", s.handleAnnotateMoment)
	api.Get("/camera", s.handleGetCamera)
	api.Patch("/camera", s.handleUpdateCamera)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/roll", websocket.New(s.handleRollWS))
	app.Get("/ws/moments", websocket.New(s.handleMomentsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address. It blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("camrng web listening", "addr", s.cfg.Addr, "device", s.camera.Config().Device)
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.stopFeed()
	return s.app.Shutdown()
}

// captureSeed takes the camera lock and derives a seed from a fresh frame.
func (s *Server) captureSeed(ctx context.Context) (seed.Seed, image.Image, error) {
	if s.opener == nil {
		return seed.Seed{}, nil, camrng.ErrNoOpener
	}
	s.camMu.Lock()
	defer s.camMu.Unlock()
	return camrng.CaptureSeed(ctx, s.opener, s.camera.Config(), s.logger)
}

// record journals a moment when a store is configured and announces it on
// the feed.
func (s *Server) record(m *moments.Moment) string {
	if s.store == nil {
		return ""
	}
	if err := s.store.Add(m); err != nil {
		s.logger.Warn("failed to record moment", "mode", m.Mode, "error", err)
		return ""
	}
	s.publish(EventMoment, m)
	return m.ID
}

func (s *Server) publish(typ string, m *moments.Moment) {
	if err := s.feed.Publish(hub.Event{Type: typ, Data: m}); err != nil {
		s.logger.Warn("failed to publish event", "type", typ, "error", err)
	}
}
