// Package web serves the controller dashboard: status and timing JSON,
// virtual touch input, a telemetry websocket, and a teleop websocket.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
	"github.com/teslashibe/go-hexapod/pkg/hexapod"
	"github.com/teslashibe/go-hexapod/pkg/hub"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// DefaultTelemetryInterval bounds how often snapshots are broadcast.
const DefaultTelemetryInterval = 100 * time.Millisecond

// Controller is what the dashboard needs from the robot.
type Controller interface {
	Snapshot() hexapod.Snapshot
	Stats() robot.StatsSnapshot
	InjectTouch(pattern int) error
	QueueMove(req robot.MoveRequest) error
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	ctrl   Controller
	clock  clock.Clock
	logger *slog.Logger

	// Hubs for websocket broadcast
	telemetryHub *hub.Hub
	teleopHub    *hub.Hub

	interval time.Duration
	mu       sync.Mutex
	lastSent time.Time
	lastMode string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the clock used for telemetry throttling.
func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithTelemetryInterval sets the minimum gap between broadcasts.
func WithTelemetryInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

// NewServer creates a dashboard for ctrl listening on addr.
func NewServer(addr string, ctrl Controller, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		ctrl:     ctrl,
		clock:    clock.Real{},
		interval: DefaultTelemetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.Or(s.logger).With("component", "web")
	s.telemetryHub = hub.New("telemetry", hub.WithLogger(s.logger))
	s.teleopHub = hub.New("teleop", hub.WithLogger(s.logger), hub.WithHandler(s.handleTeleopMessage))

	app := fiber.New(fiber.Config{
		AppName:               "Hexapod Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Post("/touch/:pattern", s.handleTouch)
	api.Post("/move", s.handleMove)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/teleop", websocket.New(s.handleTeleopWS))

	s.app = app
	return s
}

// Start runs the hubs and serves on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", s.addr)
	s.startHubs()
	return s.app.Listen(s.addr)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	s.startHubs()
	return s.app.Listener(ln)
}

func (s *Server) startHubs() {
	go s.telemetryHub.Run()
	go s.teleopHub.Run()
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown stops the listener and the hubs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.telemetryHub.Stop()
	s.teleopHub.Stop()
	return s.app.ShutdownWithContext(ctx)
}

// PublishSnapshot broadcasts a snapshot to telemetry clients. Calls are
// throttled to the telemetry interval, except that a mode change is always
// sent. Timing statistics are refreshed only for snapshots that are sent.
// It never blocks.
func (s *Server) PublishSnapshot(snap hexapod.Snapshot) {
	now := s.clock.Now()
	mode := snap.Mode.String()

	s.mu.Lock()
	due := s.lastSent.IsZero() || now.Sub(s.lastSent) >= s.interval || mode != s.lastMode
	if due {
		s.lastSent = now
		s.lastMode = mode
	}
	s.mu.Unlock()
	if !due {
		return
	}

	snap.Stats = s.ctrl.Stats()
	msg, err := telemetryMessage(snap)
	if err != nil {
		s.logger.Warn("encode telemetry", "error", err)
		return
	}
	if err := s.telemetryHub.BroadcastJSON(msg); err != nil {
		s.logger.Warn("broadcast telemetry", "error", err)
	}
}

// TelemetryHub returns the telemetry hub for external use
func (s *Server) TelemetryHub() *hub.Hub {
	return s.telemetryHub
}
