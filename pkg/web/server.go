// Package web exposes the preload orchestrator over HTTP and websocket.
// It is thin transport glue: JSON state in, readiness events out. No
// rendering happens here.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/fukivoice/fukivoice/pkg/hub"
	"github.com/fukivoice/fukivoice/pkg/preload"
	"github.com/fukivoice/fukivoice/pkg/textunit"
)

// Server is the HTTP/websocket surface of the preload daemon.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	// baseCtx is the long-lived context batches run under; request
	// contexts end when the handler returns, batches must not.
	baseCtx context.Context

	store  *textunit.Store
	orch   *preload.Orchestrator
	events *hub.Hub
}

// NewServer creates the server and wires its routes.
func NewServer(
	baseCtx context.Context,
	addr string,
	store *textunit.Store,
	orch *preload.Orchestrator,
	events *hub.Hub,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:    addr,
		logger:  logger.With("component", "web"),
		baseCtx: baseCtx,
		store:   store,
		orch:    orch,
		events:  events,
	}

	app := fiber.New(fiber.Config{
		AppName:               "fukivoice",
		DisableStartupMessage: true,
	})

	// CORS for the local viewer
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/units", s.handleGetUnits)
	api.Put("/units", s.handlePutUnits)
	api.Post("/preload", s.handlePreload)
	api.Post("/cache/clear", s.handleCacheClear)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start runs the event hub and listens on the configured address.
// It blocks until the listener stops.
func (s *Server) Start() error {
	go s.events.Run()
	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// handleEventsWS attaches a websocket connection to the event hub.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	client := hub.NewClient(s.events, conn)
	client.Run()
}
