package api

import (
	"log/slog"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/project"
)

// Server is the API server for one project.
type Server struct {
	config Config
	orch   *project.Orchestrator
	logger *slog.Logger
	app    *fiber.App

	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a new API server.
// The orchestrator is injected so the server can share it with the autosave
// worker when both run in one process.
func NewServer(config Config, orch *project.Orchestrator, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		orch:   orch,
		logger: logger.OrNop(log),
		app:    app,
		done:   make(chan struct{}),
	}

	app.Get("/ping", s.handlePing)

	app.Get("/project", s.handleHasSavedData)
	app.Get("/project/info", s.handleStorageInfo)
	app.Post("/project/save", s.handleSave)
	app.Post("/project/load", s.handleLoad)
	app.Delete("/project", s.handleClear)

	app.Get("/diagram", s.handleGetDiagram)
	app.Put("/diagram", s.handlePutDiagram)

	if config.Events != nil {
		app.Get("/events", s.handleEvents)
		app.Get("/events/stream", s.handleEventStream)
	}
	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown ends open event streams and gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	s.stopOnce.Do(func() { close(s.done) })
	return s.app.Shutdown()
}
