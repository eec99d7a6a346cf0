// Package api provides HTTP handlers, middleware, and routing for the cinehub server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/cinehub"
	"github.com/CreativeUnicorns/cinehub/auth"
	"github.com/CreativeUnicorns/cinehub/events"
	"github.com/CreativeUnicorns/cinehub/stream"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	manager    *cinehub.Manager
	tokens     *auth.TokenManager
	streams    *stream.Server
	events     *events.Handler
	logger     cinehub.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// Config holds configuration for the API server.
type Config struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration

	Manager *cinehub.Manager
	Tokens  *auth.TokenManager
	// Streams and Events are optional; their routes are only mounted when set.
	Streams *stream.Server
	Events  *events.Handler
	Logger  cinehub.Logger
}

// NewServer creates and configures a new API server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = cinehub.NewDefaultLogger()
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		manager: cfg.Manager,
		tokens:  cfg.Tokens,
		streams: cfg.Streams,
		events:  cfg.Events,
		logger:  cfg.Logger,
		router:  chi.NewRouter(),
	}

	s.setupRoutes()

	// WriteTimeout stays at zero by default: media responses can take as long as the viewer watches.
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server. It blocks until the server is shut down and
// returns nil after a graceful Stop.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("API server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("API server stopped gracefully")
	return nil
}
