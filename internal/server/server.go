// Package server exposes the turn pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/varekai/pagepilot/internal/config"
	"github.com/varekai/pagepilot/internal/turn"
)

// TurnService is the piece of the orchestrator the HTTP layer needs.
type TurnService interface {
	Process(ctx context.Context, req turn.Request) (turn.Result, error)
}

// Server hosts the HTTP API.
type Server struct {
	cfg        config.ServerConfig
	log        *zap.Logger
	httpServer *http.Server
}

// New builds the server and its router.
func New(cfg config.ServerConfig, turns TurnService, logger *zap.Logger) *Server {
	log := logger.Named("server")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Turn requests block on a model call, so the route timeout mirrors the
	// write timeout rather than a typical API budget.
	r.Use(middleware.Timeout(routeTimeout(cfg)))

	h := newHandlers(turns, log)
	h.registerRoutes(r)

	return &Server{
		cfg: cfg,
		log: log,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server starting", zap.String("address", s.cfg.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("HTTP server shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	return s.httpServer.Shutdown(shutdownCtx)
}

// reasonable floor when the config leaves timeouts unset (tests mostly).
const defaultRouteTimeout = 5 * time.Minute

func routeTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.WriteTimeout > 0 {
		return cfg.WriteTimeout
	}
	return defaultRouteTimeout
}
