package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/headhuntertrace/headhunter/internal/config"
	apperrors "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/observability"
	"github.com/headhuntertrace/headhunter/internal/server/handlers"
	servermw "github.com/headhuntertrace/headhunter/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	api    *handlers.API

	pprof    bool
	noHealth bool
}

// Option adjusts which optional routes New mounts.
type Option func(*Server)

// WithPprof mounts the net/http/pprof handlers under /debug.
func WithPprof(enabled bool) Option {
	return func(s *Server) { s.pprof = enabled }
}

// WithHealth controls the /health probe routes. They are on by default.
func WithHealth(enabled bool) Option {
	return func(s *Server) { s.noHealth = !enabled }
}

// New creates a new HTTP server instance. A nil api serves only the
// operational endpoints.
func New(cfg config.ServerConfig, api *handlers.API, opts ...Option) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		api:    api,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	return s
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  durationOr(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(s.cfg.IdleTimeout, 120*time.Second),
	}

	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for in-flight background
// searches so their records reach a terminal status.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.api == nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.api.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		observability.ServerLogger.Warn("Shutdown deadline reached with searches still running")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
