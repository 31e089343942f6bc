package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/appid"
	"github.com/headhuntertrace/headhunter/internal/observability"
	"github.com/headhuntertrace/headhunter/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	if !s.noHealth {
		s.router.Get("/health", handlers.HealthHandler)
		s.router.Get("/health/live", handlers.LivenessHandler)
		s.router.Get("/health/ready", handlers.ReadinessHandler)
		s.router.Get("/health/startup", handlers.StartupHandler)
	}
	if s.pprof {
		s.router.Mount("/debug", middleware.Profiler())
	}

	s.router.Get("/version", handlers.VersionHandler)

	// In the server package to reach HandleError.
	s.router.Get("/metrics", MetricsHandler)

	if s.api != nil {
		s.router.Post("/functions/osint-search", s.api.OSINTSearch)
		s.router.Route("/api/v1", s.registerAPI)
	}

	s.registerAdminEndpoint()
}

func (s *Server) registerAPI(r chi.Router) {
	api := s.api

	r.Post("/users", api.CreateUser)
	r.Get("/me", api.Me)
	if api.AdminToken != "" {
		r.Post("/users/{id}/credits", api.GrantCredits)
	}

	r.Post("/searches", api.SubmitSearch)
	r.Get("/searches", api.ListSearches)
	r.Get("/searches/{id}", api.GetSearch)
	r.Get("/searches/{id}/report", api.SearchReport)
	r.Get("/searches/{id}/events", api.SearchEvents)
}

// registerAdminEndpoint registers the signal endpoint when an admin token is configured.
func (s *Server) registerAdminEndpoint() {
	adminToken := s.cfg.AdminToken
	if adminToken == "" {
		adminToken = os.Getenv(appid.EnvPrefix() + "ADMIN_TOKEN")
	}
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token configured)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
