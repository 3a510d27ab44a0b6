// Package worker provides the HTTP service for paperscope.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/paperscope/paperscope/internal/config"
	"github.com/paperscope/paperscope/internal/feedback"
	"github.com/paperscope/paperscope/internal/orchestrator"
)

const (
	// DefaultHTTPTimeout is the outer per-request timeout. Discovery
	// deadlines are enforced separately by the orchestrator, so this
	// must exceed the largest configurable execution deadline.
	DefaultHTTPTimeout = 5 * time.Minute

	// MaxRequestBody bounds discovery and feedback payloads.
	MaxRequestBody = 1 << 20
)

// Service is the HTTP front for the discovery orchestrator.
type Service struct {
	version      string
	config       *config.Config
	orchestrator *orchestrator.Orchestrator
	feedback     *feedback.Store // nil when feedback is disabled
	limiter      *RateLimiter
	router       *chi.Mux
	server       *http.Server
	startTime    time.Time
}

// NewService wires the service over its collaborators. feedbackStore
// may be nil.
func NewService(version string, cfg *config.Config, orch *orchestrator.Orchestrator, feedbackStore *feedback.Store) *Service {
	svc := &Service{
		version:      version,
		config:       cfg,
		orchestrator: orch,
		feedback:     feedbackStore,
		limiter:      NewRateLimiter(float64(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		router:       chi.NewRouter(),
		startTime:    time.Now(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(SecurityHeaders)
	s.router.Use(MaxBodySize(MaxRequestBody))
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/version", s.handleVersion)

	s.router.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter))

		r.Post("/api/discover", s.handleDiscover)
		r.Post("/api/feedback", s.handleFeedback)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/cache/stats", s.handleCacheStats)
	})
}

// Router exposes the handler tree. Test hook.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Service) Start() error {
	port := config.GetWorkerPort()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Int("port", port).Str("version", s.version).Msg("Worker service listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
			return err
		}
	}
	log.Info().Msg("Worker service shutdown complete")
	return nil
}
