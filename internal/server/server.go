// internal/server/server.go

// Package server exposes the rule engine and the rule store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/crosslink/internal/config"
	"github.com/valpere/crosslink/internal/engine"
	"github.com/valpere/crosslink/internal/monitoring"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

// RuleStore is the persistence the API edits rules through.
type RuleStore interface {
	Load(ctx context.Context) ([]rules.SiteProfile, error)
	Save(ctx context.Context, profiles []rules.SiteProfile) error
	Export(ctx context.Context) (string, error)
	Import(ctx context.Context, text string) ([]rules.SiteProfile, error)
	Invalidate()
}

// Server wires the HTTP routes to an engine and a rule store.
type Server struct {
	engine  *engine.Engine
	store   RuleStore
	cfg     config.ServerConfig
	metrics *monitoring.MetricsManager
	health  *monitoring.HealthManager
	logger  utils.Logger

	metricsPath string
	limiter     *utils.RateLimiter
	router      *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them at path.
func WithMetrics(metrics *monitoring.MetricsManager, path string) Option {
	return func(s *Server) {
		s.metrics = metrics
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithHealth replaces the health manager behind /health.
func WithHealth(health *monitoring.HealthManager) Option {
	return func(s *Server) {
		if health != nil {
			s.health = health
		}
	}
}

// WithLogger replaces the server logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server. A zero rate limit disables limiting.
func New(eng *engine.Engine, store RuleStore, cfg config.ServerConfig, opts ...Option) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rule store cannot be nil")
	}

	s := &Server{
		engine:      eng,
		store:       store,
		cfg:         cfg,
		health:      monitoring.NewHealthManager(""),
		logger:      utils.NewComponentLogger("server"),
		metricsPath: "/metrics",
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RateLimit > 0 {
		s.limiter = utils.NewRateLimiter(cfg.RateLimit, cfg.Burst)
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics.MetricsHandler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	api.HandleFunc("/rules", s.handleGetRules).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.handlePutRules).Methods(http.MethodPut)
	api.HandleFunc("/rules/validate", s.handleValidateRules).Methods(http.MethodPost)
	api.HandleFunc("/rules/export", s.handleExportRules).Methods(http.MethodGet)
	api.HandleFunc("/rules/import", s.handleImportRules).Methods(http.MethodPost)
	api.HandleFunc("/cache", s.handleInvalidateCache).Methods(http.MethodDelete)

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
