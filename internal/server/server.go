// Package server exposes the samplers over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/internal/export"
	"github.com/inferloop/mcmc/internal/observability/health"
	"github.com/inferloop/mcmc/internal/observability/metrics"
	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/internal/storage"
	"github.com/inferloop/mcmc/internal/storage/implementations/memory"
	"github.com/inferloop/mcmc/pkg/interfaces"
)

// APIPrefix is the path prefix of the versioned API
const APIPrefix = "/api/v1"

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *logrus.Logger
	config     *Config
	startTime  time.Time

	runner   *samplers.Runner
	store    interfaces.TraceStore
	exporter *export.ExportEngine
	metrics  *metrics.PrometheusMetrics
	health   *health.HealthMonitor
}

// Dependencies are the collaborators a Server serves. Any nil field is
// replaced by a default: an in-memory store, a fresh runner, exporter and
// health monitor. Metrics stay disabled when nil.
type Dependencies struct {
	Runner   *samplers.Runner
	Store    interfaces.TraceStore
	Exporter *export.ExportEngine
	Metrics  *metrics.PrometheusMetrics
	Health   *health.HealthMonitor
}

// NewServer creates a new HTTP server instance
func NewServer(config *Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logrus.New()
	}

	var (
		runRecorder     samplers.MetricsRecorder
		storageRecorder storage.OperationRecorder
	)
	if deps.Metrics != nil {
		runRecorder = deps.Metrics
		storageRecorder = deps.Metrics
	}

	if deps.Runner == nil {
		deps.Runner = samplers.NewRunner(logger, runRecorder)
	}
	if deps.Store == nil {
		deps.Store = memory.NewMemoryStorage()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExportEngine(nil, logger)
	}
	if deps.Health == nil {
		deps.Health = health.NewHealthMonitor(nil, logger)
	}

	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		config:    config,
		startTime: time.Now(),
		runner:    deps.Runner,
		store:     storage.Instrument(deps.Store, storageRecorder),
		exporter:  deps.Exporter,
		metrics:   deps.Metrics,
		health:    deps.Health,
	}

	s.registerHealthChecks()
	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:         config.GetAddress(),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Start serves HTTP until Stop is called
func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address": s.config.GetAddress(),
		"version": s.config.Version,
		"storage": s.store.Name(),
	}).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Error shutting down HTTP server")
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// ServeHTTP lets the server be mounted or tested without a listener
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// GetRouter returns the HTTP router
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *Config {
	return s.config
}

// setupRoutes sets up the HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix(APIPrefix).Subrouter()

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/health/live", s.handleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api.HandleFunc("/runs", s.handleCreateRun).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleDeleteRun).Methods(http.MethodDelete)
	api.HandleFunc("/runs/{id}/trace", s.handleGetTrace).Methods(http.MethodGet)

	api.HandleFunc("/targets", s.handleListTargets).Methods(http.MethodGet)
	api.HandleFunc("/samplers", s.handleListSamplers).Methods(http.MethodGet)
	api.HandleFunc("/formats", s.handleListFormats).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

// setupMiddleware sets up HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
}

// registerHealthChecks adds the trace store and sampler checks
func (s *Server) registerHealthChecks() {
	s.health.RegisterCheck(health.NewBasicHealthCheck(
		"trace_store",
		s.store.Ping,
		true,
		5*time.Second,
		"trace store reachability",
	))

	s.health.RegisterCheck(health.NewBasicHealthCheck(
		"sampler",
		s.samplerSelfTest,
		false,
		5*time.Second,
		"short metropolis run on the default target",
	))
}
