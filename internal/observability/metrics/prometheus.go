package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/pkg/models"
)

// PrometheusMetrics provides Prometheus-based metrics collection
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	server   *http.Server
	config   *PrometheusConfig
	mu       sync.RWMutex

	// Sampling metrics
	chainRunsTotal       *prometheus.CounterVec
	chainIterationsTotal *prometheus.CounterVec
	chainDuration        *prometheus.HistogramVec
	chainAcceptanceRate  *prometheus.GaugeVec
	chainsActive         prometheus.Gauge

	// Service metrics
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	storageOperationsTotal *prometheus.CounterVec
	storageDuration        *prometheus.HistogramVec
	errorsTotal            *prometheus.CounterVec
}

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Port      int    `json:"port" mapstructure:"port"`
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// DefaultPrometheusConfig returns the metrics defaults
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   true,
		Port:      9091,
		Path:      "/metrics",
		Namespace: "mcmc",
		Subsystem: "sampler",
	}
}

// NewPrometheusMetrics creates a new Prometheus metrics instance backed by
// its own registry.
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = DefaultPrometheusConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}

	pm.initializeMetrics()

	if err := pm.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return pm, nil
}

// Start serves the metrics endpoint on its own port. It is a no-op when
// metrics are disabled.
func (pm *PrometheusMetrics) Start(ctx context.Context) error {
	if !pm.config.Enabled {
		pm.logger.Info("Prometheus metrics disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(pm.config.Path, pm.Handler())

	pm.mu.Lock()
	pm.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", pm.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := pm.server
	pm.mu.Unlock()

	pm.logger.WithFields(logrus.Fields{
		"port": pm.config.Port,
		"path": pm.config.Path,
	}).Info("Starting Prometheus metrics server")

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pm.logger.WithError(err).Error("Prometheus metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = pm.Stop(context.Background())
	}()

	return nil
}

// Stop stops the Prometheus metrics server
func (pm *PrometheusMetrics) Stop(ctx context.Context) error {
	pm.mu.Lock()
	server := pm.server
	pm.server = nil
	pm.mu.Unlock()

	if server == nil {
		return nil
	}

	pm.logger.Info("Stopping Prometheus metrics server")
	return server.Shutdown(ctx)
}

// Handler exposes the registry in the Prometheus text format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordRun records one finished chain. Failed and cancelled chains count
// their completed iterations but leave the acceptance gauge untouched.
func (pm *PrometheusMetrics) RecordRun(sampler models.SamplerKind, target string, iterations int, acceptanceRate float64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	pm.chainRunsTotal.WithLabelValues(string(sampler), target, status).Inc()
	pm.chainIterationsTotal.WithLabelValues(string(sampler), target).Add(float64(iterations))
	pm.chainDuration.WithLabelValues(string(sampler)).Observe(duration.Seconds())

	if err == nil {
		pm.chainAcceptanceRate.WithLabelValues(string(sampler), target).Set(acceptanceRate)
	} else {
		pm.errorsTotal.WithLabelValues("sampler", string(sampler)).Inc()
	}
}

// ChainStarted marks a chain as in flight
func (pm *PrometheusMetrics) ChainStarted() {
	pm.chainsActive.Inc()
}

// ChainFinished marks a chain as done
func (pm *PrometheusMetrics) ChainFinished() {
	pm.chainsActive.Dec()
}

// HTTP Metrics
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	pm.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Storage Metrics
func (pm *PrometheusMetrics) RecordStorageOperation(backend, operation, status string, duration time.Duration) {
	pm.storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	pm.storageDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// Error Metrics
func (pm *PrometheusMetrics) RecordError(component, errorType string) {
	pm.errorsTotal.WithLabelValues(component, errorType).Inc()
}

func (pm *PrometheusMetrics) initializeMetrics() {
	namespace := pm.config.Namespace
	subsystem := pm.config.Subsystem

	pm.chainRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_runs_total",
			Help:      "Total number of chain runs",
		},
		[]string{"sampler", "target", "status"},
	)

	pm.chainIterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_iterations_total",
			Help:      "Total number of chain iterations performed",
		},
		[]string{"sampler", "target"},
	)

	pm.chainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_duration_seconds",
			Help:      "Chain run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"sampler"},
	)

	pm.chainAcceptanceRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_acceptance_rate",
			Help:      "Acceptance rate of the most recent completed chain",
		},
		[]string{"sampler", "target"},
	)

	pm.chainsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chains_active",
			Help:      "Number of chains currently running",
		},
	)

	pm.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pm.storageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"backend", "operation", "status"},
	)

	pm.storageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "operation"},
	)

	pm.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"component", "type"},
	)
}

func (pm *PrometheusMetrics) registerMetrics() error {
	collectors := []prometheus.Collector{
		pm.chainRunsTotal,
		pm.chainIterationsTotal,
		pm.chainDuration,
		pm.chainAcceptanceRate,
		pm.chainsActive,
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		pm.storageOperationsTotal,
		pm.storageDuration,
		pm.errorsTotal,
	}

	for _, c := range collectors {
		if err := pm.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// GetConfig returns the configuration
func (pm *PrometheusMetrics) GetConfig() *PrometheusConfig {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.config
}
