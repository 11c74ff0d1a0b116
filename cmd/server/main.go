package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/inferloop/mcmc/internal/export"
	"github.com/inferloop/mcmc/internal/observability/health"
	"github.com/inferloop/mcmc/internal/observability/metrics"
	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/internal/server"
	"github.com/inferloop/mcmc/internal/storage"
)

func main() {
	config := ParseFlags()

	logger := setupLogger(config.LogLevel, config.LogFormat)

	logger.WithFields(logrus.Fields{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
	}).Info("Starting MCMC sampling server")

	serverConfig, storageConfig, err := loadConfig(config)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var promMetrics *metrics.PrometheusMetrics
	if config.EnableMetrics {
		promConfig := metrics.DefaultPrometheusConfig()
		promConfig.Enabled = config.MetricsPort > 0
		promConfig.Port = config.MetricsPort

		promMetrics, err = metrics.NewPrometheusMetrics(promConfig, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize metrics")
		}
		if err := promMetrics.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start metrics server")
		}
	}

	store, err := storage.NewFactory(logger).CreateStorage(ctx, storageConfig)
	if err != nil {
		logger.WithError(err).WithField("storage", storageConfig.Type).Fatal("Failed to create storage")
	}
	defer store.Close()

	deps := server.Dependencies{
		Store:    store,
		Exporter: export.NewExportEngine(nil, logger),
		Health:   health.NewHealthMonitor(nil, logger),
	}
	if promMetrics != nil {
		deps.Metrics = promMetrics
		deps.Runner = samplers.NewRunner(logger, promMetrics)
	}

	srv, err := server.NewServer(serverConfig, deps, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	if err := deps.Health.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start health monitoring")
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Server stopped")
}

// loadConfig merges the optional config file with the command line. Flags
// given explicitly win over file values.
func loadConfig(flags *Config) (*server.Config, *storage.StorageConfig, error) {
	serverConfig := server.DefaultConfig()
	applyBuildInfo(serverConfig)
	storageConfig := storage.DefaultStorageConfig()

	if flags.ConfigFile != "" {
		v := viper.New()
		v.SetConfigFile(flags.ConfigFile)
		v.SetEnvPrefix("MCMC")
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file %s: %w", flags.ConfigFile, err)
		}
		if err := v.UnmarshalKey("server", serverConfig); err != nil {
			return nil, nil, fmt.Errorf("invalid server section: %w", err)
		}
		if err := v.UnmarshalKey("storage", storageConfig); err != nil {
			return nil, nil, fmt.Errorf("invalid storage section: %w", err)
		}
	} else {
		serverConfig.Host = flags.Host
		serverConfig.Port = flags.Port
		serverConfig.MaxIterations = flags.MaxIterations
		serverConfig.MaxChains = flags.MaxChains
		storageConfig.Type = flags.StorageBackend
		storageConfig.File.BasePath = flags.StoragePath
		storageConfig.Redis.Addr = flags.RedisAddr
		return serverConfig, storageConfig, nil
	}

	overrides := map[string]func(){
		"host":           func() { serverConfig.Host = flags.Host },
		"port":           func() { serverConfig.Port = flags.Port },
		"max-iterations": func() { serverConfig.MaxIterations = flags.MaxIterations },
		"max-chains":     func() { serverConfig.MaxChains = flags.MaxChains },
		"storage":        func() { storageConfig.Type = flags.StorageBackend },
		"storage-path":   func() { storageConfig.File.BasePath = flags.StoragePath },
		"redis-addr":     func() { storageConfig.Redis.Addr = flags.RedisAddr },
	}
	for name, apply := range overrides {
		if flags.IsSet(name) {
			apply()
		}
	}

	if serverConfig.ShutdownTimeout <= 0 {
		serverConfig.ShutdownTimeout = 30 * time.Second
	}
	return serverConfig, storageConfig, nil
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
