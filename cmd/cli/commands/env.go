package commands

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/cmd/cli/config"
	"github.com/inferloop/mcmc/internal/storage"
	"github.com/inferloop/mcmc/pkg/interfaces"
)

// Env is shared by every subcommand. The root command fills it before any
// subcommand runs.
type Env struct {
	Config *config.CLIConfig
	Logger *logrus.Logger
}

// NewEnv returns an Env holding the built-in defaults
func NewEnv() *Env {
	return &Env{
		Config: config.DefaultConfig(),
		Logger: NewLogger("warn", "text", io.Discard),
	}
}

// NewLogger builds a logger writing to out
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.WarnLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// OpenStore connects the configured trace store
func (e *Env) OpenStore(ctx context.Context) (interfaces.TraceStore, error) {
	return storage.NewFactory(e.Logger).CreateStorage(ctx, &e.Config.Storage)
}
