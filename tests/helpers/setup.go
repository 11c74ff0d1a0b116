package helpers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// TestEnvironment bundles the logger, context and scratch directory a
// sampling test needs
type TestEnvironment struct {
	T       *testing.T
	Logger  *logrus.Logger
	Ctx     context.Context
	Cancel  context.CancelFunc
	TempDir string
}

// TestConfig configures NewTestEnvironment
type TestConfig struct {
	Timeout  time.Duration
	LogLevel logrus.Level
}

// DefaultTestConfig returns the configuration used by most tests
func DefaultTestConfig() *TestConfig {
	return &TestConfig{
		Timeout:  30 * time.Second,
		LogLevel: logrus.ErrorLevel,
	}
}

// NewTestEnvironment creates an environment that is torn down with t
func NewTestEnvironment(t *testing.T, config *TestConfig) *TestEnvironment {
	t.Helper()

	if config == nil {
		config = DefaultTestConfig()
	}

	logger := GetTestLogger(t)
	logger.SetLevel(config.LogLevel)

	ctx, cancel := GetTestContext(config.Timeout)
	env := &TestEnvironment{
		T:       t,
		Logger:  logger,
		Ctx:     ctx,
		Cancel:  cancel,
		TempDir: t.TempDir(),
	}
	t.Cleanup(cancel)
	return env
}

// Path returns name inside the environment's scratch directory
func (env *TestEnvironment) Path(name string) string {
	return filepath.Join(env.TempDir, name)
}

// WriteFile writes content under the scratch directory and returns its path
func (env *TestEnvironment) WriteFile(name, content string) string {
	env.T.Helper()

	path := env.Path(name)
	require.NoError(env.T, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(env.T, os.WriteFile(path, []byte(content), 0644))
	return path
}

// RunWithTimeout runs fn and returns context.DeadlineExceeded if it does not
// finish in time
func (env *TestEnvironment) RunWithTimeout(fn func() error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(env.Ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// GetTestLogger returns a logger that only reports errors
func GetTestLogger(t *testing.T) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return logger
}

// GetTestContext returns a test context with timeout
func GetTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// SkipIfShort skips the test if testing.Short() is true
func SkipIfShort(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
}
