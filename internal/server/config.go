package server

import (
	"fmt"
	"time"

	"github.com/inferloop/mcmc/pkg/errors"
)

// Config contains the HTTP server configuration
type Config struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RunTimeout      time.Duration `json:"run_timeout" mapstructure:"run_timeout"`
	MaxRequestSize  int64         `json:"max_request_size" mapstructure:"max_request_size"`
	EnableCORS      bool          `json:"enable_cors" mapstructure:"enable_cors"`
	Version         string        `json:"version" mapstructure:"version"`
	GitCommit       string        `json:"git_commit" mapstructure:"git_commit"`
	BuildDate       string        `json:"build_date" mapstructure:"build_date"`

	// Per-request limits on sampling work
	MaxIterations int `json:"max_iterations" mapstructure:"max_iterations"`
	MaxChains     int `json:"max_chains" mapstructure:"max_chains"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		RunTimeout:      90 * time.Second,
		MaxRequestSize:  1 << 20,
		EnableCORS:      true,
		Version:         "dev",
		MaxIterations:   1_000_000,
		MaxChains:       16,
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("invalid port %d", c.Port))
	}
	if c.MaxRequestSize <= 0 {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "max request size must be positive")
	}
	if c.MaxIterations <= 0 || c.MaxChains <= 0 {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "max iterations and max chains must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "shutdown timeout must be positive")
	}
	return nil
}

// GetAddress returns the listen address
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
