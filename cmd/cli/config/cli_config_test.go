package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/pkg/models"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, models.SamplerMetropolis, cfg.Metropolis.Sampler)
	assert.Equal(t, "mixture", cfg.Metropolis.Target)
	assert.Equal(t, 10000, cfg.Metropolis.Iterations)
	assert.Equal(t, 0.8, cfg.Gibbs.Rho)
	assert.Equal(t, "file", cfg.Storage.Type)
	assert.Equal(t, "./data/runs", cfg.Storage.File.BasePath)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcmc.yaml")
	content := `
default_format: json
metropolis:
  proposal_scale: 2.5
  iterations: 500
  target_params:
    mu: 1
storage:
  type: redis
  file:
    base_path: /tmp/runs
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("MCMC_GIBBS_RHO", "0.3")

	cfg, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.DefaultFormat)
	assert.Equal(t, 2.5, cfg.Metropolis.ProposalScale)
	assert.Equal(t, 500, cfg.Metropolis.Iterations)
	assert.Equal(t, 1000, cfg.Metropolis.BurnIn)
	assert.Equal(t, 1.0, cfg.Metropolis.TargetParams["mu"])
	assert.Equal(t, 0.3, cfg.Gibbs.Rho)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "/tmp/runs", cfg.Storage.File.BasePath)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
