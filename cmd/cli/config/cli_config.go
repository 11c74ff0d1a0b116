package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/internal/storage"
)

// CLIConfig holds the defaults the CLI commands start from
type CLIConfig struct {
	LogLevel      string                `mapstructure:"log_level"`
	LogFormat     string                `mapstructure:"log_format"`
	DefaultFormat string                `mapstructure:"default_format"`
	OutputDir     string                `mapstructure:"output_dir"`
	Metropolis    samplers.Config       `mapstructure:"metropolis"`
	Gibbs         samplers.Config       `mapstructure:"gibbs"`
	Storage       storage.StorageConfig `mapstructure:"storage"`
}

// DefaultConfig returns the built-in CLI defaults
func DefaultConfig() *CLIConfig {
	store := storage.DefaultStorageConfig()
	store.Type = storage.TypeFile

	return &CLIConfig{
		LogLevel:      "warn",
		LogFormat:     "text",
		DefaultFormat: "csv",
		OutputDir:     ".",
		Metropolis:    *samplers.DefaultMetropolisConfig(),
		Gibbs:         *samplers.DefaultGibbsConfig(),
		Storage:       *store,
	}
}

// LoadConfig reads cfgFile, or $HOME/.mcmc/config.yaml when cfgFile is
// empty, over the defaults. A missing default file is not an error.
// Environment variables prefixed MCMC_ override both, with dots in keys
// written as underscores (MCMC_METROPOLIS_ITERATIONS).
func LoadConfig(v *viper.Viper, cfgFile string) (*CLIConfig, error) {
	config := DefaultConfig()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".mcmc"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("MCMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns $HOME/.mcmc/config.yaml
func GetDefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mcmc", "config.yaml")
}

// setDefaults registers every key so that AutomaticEnv can override it
func setDefaults(v *viper.Viper, config *CLIConfig) {
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("log_format", config.LogFormat)
	v.SetDefault("default_format", config.DefaultFormat)
	v.SetDefault("output_dir", config.OutputDir)

	for prefix, c := range map[string]samplers.Config{"metropolis": config.Metropolis, "gibbs": config.Gibbs} {
		v.SetDefault(prefix+".sampler", string(c.Sampler))
		v.SetDefault(prefix+".target", c.Target)
		v.SetDefault(prefix+".proposal_scale", c.ProposalScale)
		v.SetDefault(prefix+".rho", c.Rho)
		v.SetDefault(prefix+".initial", c.Initial)
		v.SetDefault(prefix+".iterations", c.Iterations)
		v.SetDefault(prefix+".burn_in", c.BurnIn)
		v.SetDefault(prefix+".chains", c.Chains)
		v.SetDefault(prefix+".seed", c.Seed)
	}

	v.SetDefault("storage.type", config.Storage.Type)
	v.SetDefault("storage.file.base_path", config.Storage.File.BasePath)
	v.SetDefault("storage.file.compression", config.Storage.File.Compression)
	v.SetDefault("storage.file.create_dirs", config.Storage.File.CreateDirs)
	v.SetDefault("storage.redis.addr", config.Storage.Redis.Addr)
	v.SetDefault("storage.redis.key_prefix", config.Storage.Redis.KeyPrefix)
}
