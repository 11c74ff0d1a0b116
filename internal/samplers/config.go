package samplers

import (
	"fmt"
	"math"

	"github.com/inferloop/mcmc/internal/targets"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// Config contains everything needed to run one sampling request
type Config struct {
	Sampler       models.SamplerKind `json:"sampler" mapstructure:"sampler"`
	Target        string             `json:"target,omitempty" mapstructure:"target"`
	TargetParams  targets.Params     `json:"target_params,omitempty" mapstructure:"target_params"`
	ProposalScale float64            `json:"proposal_scale,omitempty" mapstructure:"proposal_scale"`
	Rho           float64            `json:"rho,omitempty" mapstructure:"rho"`
	Initial       []float64          `json:"initial,omitempty" mapstructure:"initial"`
	Iterations    int                `json:"iterations" mapstructure:"iterations"`
	BurnIn        int                `json:"burn_in" mapstructure:"burn_in"`
	Chains        int                `json:"chains" mapstructure:"chains"`
	Seed          int64              `json:"seed" mapstructure:"seed"`
}

// DefaultMetropolisConfig reproduces the course mixture example
func DefaultMetropolisConfig() *Config {
	return &Config{
		Sampler:       models.SamplerMetropolis,
		Target:        targets.NameMixture,
		ProposalScale: 1.0,
		Initial:       []float64{0},
		Iterations:    10000,
		BurnIn:        1000,
		Chains:        1,
		Seed:          42,
	}
}

// DefaultGibbsConfig reproduces the course bivariate normal example
func DefaultGibbsConfig() *Config {
	return &Config{
		Sampler:    models.SamplerGibbs,
		Rho:        0.8,
		Initial:    []float64{0, 0},
		Iterations: 5000,
		BurnIn:     1000,
		Chains:     1,
		Seed:       42,
	}
}

// Validate checks the run-level parameters. Sampler-specific parameters
// (scale, rho, target) are checked when the stepper is built.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "sampler config is required")
	}
	if c.Iterations < 0 {
		return errors.NewConfigurationError(errors.CodeInvalidIterations,
			fmt.Sprintf("iterations must be non-negative, got %d", c.Iterations))
	}
	if c.BurnIn < 0 || c.BurnIn > c.Iterations {
		return errors.NewConfigurationError(errors.CodeInvalidBurnIn,
			fmt.Sprintf("burn-in must lie in [0, %d], got %d", c.Iterations, c.BurnIn))
	}
	if c.Chains < 1 {
		return errors.NewConfigurationError(errors.CodeInvalidChains,
			fmt.Sprintf("chain count must be at least 1, got %d", c.Chains))
	}
	for _, v := range c.Initial {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewConfigurationError(errors.CodeInvalidState, "initial state must be finite")
		}
	}
	return nil
}

// InitialState returns the configured start, or the origin in dim dimensions.
func (c *Config) InitialState(dim int) models.ChainState {
	if len(c.Initial) > 0 {
		return models.NewChainState(c.Initial...)
	}
	if dim < 1 {
		dim = 1
	}
	return models.ZeroState(dim)
}
