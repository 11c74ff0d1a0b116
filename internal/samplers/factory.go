package samplers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/internal/targets"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// CreateFunc builds a stepper from a config and a random source
type CreateFunc func(cfg *Config, src interfaces.RandomSource) (interfaces.Stepper, error)

// Factory creates steppers by sampler kind
type Factory struct {
	creators map[models.SamplerKind]CreateFunc
	targets  *targets.Registry
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a factory with the built-in samplers and targets
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}

	f := &Factory{
		creators: make(map[models.SamplerKind]CreateFunc),
		targets:  targets.NewRegistry(),
		logger:   logger,
	}
	f.registerDefaults()
	return f
}

// Targets returns the target registry used for Metropolis samplers
func (f *Factory) Targets() *targets.Registry {
	return f.targets
}

// Register adds or replaces a sampler kind
func (f *Factory) Register(kind models.SamplerKind, fn CreateFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[kind] = fn
}

// Create builds a stepper for cfg.Sampler
func (f *Factory) Create(cfg *Config, src interfaces.RandomSource) (interfaces.Stepper, error) {
	f.mu.RLock()
	fn, ok := f.creators[cfg.Sampler]
	f.mu.RUnlock()

	if !ok {
		return nil, errors.WrapError(errors.ErrSamplerNotFound, errors.ErrorTypeConfiguration,
			errors.CodeUnsupportedSampler, fmt.Sprintf("sampler '%s' is not supported", cfg.Sampler))
	}
	return fn(cfg, src)
}

// Available returns the registered sampler kinds, sorted
func (f *Factory) Available() []models.SamplerKind {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]models.SamplerKind, 0, len(f.creators))
	for k := range f.creators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// StepperFactory binds cfg so RunChains can build one stepper per chain.
func (f *Factory) StepperFactory(cfg *Config) StepperFactory {
	return func(src interfaces.RandomSource) (interfaces.Stepper, error) {
		return f.Create(cfg, src)
	}
}

func (f *Factory) registerDefaults() {
	f.Register(models.SamplerMetropolis, func(cfg *Config, src interfaces.RandomSource) (interfaces.Stepper, error) {
		if cfg.Target == "" {
			return nil, errors.NewConfigurationError(errors.CodeMissingTarget, "metropolis sampler needs a target")
		}
		target, err := f.targets.Create(cfg.Target, cfg.TargetParams)
		if err != nil {
			return nil, err
		}
		proposal, err := NewRandomWalk(cfg.ProposalScale)
		if err != nil {
			return nil, err
		}
		return NewMetropolis(target, proposal, src)
	})

	f.Register(models.SamplerGibbs, func(cfg *Config, src interfaces.RandomSource) (interfaces.Stepper, error) {
		return NewGibbs(cfg.Rho, src)
	})
}
