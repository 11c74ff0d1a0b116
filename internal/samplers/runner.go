package samplers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/internal/diagnostics"
	"github.com/inferloop/mcmc/internal/random"
	"github.com/inferloop/mcmc/pkg/models"
)

// Runner executes a Config end to end: it builds one stepper per chain,
// runs the chains and attaches post-burn-in diagnostics.
type Runner struct {
	factory *Factory
	driver  *Driver
	logger  *logrus.Logger
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(logger *logrus.Logger, metrics MetricsRecorder) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	var opts []DriverOption
	if metrics != nil {
		opts = append(opts, WithMetrics(metrics))
	}
	return &Runner{
		factory: NewFactory(logger),
		driver:  NewDriver(logger, opts...),
		logger:  logger,
	}
}

// Factory returns the stepper factory
func (r *Runner) Factory() *Factory {
	return r.factory
}

// Execute validates cfg, runs cfg.Chains chains and summarizes them.
func (r *Runner) Execute(ctx context.Context, cfg *Config) (*models.RunReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Build one stepper eagerly to learn the state dimension and to fail
	// fast on sampler-specific configuration.
	probe, err := r.factory.Create(cfg, random.New(cfg.Seed))
	if err != nil {
		return nil, err
	}

	report := &models.RunReport{
		ID:         uuid.New().String(),
		Sampler:    cfg.Sampler,
		Target:     cfg.Target,
		Iterations: cfg.Iterations,
		BurnIn:     cfg.BurnIn,
		Seed:       cfg.Seed,
		CreatedAt:  time.Now(),
	}

	r.logger.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"sampler":    cfg.Sampler,
		"target":     cfg.Target,
		"iterations": cfg.Iterations,
		"chains":     cfg.Chains,
		"seed":       cfg.Seed,
	}).Info("Starting sampling run")

	params := RunParams{
		Initial:    cfg.InitialState(probe.Dimension()),
		Iterations: cfg.Iterations,
		Target:     cfg.Target,
	}

	runs, err := r.driver.RunChains(ctx, r.factory.StepperFactory(cfg), params, cfg.Chains, cfg.Seed)
	if err != nil {
		return nil, err
	}
	report.Runs = runs

	report.Summaries = make([]*models.Summary, len(runs))
	for i, run := range runs {
		s, err := diagnostics.SummarizeRun(run, cfg.BurnIn)
		if err != nil {
			return nil, err
		}
		report.Summaries[i] = s
	}

	if len(runs) > 1 && cfg.Iterations-cfg.BurnIn >= 2 {
		rhat, err := diagnostics.RHat(report.Traces(), cfg.BurnIn)
		if err != nil {
			// R-hat is informational; a stuck chain must not fail the run.
			r.logger.WithError(err).Warn("R-hat unavailable")
		} else {
			report.RHat = rhat
		}
	}

	report.CompletedAt = time.Now()

	r.logger.WithFields(logrus.Fields{
		"report_id":       report.ID,
		"acceptance_rate": report.OverallAcceptanceRate(),
		"duration":        report.CompletedAt.Sub(report.CreatedAt),
	}).Info("Sampling run completed")

	return report, nil
}
