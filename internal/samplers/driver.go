package samplers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// MetricsRecorder receives one observation per finished chain run
type MetricsRecorder interface {
	RecordRun(sampler models.SamplerKind, target string, iterations int, acceptanceRate float64, duration time.Duration, err error)
}

// activityTracker is implemented by recorders that also count chains in flight
type activityTracker interface {
	ChainStarted()
	ChainFinished()
}

// RunParams describes a single chain run
type RunParams struct {
	Initial    models.ChainState
	Iterations int
	Target     string
	Seed       int64
	Chain      int
}

// Driver loops a stepper for a fixed number of iterations and records the trace.
type Driver struct {
	logger  *logrus.Logger
	metrics MetricsRecorder
}

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithMetrics attaches a metrics recorder
func WithMetrics(m MetricsRecorder) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

// NewDriver creates a driver
func NewDriver(logger *logrus.Logger, opts ...DriverOption) *Driver {
	if logger == nil {
		logger = logrus.New()
	}
	d := &Driver{logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run resets stepper at params.Initial and advances it exactly
// params.Iterations times. Configuration errors are returned before any
// step runs. Cancellation is checked between iterations; a cancelled run
// returns no result.
func (d *Driver) Run(ctx context.Context, stepper interfaces.Stepper, params RunParams) (*models.RunResult, error) {
	if stepper == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "stepper is required")
	}
	if params.Iterations < 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidIterations,
			fmt.Sprintf("iterations must be non-negative, got %d", params.Iterations))
	}
	if err := stepper.Reset(params.Initial); err != nil {
		return nil, err
	}

	result := &models.RunResult{
		ID:        uuid.New().String(),
		Sampler:   stepper.Kind(),
		Target:    params.Target,
		Chain:     params.Chain,
		Seed:      params.Seed,
		Initial:   params.Initial.Clone(),
		Trace:     make(models.Trace, 0, params.Iterations),
		StartedAt: time.Now(),
	}

	logger := d.logger.WithFields(logrus.Fields{
		"run_id":     result.ID,
		"sampler":    result.Sampler,
		"target":     result.Target,
		"chain":      result.Chain,
		"iterations": params.Iterations,
	})
	logger.Debug("Starting chain")

	if tracker, ok := d.metrics.(activityTracker); ok {
		tracker.ChainStarted()
		defer tracker.ChainFinished()
	}

	for i := 0; i < params.Iterations; i++ {
		select {
		case <-ctx.Done():
			err := errors.WrapError(ctx.Err(), errors.ErrorTypeSampling, errors.CodeRunCancelled,
				fmt.Sprintf("run cancelled after %d iterations", i))
			d.record(result, i, err)
			logger.WithError(err).Warn("Chain cancelled")
			return nil, err
		default:
		}

		state, _, err := stepper.Step()
		if err != nil {
			d.record(result, i, err)
			logger.WithError(err).WithField("iteration", i).Error("Chain step failed")
			return nil, err
		}
		result.Trace = append(result.Trace, state)
	}

	result.Acceptance = stepper.Acceptance()
	result.CompletedAt = time.Now()
	d.record(result, params.Iterations, nil)

	logger.WithFields(logrus.Fields{
		"acceptance_rate": result.AcceptanceRate(),
		"duration":        result.Duration(),
	}).Debug("Chain completed")

	return result, nil
}

func (d *Driver) record(result *models.RunResult, iterations int, err error) {
	if d.metrics == nil {
		return
	}
	end := result.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	rate := 0.0
	if err == nil {
		rate = result.AcceptanceRate()
	}
	d.metrics.RecordRun(result.Sampler, result.Target, iterations, rate, end.Sub(result.StartedAt), err)
}
