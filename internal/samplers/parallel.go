package samplers

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/internal/random"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// StepperFactory builds a fresh stepper bound to src
type StepperFactory func(src interfaces.RandomSource) (interfaces.Stepper, error)

// RunChains runs chains independent chains concurrently. Chain i draws from
// random.New(random.DeriveSeed(seed, i)) and owns its stepper and trace.
// Results are in chain order. The first failure cancels the other chains
// and is returned.
func (d *Driver) RunChains(ctx context.Context, newStepper StepperFactory, params RunParams, chains int, seed int64) ([]*models.RunResult, error) {
	if chains < 1 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidChains,
			fmt.Sprintf("chain count must be at least 1, got %d", chains))
	}
	if params.Iterations < 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidIterations,
			fmt.Sprintf("iterations must be non-negative, got %d", params.Iterations))
	}

	// Build every stepper up front so configuration errors surface before
	// any chain starts.
	steppers := make([]interfaces.Stepper, chains)
	seeds := make([]int64, chains)
	for i := 0; i < chains; i++ {
		seeds[i] = random.DeriveSeed(seed, uint64(i))
		s, err := newStepper(random.New(seeds[i]))
		if err != nil {
			return nil, err
		}
		steppers[i] = s
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*models.RunResult, chains)
	errs := make([]error, chains)

	var wg sync.WaitGroup
	for i := 0; i < chains; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			p := params
			p.Chain = i
			p.Seed = seeds[i]
			res, err := d.Run(ctx, steppers[i], p)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	// Prefer the root cause over cancellations it triggered in sibling chains.
	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil || isCancellation(firstErr) && !isCancellation(err) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	d.logger.WithFields(logrus.Fields{
		"chains":     chains,
		"iterations": params.Iterations,
		"target":     params.Target,
	}).Info("All chains completed")

	return results, nil
}

func isCancellation(err error) bool {
	appErr, ok := err.(*errors.AppError)
	return ok && appErr.Code == errors.CodeRunCancelled
}
