package samplers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/internal/targets"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

func TestRunChainsDeterministicAndOrdered(t *testing.T) {
	factory := NewFactory(testLogger())
	cfg := DefaultMetropolisConfig()
	params := RunParams{Initial: models.NewChainState(0), Iterations: 500, Target: cfg.Target}
	driver := NewDriver(testLogger())

	first, err := driver.RunChains(context.Background(), factory.StepperFactory(cfg), params, 4, 99)
	require.NoError(t, err)
	second, err := driver.RunChains(context.Background(), factory.StepperFactory(cfg), params, 4, 99)
	require.NoError(t, err)

	require.Len(t, first, 4)
	for i := range first {
		assert.Equal(t, i, first[i].Chain)
		assert.Equal(t, first[i].Seed, second[i].Seed)
		require.Equal(t, 500, first[i].Trace.Len())
		for j := range first[i].Trace {
			require.True(t, first[i].Trace[j].Equal(second[i].Trace[j]))
		}
	}
	assert.NotEqual(t, first[0].Seed, first[1].Seed)
}

func TestRunChainsValidation(t *testing.T) {
	factory := NewFactory(testLogger())
	driver := NewDriver(testLogger())
	cfg := DefaultMetropolisConfig()

	_, err := driver.RunChains(context.Background(), factory.StepperFactory(cfg),
		RunParams{Initial: models.NewChainState(0), Iterations: 10}, 0, 1)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = driver.RunChains(context.Background(), factory.StepperFactory(cfg),
		RunParams{Initial: models.NewChainState(0), Iterations: -5}, 2, 1)
	assert.True(t, errors.IsConfigurationError(err))

	bad := *cfg
	bad.ProposalScale = 0
	_, err = driver.RunChains(context.Background(), factory.StepperFactory(&bad),
		RunParams{Initial: models.NewChainState(0), Iterations: 10}, 2, 1)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestRunChainsReportsRootCause(t *testing.T) {
	newStepper := func(src interfaces.RandomSource) (interfaces.Stepper, error) {
		calls := 0
		target := interfaces.DensityFunc(func(models.ChainState) float64 {
			calls++
			if calls > 50 {
				return -1
			}
			return 1
		})
		proposal, err := NewRandomWalk(1)
		if err != nil {
			return nil, err
		}
		return NewMetropolis(target, proposal, src)
	}

	runs, err := NewDriver(testLogger()).RunChains(context.Background(), newStepper,
		RunParams{Initial: models.NewChainState(0), Iterations: 1000}, 3, 5)
	require.Error(t, err)
	assert.Nil(t, runs)
	assert.True(t, errors.IsEvaluationError(err))
}

func TestFactory(t *testing.T) {
	factory := NewFactory(testLogger())
	assert.Equal(t, []models.SamplerKind{models.SamplerGibbs, models.SamplerMetropolis}, factory.Available())

	stepper, err := factory.Create(DefaultMetropolisConfig(), nil)
	// A nil source is rejected by the stepper constructor.
	require.Error(t, err)
	assert.Nil(t, stepper)

	_, err = factory.Create(&Config{Sampler: "slice"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = factory.Create(&Config{Sampler: models.SamplerMetropolis, ProposalScale: 1}, nil)
	assert.True(t, errors.IsConfigurationError(err))

	cfg := DefaultMetropolisConfig()
	cfg.Target = "banana"
	_, err = factory.Create(cfg, nil)
	assert.True(t, errors.IsNotFound(err))

	gibbs := DefaultGibbsConfig()
	gibbs.Rho = 1
	_, err = factory.Create(gibbs, nil)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultMetropolisConfig().Validate())
	assert.NoError(t, DefaultGibbsConfig().Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())

	mutate := []func(*Config){
		func(c *Config) { c.Iterations = -1 },
		func(c *Config) { c.BurnIn = -1 },
		func(c *Config) { c.BurnIn = c.Iterations + 1 },
		func(c *Config) { c.Chains = 0 },
		func(c *Config) { c.Initial = []float64{nan()} },
	}
	for i, m := range mutate {
		cfg := DefaultMetropolisConfig()
		m(cfg)
		err := cfg.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.IsConfigurationError(err), "case %d", i)
	}

	cfg := DefaultGibbsConfig()
	cfg.Initial = nil
	assert.Equal(t, models.NewChainState(0, 0), cfg.InitialState(2))
}

func TestRunnerExecuteMetropolis(t *testing.T) {
	runner := NewRunner(testLogger(), nil)
	cfg := DefaultMetropolisConfig()
	cfg.Iterations = 4000
	cfg.BurnIn = 500
	cfg.Chains = 3

	report, err := runner.Execute(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.SamplerMetropolis, report.Sampler)
	assert.Equal(t, targets.NameMixture, report.Target)
	require.Len(t, report.Runs, 3)
	require.Len(t, report.Summaries, 3)
	for i, s := range report.Summaries {
		assert.Equal(t, 3500, s.Count)
		assert.Equal(t, report.Runs[i].AcceptanceRate(), s.AcceptanceRate)
	}
	require.Len(t, report.RHat, 1)
	assert.Greater(t, report.RHat[0], 0.0)
	assert.False(t, report.CompletedAt.Before(report.CreatedAt))

	again, err := runner.Execute(context.Background(), cfg)
	require.NoError(t, err)
	for i := range report.Runs {
		assert.Equal(t, report.Summaries[i].Mean, again.Summaries[i].Mean)
	}
}

func TestRunnerExecuteGibbs(t *testing.T) {
	report, err := NewRunner(testLogger(), nil).Execute(context.Background(), DefaultGibbsConfig())
	require.NoError(t, err)

	require.Len(t, report.Summaries, 1)
	s := report.Summaries[0]
	assert.Equal(t, 4000, s.Count)
	require.Len(t, s.Correlation, 2)
	assert.InDelta(t, 0.8, s.Correlation[0][1], 0.05)
	assert.Nil(t, report.RHat)
}

func TestRunnerBurnInEqualsIterations(t *testing.T) {
	cfg := DefaultMetropolisConfig()
	cfg.Iterations = 100
	cfg.BurnIn = 100

	report, err := NewRunner(testLogger(), nil).Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summaries[0].Count)
	assert.Equal(t, 100, report.Runs[0].Trace.Len())
}

func TestRunnerRejectsBadConfig(t *testing.T) {
	runner := NewRunner(testLogger(), nil)

	cfg := DefaultGibbsConfig()
	cfg.Rho = 1.0
	_, err := runner.Execute(context.Background(), cfg)
	assert.True(t, errors.IsConfigurationError(err))

	cfg = DefaultMetropolisConfig()
	cfg.Iterations = -10
	_, err = runner.Execute(context.Background(), cfg)
	assert.True(t, errors.IsConfigurationError(err))
}
