package targets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

func TestCourseMixtureDensity(t *testing.T) {
	m := CourseMixture()

	// 0.3·φ(0; -2, 0.8) + 0.7·φ(0; 3, 1.5)
	want := 0.3*math.Exp(-0.5*math.Pow(2/0.8, 2))/(0.8*math.Sqrt(2*math.Pi)) +
		0.7*math.Exp(-0.5*math.Pow(3/1.5, 2))/(1.5*math.Sqrt(2*math.Pi))

	assert.InDelta(t, want, m.Evaluate(models.NewChainState(0)), 1e-12)
	assert.InDelta(t, 1.5, m.Mean(), 1e-12)
	assert.Equal(t, 1, m.Dimension())
}

func TestMixtureIntegratesToOne(t *testing.T) {
	m := CourseMixture()
	const h = 0.001
	sum := 0.0
	for x := -15.0; x <= 20.0; x += h {
		sum += m.Evaluate(models.ChainState{x}) * h
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestNewMixtureRejectsBadInput(t *testing.T) {
	_, err := MixtureOf([]float64{1}, []float64{0, 1}, []float64{1, 1})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = MixtureOf([]float64{-1}, []float64{0}, []float64{1})
	assert.True(t, errors.IsConfigurationError(err))

	_, err = MixtureOf([]float64{1}, []float64{0}, []float64{0})
	assert.True(t, errors.IsConfigurationError(err))
}

func TestNormalTarget(t *testing.T) {
	n, err := NewNormal(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), n.Evaluate(models.ChainState{0}), 1e-12)

	_, err = NewNormal(0, 0)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestBivariateNormal(t *testing.T) {
	b, err := NewBivariateNormal(0.5)
	require.NoError(t, err)

	want := 1 / (2 * math.Pi * math.Sqrt(1-0.25))
	assert.InDelta(t, want, b.Evaluate(models.ChainState{0, 0}), 1e-9)
	assert.Equal(t, 2, b.Dimension())

	_, err = NewBivariateNormal(1)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestIntervalAndPoint(t *testing.T) {
	iv, err := NewInterval(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, iv.Evaluate(models.ChainState{2.5}))
	assert.Equal(t, 0.0, iv.Evaluate(models.ChainState{0}))

	_, err = NewInterval(3, 2)
	assert.True(t, errors.IsConfigurationError(err))

	p := &Point{At: 1}
	assert.Equal(t, 1.0, p.Evaluate(models.ChainState{1}))
	assert.Equal(t, 0.0, p.Evaluate(models.ChainState{1.0000001}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	names := make([]string, 0)
	for _, info := range r.List() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{NameBivariate, NameInterval, NameMixture, NameNormal, NamePoint}, names)

	d, err := r.Create(NameNormal, Params{"mu": 2, "sigma": 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1/(0.5*math.Sqrt(2*math.Pi)), d.Evaluate(models.ChainState{2}), 1e-12)

	_, err = r.Create("nope", nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsConfigurationError(err))
}
