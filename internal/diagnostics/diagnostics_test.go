package diagnostics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/internal/random"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

func iidTrace(seed int64, n int) models.Trace {
	src := random.New(seed)
	tr := make(models.Trace, n)
	for i := range tr {
		tr[i] = models.ChainState{src.Normal(0, 1)}
	}
	return tr
}

func TestSummarizeBurnInIsAView(t *testing.T) {
	tr := models.Trace{{10}, {10}, {1}, {2}, {3}}

	s, err := Summarize(tr, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.BurnIn)
	assert.InDelta(t, 2.0, s.Mean[0], 1e-12)
	assert.InDelta(t, 1.0, s.StdDev[0], 1e-12)
	assert.Equal(t, 1.0, s.Min[0])
	assert.Equal(t, 3.0, s.Max[0])
	assert.Len(t, tr, 5, "trace must not be trimmed")
	assert.Equal(t, 10.0, tr[0][0])
}

func TestSummarizeRejectsBadBurnIn(t *testing.T) {
	tr := models.Trace{{1}, {2}}

	_, err := Summarize(tr, -1)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = Summarize(tr, 3)
	assert.True(t, errors.IsConfigurationError(err))

	s, err := Summarize(tr, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, []float64{0}, s.Mean)
}

func TestSummarizeCorrelationMatrix(t *testing.T) {
	tr := models.Trace{{1, 2}, {2, 4}, {3, 6}, {4, 8}}

	s, err := Summarize(tr, 0)
	require.NoError(t, err)
	require.Len(t, s.Correlation, 2)
	assert.InDelta(t, 1.0, s.Correlation[0][1], 1e-12)
	assert.InDelta(t, 1.0, s.Correlation[1][0], 1e-12)
	assert.Equal(t, 1.0, s.Correlation[0][0])
}

func TestSummarizeRunCarriesAcceptance(t *testing.T) {
	run := &models.RunResult{
		Trace:      models.Trace{{1}, {1}, {2}, {3}},
		Acceptance: models.AcceptanceCounter{Accepted: 2, Total: 4},
	}
	s, err := SummarizeRun(run, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.AcceptanceRate)
}

func TestCorrelationDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, Correlation([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Correlation([]float64{1}, []float64{1}))
	assert.InDelta(t, -1.0, Correlation([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
}

func TestAutocorrelation(t *testing.T) {
	acf := Autocorrelation([]float64{1, -1, 1, -1, 1, -1}, 2)
	require.Len(t, acf, 3)
	assert.Equal(t, 1.0, acf[0])
	assert.Less(t, acf[1], -0.5)
	assert.Greater(t, acf[2], 0.5)

	constant := Autocorrelation([]float64{2, 2, 2}, 10)
	assert.Equal(t, []float64{1, 1, 1}, constant)

	assert.Nil(t, Autocorrelation(nil, 3))
}

func TestEffectiveSampleSize(t *testing.T) {
	iid := iidTrace(5, 4000).Column(0)
	ess := EffectiveSampleSize(iid)
	assert.Greater(t, ess, 2500.0)
	assert.Less(t, ess, 6000.0)

	// AR(1) with phi = 0.9 has τ = (1+phi)/(1-phi) = 19
	src := random.New(6)
	ar := make([]float64, 20000)
	for i := 1; i < len(ar); i++ {
		ar[i] = 0.9*ar[i-1] + src.Normal(0, 1)
	}
	essAR := EffectiveSampleSize(ar)
	assert.Less(t, essAR, 2000.0)
	assert.Greater(t, essAR, 500.0)

	assert.Equal(t, 1.0, EffectiveSampleSize([]float64{3, 3, 3, 3, 3}))
	assert.Equal(t, 2.0, EffectiveSampleSize([]float64{1, 2}))
}

func TestGelmanRubin(t *testing.T) {
	a := iidTrace(1, 2000).Column(0)
	b := iidTrace(2, 2000).Column(0)

	r, err := GelmanRubin([][]float64{a, b})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 0.01)

	shifted := make([]float64, len(b))
	for i, v := range b {
		shifted[i] = v + 5
	}
	r, err = GelmanRubin([][]float64{a, shifted})
	require.NoError(t, err)
	assert.Greater(t, r, 2.0)

	_, err = GelmanRubin([][]float64{a})
	assert.True(t, errors.IsConfigurationError(err))

	_, err = GelmanRubin([][]float64{a, b[:10]})
	assert.True(t, errors.IsConfigurationError(err))
}

func TestRHatPerCoordinate(t *testing.T) {
	r, err := RHat([]models.Trace{iidTrace(3, 1000), iidTrace(4, 1000)}, 100)
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.InDelta(t, 1.0, r[0], 0.02)
}

func TestHistogramDensityIntegratesToOne(t *testing.T) {
	xs := iidTrace(8, 5000).Column(0)
	h, err := NewHistogram(xs, 40)
	require.NoError(t, err)

	require.Len(t, h.Edges, 41)
	require.Len(t, h.Counts, 40)

	total, area := 0.0, 0.0
	for i, c := range h.Counts {
		total += c
		area += h.Density[i] * (h.Edges[i+1] - h.Edges[i])
	}
	assert.Equal(t, 5000.0, total)
	assert.InDelta(t, 1.0, area, 1e-9)
}

func TestHistogramEdgeCases(t *testing.T) {
	h, err := NewHistogram([]float64{4, 4, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, h.Counts[0]+h.Counts[1])
	assert.False(t, math.IsNaN(h.Density[0]))

	_, err = NewHistogram(nil, 3)
	assert.Error(t, err)

	_, err = NewHistogram([]float64{1}, 0)
	assert.Error(t, err)
}
