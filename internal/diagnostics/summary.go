// Package diagnostics computes post-burn-in statistics and convergence
// diagnostics over chain traces. Burn-in is always applied as a view; the
// trace itself is never modified.
package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// Summarize computes per-coordinate statistics of trace after discarding the
// first burnIn entries. burnIn must lie in [0, len(trace)]. When nothing is
// left after burn-in every statistic is zero and Count is 0.
func Summarize(trace models.Trace, burnIn int) (*models.Summary, error) {
	if burnIn < 0 || burnIn > len(trace) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidBurnIn,
			fmt.Sprintf("burn-in must lie in [0, %d], got %d", len(trace), burnIn))
	}

	kept := trace.After(burnIn)
	dim := trace.Dim()

	s := &models.Summary{
		BurnIn: burnIn,
		Count:  len(kept),
		Mean:   make([]float64, dim),
		StdDev: make([]float64, dim),
		Min:    make([]float64, dim),
		Max:    make([]float64, dim),
		ESS:    make([]float64, dim),
	}
	if len(kept) == 0 {
		return s, nil
	}

	columns := make([][]float64, dim)
	for d := 0; d < dim; d++ {
		col := kept.Column(d)
		columns[d] = col

		s.Mean[d] = stat.Mean(col, nil)
		if len(col) > 1 {
			s.StdDev[d] = stat.StdDev(col, nil)
		}
		s.Min[d] = floats.Min(col)
		s.Max[d] = floats.Max(col)
		s.ESS[d] = EffectiveSampleSize(col)
	}

	if dim > 1 {
		s.Correlation = make([][]float64, dim)
		for i := 0; i < dim; i++ {
			s.Correlation[i] = make([]float64, dim)
			for j := 0; j < dim; j++ {
				switch {
				case i == j:
					s.Correlation[i][j] = 1
				case j < i:
					s.Correlation[i][j] = s.Correlation[j][i]
				default:
					s.Correlation[i][j] = Correlation(columns[i], columns[j])
				}
			}
		}
	}

	return s, nil
}

// SummarizeRun summarizes a run and attaches its acceptance rate
func SummarizeRun(run *models.RunResult, burnIn int) (*models.Summary, error) {
	s, err := Summarize(run.Trace, burnIn)
	if err != nil {
		return nil, err
	}
	s.AcceptanceRate = run.AcceptanceRate()
	return s, nil
}

// Correlation returns the Pearson correlation of x and y, or 0 when either
// series has zero variance or fewer than two points.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// MeanAfter returns the mean of coordinate d past burnIn, 0 when empty.
func MeanAfter(trace models.Trace, d, burnIn int) float64 {
	kept := trace.After(burnIn)
	if len(kept) == 0 {
		return 0
	}
	return stat.Mean(kept.Column(d), nil)
}
