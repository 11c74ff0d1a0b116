package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// GelmanRubin returns the potential scale reduction factor R̂ for chains of
// equal length. Values near 1 indicate the chains agree. It is reported
// only; chains always run their full iteration budget.
func GelmanRubin(chains [][]float64) (float64, error) {
	m := len(chains)
	if m < 2 {
		return 0, errors.NewConfigurationError(errors.CodeInvalidChains, "R-hat needs at least two chains")
	}
	n := len(chains[0])
	if n < 2 {
		return 0, errors.NewConfigurationError(errors.CodeInvalidIterations, "R-hat needs at least two draws per chain")
	}

	means := make([]float64, m)
	w := 0.0
	for i, c := range chains {
		if len(c) != n {
			return 0, errors.NewConfigurationError(errors.CodeInvalidIterations,
				fmt.Sprintf("chain %d has %d draws, expected %d", i, len(c), n))
		}
		mean, variance := stat.MeanVariance(c, nil)
		means[i] = mean
		w += variance
	}
	w /= float64(m)
	if w == 0 {
		return 0, errors.NewSamplingError(errors.CodeInvalidInput, "R-hat is undefined for chains with zero within-chain variance")
	}

	b := float64(n) * stat.Variance(means, nil)
	varHat := float64(n-1)/float64(n)*w + b/float64(n)
	return math.Sqrt(varHat / w), nil
}

// RHat computes R̂ per coordinate over the post-burn-in part of traces.
func RHat(traces []models.Trace, burnIn int) ([]float64, error) {
	if len(traces) < 2 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidChains, "R-hat needs at least two chains")
	}
	dim := traces[0].Dim()
	out := make([]float64, dim)
	for d := 0; d < dim; d++ {
		cols := make([][]float64, len(traces))
		for i, tr := range traces {
			cols[i] = tr.After(burnIn).Column(d)
		}
		r, err := GelmanRubin(cols)
		if err != nil {
			return nil, err
		}
		out[d] = r
	}
	return out, nil
}
