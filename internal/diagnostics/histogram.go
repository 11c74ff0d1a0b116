package diagnostics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/mcmc/pkg/errors"
)

// Histogram is a density-normalized binning of samples
type Histogram struct {
	Edges   []float64 `json:"edges"`
	Counts  []float64 `json:"counts"`
	Density []float64 `json:"density"`
}

// NewHistogram bins xs into bins equal-width bins spanning [min, max].
// Density integrates to one over the bins.
func NewHistogram(xs []float64, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "histogram needs at least one bin")
	}
	if len(xs) == 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "histogram needs at least one sample")
	}

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		hi = lo + 1
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram needs the last divider strictly above the largest sample.
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)

	width := (hi - lo) / float64(bins)
	density := make([]float64, bins)
	for i, c := range counts {
		density[i] = c / (float64(len(xs)) * width)
	}

	return &Histogram{Edges: edges, Counts: counts, Density: density}, nil
}
