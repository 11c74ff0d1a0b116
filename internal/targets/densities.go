// Package targets provides target densities for the Metropolis-Hastings
// sampler, backed by gonum distributions.
package targets

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// Mixture is a weighted sum of univariate normal densities over the first
// coordinate. Weights need not sum to one.
type Mixture struct {
	Weights    []float64
	Components []distuv.Normal
}

// NewMixture validates weights and components
func NewMixture(weights []float64, components []distuv.Normal) (*Mixture, error) {
	if len(weights) == 0 || len(weights) != len(components) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "mixture needs one weight per component")
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "mixture weights must be finite and non-negative")
		}
		if !(components[i].Sigma > 0) {
			return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "mixture component sigma must be positive")
		}
	}
	return &Mixture{Weights: weights, Components: components}, nil
}

// CourseMixture returns 0.3·N(-2, 0.8) + 0.7·N(3, 1.5).
func CourseMixture() *Mixture {
	return &Mixture{
		Weights: []float64{0.3, 0.7},
		Components: []distuv.Normal{
			{Mu: -2, Sigma: 0.8},
			{Mu: 3, Sigma: 1.5},
		},
	}
}

// Evaluate returns the mixture density at state[0]
func (m *Mixture) Evaluate(state models.ChainState) float64 {
	x := state[0]
	p := 0.0
	for i, c := range m.Components {
		p += m.Weights[i] * c.Prob(x)
	}
	return p
}

// Dimension returns 1
func (m *Mixture) Dimension() int {
	return 1
}

// Mean returns the mean of the normalized mixture
func (m *Mixture) Mean() float64 {
	total, mean := 0.0, 0.0
	for i, c := range m.Components {
		total += m.Weights[i]
		mean += m.Weights[i] * c.Mu
	}
	if total == 0 {
		return 0
	}
	return mean / total
}

// Normal is a univariate normal target
type Normal struct {
	dist distuv.Normal
}

// NewNormal returns N(mu, sigma²)
func NewNormal(mu, sigma float64) (*Normal, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "normal target needs finite mu and positive sigma")
	}
	return &Normal{dist: distuv.Normal{Mu: mu, Sigma: sigma}}, nil
}

// Evaluate returns the density at state[0]
func (n *Normal) Evaluate(state models.ChainState) float64 {
	return n.dist.Prob(state[0])
}

// Dimension returns 1
func (n *Normal) Dimension() int {
	return 1
}

// BivariateNormal is a standard bivariate normal with correlation rho.
type BivariateNormal struct {
	Rho  float64
	dist *distmv.Normal
}

// NewBivariateNormal returns the standard bivariate normal with correlation rho, |rho| < 1.
func NewBivariateNormal(rho float64) (*BivariateNormal, error) {
	if math.IsNaN(rho) || math.Abs(rho) >= 1 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidCorrelation, "correlation must satisfy |rho| < 1")
	}
	sigma := mat.NewSymDense(2, []float64{1, rho, rho, 1})
	dist, ok := distmv.NewNormal([]float64{0, 0}, sigma, nil)
	if !ok {
		return nil, errors.NewConfigurationError(errors.CodeInvalidCorrelation, "covariance matrix is not positive definite")
	}
	return &BivariateNormal{Rho: rho, dist: dist}, nil
}

// Evaluate returns the joint density at (state[0], state[1])
func (b *BivariateNormal) Evaluate(state models.ChainState) float64 {
	return b.dist.Prob([]float64{state[0], state[1]})
}

// Dimension returns 2
func (b *BivariateNormal) Dimension() int {
	return 2
}

// Interval is uniform on [Low, High] and zero elsewhere.
type Interval struct {
	dist distuv.Uniform
}

// NewInterval returns the uniform density on [low, high]
func NewInterval(low, high float64) (*Interval, error) {
	if !(high > low) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "interval target needs finite low < high")
	}
	return &Interval{dist: distuv.Uniform{Min: low, Max: high}}, nil
}

// Evaluate returns 1/(High-Low) inside the interval, 0 outside
func (iv *Interval) Evaluate(state models.ChainState) float64 {
	return iv.dist.Prob(state[0])
}

// Dimension returns 1
func (iv *Interval) Dimension() int {
	return 1
}

// Point is positive at exactly one coordinate value and zero elsewhere.
type Point struct {
	At float64
}

// Evaluate returns 1 at p.At, 0 elsewhere
func (p *Point) Evaluate(state models.ChainState) float64 {
	if state[0] == p.At {
		return 1
	}
	return 0
}

// Dimension returns 1
func (p *Point) Dimension() int {
	return 1
}
