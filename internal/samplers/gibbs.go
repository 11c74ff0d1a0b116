package samplers

import (
	"fmt"
	"math"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// GibbsStepper samples a standard bivariate normal with correlation Rho by
// drawing each coordinate from its exact conditional:
//
//	x | y ~ N(ρ·y, 1-ρ²)
//	y | x ~ N(ρ·x, 1-ρ²)
//
// The y draw uses the freshly drawn x. Every step is accepted.
type GibbsStepper struct {
	rho  float64
	sd   float64
	src  interfaces.RandomSource
	x, y float64

	counter models.AcceptanceCounter
	ready   bool
}

// NewGibbs validates |rho| < 1
func NewGibbs(rho float64, src interfaces.RandomSource) (*GibbsStepper, error) {
	if math.IsNaN(rho) || math.IsInf(rho, 0) || math.Abs(rho) >= 1 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidCorrelation,
			fmt.Sprintf("correlation must satisfy |rho| < 1, got %v", rho))
	}
	if src == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "random source is required")
	}
	return &GibbsStepper{
		rho: rho,
		sd:  math.Sqrt(1 - rho*rho),
		src: src,
	}, nil
}

// Kind returns SamplerGibbs
func (g *GibbsStepper) Kind() models.SamplerKind {
	return models.SamplerGibbs
}

// Dimension returns 2
func (g *GibbsStepper) Dimension() int {
	return 2
}

// Rho returns the configured correlation
func (g *GibbsStepper) Rho() float64 {
	return g.rho
}

// Reset places the chain at (initial[0], initial[1])
func (g *GibbsStepper) Reset(initial models.ChainState) error {
	if err := checkInitial(initial, 2); err != nil {
		return err
	}
	g.x, g.y = initial[0], initial[1]
	g.counter.Reset()
	g.ready = true
	return nil
}

// Step draws x from x|y, then y from y|x_new
func (g *GibbsStepper) Step() (models.ChainState, bool, error) {
	if !g.ready {
		return nil, false, errors.NewInternalError("stepper used before Reset")
	}

	x := g.src.Normal(g.rho*g.y, g.sd)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, false, errors.NewEvaluationError(errors.CodeDrawInvalid, "conditional draw for x is not finite")
	}
	y := g.src.Normal(g.rho*x, g.sd)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return nil, false, errors.NewEvaluationError(errors.CodeDrawInvalid, "conditional draw for y is not finite")
	}

	g.x, g.y = x, y
	g.counter.Record(true)
	return models.ChainState{x, y}, true, nil
}

// Acceptance returns the running counter; Accepted always equals Total
func (g *GibbsStepper) Acceptance() models.AcceptanceCounter {
	return g.counter
}
