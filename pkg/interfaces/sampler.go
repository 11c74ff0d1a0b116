package interfaces

import (
	"github.com/inferloop/mcmc/pkg/models"
)

// RandomSource supplies the draws consumed by a chain. Implementations are
// owned by a single chain and need not be safe for concurrent use.
type RandomSource interface {
	// Uniform returns a draw from [0, 1)
	Uniform() float64

	// Normal returns a draw from N(mean, std²)
	Normal(mean, std float64) float64
}

// Density evaluates a target density up to a normalizing constant.
// Values must be finite and non-negative; zero marks an impossible state.
type Density interface {
	Evaluate(state models.ChainState) float64
}

// DensityFunc adapts a plain function to the Density interface
type DensityFunc func(state models.ChainState) float64

// Evaluate calls f(state)
func (f DensityFunc) Evaluate(state models.ChainState) float64 {
	return f(state)
}

// Dimensioned is implemented by targets defined on a fixed number of coordinates
type Dimensioned interface {
	Dimension() int
}

// Proposal draws a candidate state from the current one.
//
// Only symmetric proposals are supported by the acceptance rule; an
// asymmetric proposal would need the q(x|x')/q(x'|x) correction.
type Proposal interface {
	Propose(current models.ChainState, src RandomSource) models.ChainState
	Symmetric() bool
}

// Stepper executes single transitions of a Markov chain
type Stepper interface {
	// Kind returns the sampler type
	Kind() models.SamplerKind

	// Dimension returns the required state dimension, 0 if any is accepted
	Dimension() int

	// Reset starts a new chain at initial and zeroes the acceptance counter
	Reset(initial models.ChainState) error

	// Step performs one transition and returns the recorded state and
	// whether a move was accepted
	Step() (models.ChainState, bool, error)

	// Acceptance returns the running acceptance counter
	Acceptance() models.AcceptanceCounter
}
