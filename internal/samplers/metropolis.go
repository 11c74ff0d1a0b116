package samplers

import (
	"fmt"
	"math"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// MetropolisStepper is a Metropolis-Hastings chain with a symmetric proposal.
//
// One transition:
//  1. draw x' from the proposal around the current state x;
//  2. α = min(1, p(x')/p(x)); when p(x) == 0, α = 1 if p(x') > 0 and 0 otherwise;
//  3. draw u ~ U[0,1) and move to x' when u < α;
//  4. record the resulting state, which repeats x on rejection.
//
// The uniform is drawn on every step, including when α is 0 or 1, so the
// number of draws consumed per iteration is fixed.
type MetropolisStepper struct {
	target   interfaces.Density
	proposal interfaces.Proposal
	src      interfaces.RandomSource
	dim      int

	current        models.ChainState
	currentDensity float64
	counter        models.AcceptanceCounter
	ready          bool
}

// NewMetropolis builds a stepper. The proposal must be symmetric.
func NewMetropolis(target interfaces.Density, proposal interfaces.Proposal, src interfaces.RandomSource) (*MetropolisStepper, error) {
	if target == nil {
		return nil, errors.NewConfigurationError(errors.CodeMissingTarget, "target density is required")
	}
	if proposal == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidScale, "proposal is required")
	}
	if !proposal.Symmetric() {
		return nil, errors.NewConfigurationError(errors.CodeInvalidScale, "asymmetric proposals are not supported")
	}
	if src == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "random source is required")
	}

	dim := 0
	if d, ok := target.(interfaces.Dimensioned); ok {
		dim = d.Dimension()
	}

	return &MetropolisStepper{
		target:   target,
		proposal: proposal,
		src:      src,
		dim:      dim,
	}, nil
}

// Kind returns SamplerMetropolis
func (m *MetropolisStepper) Kind() models.SamplerKind {
	return models.SamplerMetropolis
}

// Dimension returns the target dimension, 0 when the target does not declare one
func (m *MetropolisStepper) Dimension() int {
	return m.dim
}

// Reset places the chain at initial and evaluates its density.
func (m *MetropolisStepper) Reset(initial models.ChainState) error {
	if err := checkInitial(initial, m.dim); err != nil {
		return err
	}

	state := initial.Clone()
	p, err := evaluate(m.target, state)
	if err != nil {
		return err
	}

	m.current = state
	m.currentDensity = p
	m.counter.Reset()
	m.ready = true
	return nil
}

// Step performs one Metropolis-Hastings transition
func (m *MetropolisStepper) Step() (models.ChainState, bool, error) {
	if !m.ready {
		return nil, false, errors.NewInternalError("stepper used before Reset")
	}

	candidate := m.proposal.Propose(m.current, m.src)
	pCandidate, err := evaluate(m.target, candidate)
	if err != nil {
		return nil, false, err
	}

	alpha := acceptanceProbability(m.currentDensity, pCandidate)
	accepted := m.src.Uniform() < alpha
	if accepted {
		m.current = candidate
		m.currentDensity = pCandidate
	}
	m.counter.Record(accepted)

	return m.current, accepted, nil
}

// Acceptance returns the running counter
func (m *MetropolisStepper) Acceptance() models.AcceptanceCounter {
	return m.counter
}

// Current returns the current state and its density
func (m *MetropolisStepper) Current() (models.ChainState, float64) {
	return m.current, m.currentDensity
}

// acceptanceProbability returns min(1, candidate/current). A zero current
// density always moves to a positive candidate and never to a zero one.
func acceptanceProbability(current, candidate float64) float64 {
	if current == 0 {
		if candidate > 0 {
			return 1
		}
		return 0
	}
	return math.Min(1, candidate/current)
}

// evaluate calls the target and rejects values that would corrupt the chain.
func evaluate(target interfaces.Density, state models.ChainState) (float64, error) {
	p := target.Evaluate(state)
	switch {
	case math.IsNaN(p):
		return 0, errors.NewEvaluationError(errors.CodeDensityNaN, "target density returned NaN").
			WithContext("state", []float64(state))
	case math.IsInf(p, 0):
		return 0, errors.NewEvaluationError(errors.CodeDensityInfinite, "target density returned an infinite value").
			WithContext("state", []float64(state))
	case p < 0:
		return 0, errors.NewEvaluationError(errors.CodeDensityNegative,
			fmt.Sprintf("target density returned negative value %v", p)).
			WithContext("state", []float64(state))
	}
	return p, nil
}

func checkInitial(initial models.ChainState, dim int) error {
	if len(initial) == 0 {
		return errors.NewConfigurationError(errors.CodeInvalidDimension, "initial state must have at least one coordinate")
	}
	if dim > 0 && len(initial) != dim {
		return errors.NewConfigurationError(errors.CodeInvalidDimension,
			fmt.Sprintf("initial state has %d coordinates, sampler needs %d", len(initial), dim))
	}
	if !initial.IsFinite() {
		return errors.NewConfigurationError(errors.CodeInvalidState, "initial state must be finite")
	}
	return nil
}
