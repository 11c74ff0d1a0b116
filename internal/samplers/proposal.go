package samplers

import (
	"fmt"
	"math"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// RandomWalk is the symmetric Gaussian proposal x' = x + N(0, Scale²),
// applied independently to every coordinate.
type RandomWalk struct {
	Scale float64
}

// NewRandomWalk validates scale > 0
func NewRandomWalk(scale float64) (*RandomWalk, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidScale,
			fmt.Sprintf("proposal scale must be positive and finite, got %v", scale))
	}
	return &RandomWalk{Scale: scale}, nil
}

// Propose draws a candidate around current
func (rw *RandomWalk) Propose(current models.ChainState, src interfaces.RandomSource) models.ChainState {
	candidate := make(models.ChainState, len(current))
	for i, x := range current {
		candidate[i] = x + src.Normal(0, rw.Scale)
	}
	return candidate
}

// Symmetric returns true
func (rw *RandomWalk) Symmetric() bool {
	return true
}
