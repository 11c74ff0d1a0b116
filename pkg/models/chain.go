package models

import (
	"math"
	"time"
)

// SamplerKind identifies a chain stepper implementation
type SamplerKind string

const (
	SamplerMetropolis SamplerKind = "metropolis"
	SamplerGibbs      SamplerKind = "gibbs"
)

// ChainState is an ordered tuple of real-valued coordinates.
// A recorded state is never modified; steppers always build a new one.
type ChainState []float64

// NewChainState copies coords into a fresh state.
func NewChainState(coords ...float64) ChainState {
	s := make(ChainState, len(coords))
	copy(s, coords)
	return s
}

// ZeroState returns the origin in dim dimensions.
func ZeroState(dim int) ChainState {
	return make(ChainState, dim)
}

// Dim returns the number of coordinates
func (s ChainState) Dim() int {
	return len(s)
}

// Clone returns a copy that does not share storage with s
func (s ChainState) Clone() ChainState {
	return NewChainState(s...)
}

// Equal reports whether both states hold bit-identical coordinates.
func (s ChainState) Equal(other ChainState) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if math.Float64bits(s[i]) != math.Float64bits(other[i]) {
			return false
		}
	}
	return true
}

// IsFinite reports whether every coordinate is a finite number
func (s ChainState) IsFinite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Trace is the ordered sequence of states produced by one chain, indexed by
// iteration. Consumers treat it as read-only.
type Trace []ChainState

// Len returns the number of recorded iterations
func (t Trace) Len() int {
	return len(t)
}

// At returns the state recorded at iteration i
func (t Trace) At(i int) ChainState {
	return t[i]
}

// After returns the view of the trace past the first burnIn entries.
// burnIn is clamped to [0, len(t)].
func (t Trace) After(burnIn int) Trace {
	if burnIn < 0 {
		burnIn = 0
	}
	if burnIn > len(t) {
		burnIn = len(t)
	}
	return t[burnIn:len(t):len(t)]
}

// Head returns the view of the first k entries, clamped to len(t).
func (t Trace) Head(k int) Trace {
	if k < 0 {
		k = 0
	}
	if k > len(t) {
		k = len(t)
	}
	return t[:k:k]
}

// Dim returns the dimension of the recorded states, 0 for an empty trace
func (t Trace) Dim() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// Column extracts coordinate d of every state into a new slice.
func (t Trace) Column(d int) []float64 {
	col := make([]float64, len(t))
	for i, s := range t {
		col[i] = s[d]
	}
	return col
}

// AcceptanceCounter counts accepted proposals against total iterations.
type AcceptanceCounter struct {
	Accepted int `json:"accepted"`
	Total    int `json:"total"`
}

// Reset zeroes both counts
func (c *AcceptanceCounter) Reset() {
	c.Accepted = 0
	c.Total = 0
}

// Record counts one iteration
func (c *AcceptanceCounter) Record(accepted bool) {
	c.Total++
	if accepted {
		c.Accepted++
	}
}

// Rate returns Accepted/Total, or 0 before any iteration.
func (c AcceptanceCounter) Rate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Total)
}

// RunResult is the output of a single chain run
type RunResult struct {
	ID          string            `json:"id"`
	Sampler     SamplerKind       `json:"sampler"`
	Target      string            `json:"target,omitempty"`
	Chain       int               `json:"chain"`
	Seed        int64             `json:"seed"`
	Initial     ChainState        `json:"initial"`
	Trace       Trace             `json:"trace"`
	Acceptance  AcceptanceCounter `json:"acceptance"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// AcceptanceRate returns the fraction of accepted proposals
func (r *RunResult) AcceptanceRate() float64 {
	return r.Acceptance.Rate()
}

// Duration returns the wall time of the run
func (r *RunResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
