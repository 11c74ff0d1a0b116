package models

import "time"

// Summary holds post-burn-in statistics of a trace, one entry per coordinate.
type Summary struct {
	BurnIn         int         `json:"burn_in"`
	Count          int         `json:"count"`
	Mean           []float64   `json:"mean"`
	StdDev         []float64   `json:"std_dev"`
	Min            []float64   `json:"min"`
	Max            []float64   `json:"max"`
	Correlation    [][]float64 `json:"correlation,omitempty"`
	ESS            []float64   `json:"ess"`
	AcceptanceRate float64     `json:"acceptance_rate"`
}

// RunReport groups the chains of one sampling request with their diagnostics.
type RunReport struct {
	ID          string       `json:"id"`
	Sampler     SamplerKind  `json:"sampler"`
	Target      string       `json:"target,omitempty"`
	Iterations  int          `json:"iterations"`
	BurnIn      int          `json:"burn_in"`
	Seed        int64        `json:"seed"`
	Runs        []*RunResult `json:"runs"`
	Summaries   []*Summary   `json:"summaries"`
	RHat        []float64    `json:"r_hat,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Traces returns the trace of every chain in chain order
func (r *RunReport) Traces() []Trace {
	traces := make([]Trace, len(r.Runs))
	for i, run := range r.Runs {
		traces[i] = run.Trace
	}
	return traces
}

// OverallAcceptanceRate pools acceptance counts across chains.
func (r *RunReport) OverallAcceptanceRate() float64 {
	var total AcceptanceCounter
	for _, run := range r.Runs {
		total.Accepted += run.Acceptance.Accepted
		total.Total += run.Acceptance.Total
	}
	return total.Rate()
}
