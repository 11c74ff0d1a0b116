package diagnostics

import (
	"gonum.org/v1/gonum/stat"
)

// Autocorrelation returns the sample autocorrelation of xs at lags
// 0..maxLag, using the biased (1/n) autocovariance estimator. maxLag is
// clamped to len(xs)-1. A constant series is perfectly correlated with
// itself at every lag.
func Autocorrelation(xs []float64, maxLag int) []float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	if maxLag > n-1 {
		maxLag = n - 1
	}
	if maxLag < 0 {
		maxLag = 0
	}

	acf := make([]float64, maxLag+1)
	mean := stat.Mean(xs, nil)
	c0 := autocovariance(xs, mean, 0)
	if c0 == 0 {
		for k := range acf {
			acf[k] = 1
		}
		return acf
	}
	for k := 0; k <= maxLag; k++ {
		acf[k] = autocovariance(xs, mean, k) / c0
	}
	return acf
}

// EffectiveSampleSize estimates n/τ where τ is the integrated
// autocorrelation time, truncated with Geyer's initial positive sequence:
// pairs ρ(2k)+ρ(2k+1) are summed while they stay positive.
// A constant series has an effective size of 1.
func EffectiveSampleSize(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n < 4 {
		return float64(n)
	}

	mean := stat.Mean(xs, nil)
	c0 := autocovariance(xs, mean, 0)
	if c0 == 0 {
		return 1
	}

	sum := 0.0
	for k := 0; 2*k+1 < n; k++ {
		pair := (autocovariance(xs, mean, 2*k) + autocovariance(xs, mean, 2*k+1)) / c0
		if pair <= 0 {
			break
		}
		sum += pair
	}

	tau := 2*sum - 1
	if tau < 1.0/float64(n) {
		tau = 1.0 / float64(n)
	}
	return float64(n) / tau
}

func autocovariance(xs []float64, mean float64, lag int) float64 {
	n := len(xs)
	s := 0.0
	for t := 0; t+lag < n; t++ {
		s += (xs[t] - mean) * (xs[t+lag] - mean)
	}
	return s / float64(n)
}
