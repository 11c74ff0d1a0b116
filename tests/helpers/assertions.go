package helpers

import (
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/mcmc/pkg/models"
)

// AssertFloatEquals asserts that two floats are equal within tolerance
func AssertFloatEquals(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...interface{}) {
	t.Helper()

	if math.IsNaN(expected) && math.IsNaN(actual) {
		return
	}
	if math.Abs(expected-actual) > tolerance {
		assert.Fail(t, fmt.Sprintf("expected %v, got %v (tolerance %v)", expected, actual, tolerance), msgAndArgs...)
	}
}

// AssertFloatSliceEquals asserts that two float slices are equal element-wise within tolerance
func AssertFloatSliceEquals(t *testing.T, expected, actual []float64, tolerance float64, msgAndArgs ...interface{}) {
	t.Helper()

	require.Equal(t, len(expected), len(actual), "slice lengths differ")
	for i := range expected {
		AssertFloatEquals(t, expected[i], actual[i], tolerance, fmt.Sprintf("index %d: %s", i, fmt.Sprint(msgAndArgs...)))
	}
}

// AssertWithinRange asserts that lo <= value <= hi
func AssertWithinRange(t *testing.T, value, lo, hi float64, msgAndArgs ...interface{}) {
	t.Helper()

	if value < lo || value > hi {
		assert.Fail(t, fmt.Sprintf("value %v outside [%v, %v]", value, lo, hi), msgAndArgs...)
	}
}

// AssertStatisticalProperties asserts the sample mean and standard deviation of data
func AssertStatisticalProperties(t *testing.T, data []float64, expectedMean, expectedStdDev, tolerance float64) {
	t.Helper()

	require.NotEmpty(t, data, "data cannot be empty")

	mean, stdDev := stat.MeanStdDev(data, nil)
	AssertFloatEquals(t, expectedMean, mean, tolerance, "mean mismatch")
	AssertFloatEquals(t, expectedStdDev, stdDev, tolerance, "standard deviation mismatch")
}

// AssertCorrelation asserts the Pearson correlation of two series
func AssertCorrelation(t *testing.T, x, y []float64, expectedCorrelation, tolerance float64) {
	t.Helper()

	require.Equal(t, len(x), len(y), "data series must have same length")
	require.NotEmpty(t, x, "data cannot be empty")

	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		t.Fatal("cannot calculate correlation: zero variance")
	}
	AssertFloatEquals(t, expectedCorrelation, stat.Correlation(x, y, nil), tolerance, "correlation mismatch")
}

// AssertTraceShape asserts that trace has length n and every state has dim
// finite coordinates
func AssertTraceShape(t *testing.T, trace models.Trace, n, dim int) {
	t.Helper()

	require.Equal(t, n, trace.Len(), "trace length mismatch")
	for i, state := range trace {
		require.Equal(t, dim, state.Dim(), "state %d dimension mismatch", i)
		require.True(t, state.IsFinite(), "state %d is not finite: %v", i, state)
	}
}

// AssertTracesIdentical asserts that two traces hold bit-identical states
func AssertTracesIdentical(t *testing.T, expected, actual models.Trace) {
	t.Helper()

	require.Equal(t, expected.Len(), actual.Len(), "trace lengths differ")
	for i := range expected {
		if !expected[i].Equal(actual[i]) {
			t.Fatalf("traces diverge at iteration %d: %v != %v", i, expected[i], actual[i])
		}
	}
}

// AssertRejectionsRepeat asserts that the number of iterations whose state
// moved does not exceed the accepted count. A rejected step repeats the
// previous state, so every move must come from an acceptance.
func AssertRejectionsRepeat(t *testing.T, result *models.RunResult, initial models.ChainState) {
	t.Helper()

	moves := 0
	prev := initial
	for _, state := range result.Trace {
		if !state.Equal(prev) {
			moves++
		}
		prev = state
	}
	assert.LessOrEqual(t, moves, result.Acceptance.Accepted, "more moves than acceptances")
	assert.Equal(t, result.Trace.Len(), result.Acceptance.Total, "every iteration must be counted")
}

// AssertAcceptanceRateInRange asserts the acceptance rate of result
func AssertAcceptanceRateInRange(t *testing.T, result *models.RunResult, lo, hi float64) {
	t.Helper()
	AssertWithinRange(t, result.AcceptanceRate(), lo, hi, "acceptance rate")
}

// AssertEventuallyTrue asserts that condition becomes true within timeout
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	t.Fatalf("condition did not become true within %v. %s", timeout, fmt.Sprint(msgAndArgs...))
}

// AssertFileExists asserts that path exists and is not empty
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err, "file %s should exist", path)
	assert.Greater(t, info.Size(), int64(0), "file %s should not be empty", path)
}
