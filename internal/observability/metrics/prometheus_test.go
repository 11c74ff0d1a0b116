package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/pkg/models"
)

func newTestMetrics(t *testing.T) *PrometheusMetrics {
	t.Helper()
	pm, err := NewPrometheusMetrics(nil, logrus.New())
	require.NoError(t, err)
	return pm
}

func TestRecordRun(t *testing.T) {
	pm := newTestMetrics(t)

	pm.RecordRun(models.SamplerMetropolis, "mixture", 1000, 0.42, 10*time.Millisecond, nil)
	pm.RecordRun(models.SamplerMetropolis, "mixture", 250, 0, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.chainRunsTotal.WithLabelValues("metropolis", "mixture", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.chainRunsTotal.WithLabelValues("metropolis", "mixture", "error")))
	assert.Equal(t, 1250.0, testutil.ToFloat64(pm.chainIterationsTotal.WithLabelValues("metropolis", "mixture")))
	assert.Equal(t, 0.42, testutil.ToFloat64(pm.chainAcceptanceRate.WithLabelValues("metropolis", "mixture")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.errorsTotal.WithLabelValues("sampler", "metropolis")))
}

func TestActiveChains(t *testing.T) {
	pm := newTestMetrics(t)

	pm.ChainStarted()
	pm.ChainStarted()
	pm.ChainFinished()

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.chainsActive))
}

func TestHandlerExposesMetrics(t *testing.T) {
	pm := newTestMetrics(t)
	pm.RecordRun(models.SamplerGibbs, "", 5000, 1, time.Second, nil)
	pm.RecordHTTPRequest("POST", "/api/v1/runs", "201", 20*time.Millisecond)
	pm.RecordStorageOperation("file", "save", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	pm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "mcmc_sampler_chain_runs_total"))
	assert.True(t, strings.Contains(body, "mcmc_http_requests_total"))
	assert.True(t, strings.Contains(body, "mcmc_storage_operations_total"))
}

func TestStopWithoutStart(t *testing.T) {
	pm := newTestMetrics(t)
	assert.NoError(t, pm.Stop(context.Background()))
}
