package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/internal/export"
	"github.com/inferloop/mcmc/internal/observability/metrics"
	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/internal/storage/implementations/memory"
	"github.com/inferloop/mcmc/internal/targets"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	config := DefaultConfig()
	config.MaxIterations = 20000
	srv, err := NewServer(config, deps, testLogger())
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *errors.AppError {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func createRun(t *testing.T, srv *Server, body string) *RunView {
	t.Helper()
	rec := do(srv, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "/api/v1/runs/"+view.ID, rec.Header().Get("Location"))
	return &view
}

type failingStore struct {
	*memory.MemoryStorage
}

func (f failingStore) Ping(ctx context.Context) error {
	return errors.NewStorageError(errors.CodeConnectionFailed, "backend unreachable")
}

func TestNewServerValidatesConfig(t *testing.T) {
	config := DefaultConfig()
	config.Port = 0
	_, err := NewServer(config, Dependencies{}, testLogger())
	assert.True(t, errors.IsConfigurationError(err))

	config = DefaultConfig()
	config.MaxChains = 0
	_, err = NewServer(config, Dependencies{}, testLogger())
	assert.True(t, errors.IsConfigurationError(err))
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	view := createRun(t, srv, `{"sampler":"metropolis","iterations":500,"burn_in":100,"chains":2,"seed":7}`)
	assert.Equal(t, models.SamplerMetropolis, view.Sampler)
	assert.Equal(t, targets.NameMixture, view.Target)
	assert.Equal(t, 2, view.Chains)
	require.Len(t, view.Summaries, 2)
	assert.Equal(t, 400, view.Summaries[0].Count)
	assert.True(t, view.AcceptanceRate > 0 && view.AcceptanceRate <= 1)

	rec := do(srv, http.MethodGet, "/api/v1/runs/"+view.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, view.ID, fetched.ID)
	assert.Equal(t, view.AcceptanceRate, fetched.AcceptanceRate)

	rec = do(srv, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []string `json:"runs"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{view.ID}, list.Runs)
	assert.Equal(t, 1, list.Count)

	rec = do(srv, http.MethodDelete, "/api/v1/runs/"+view.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(srv, http.MethodGet, "/api/v1/runs/"+view.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeDataNotFound, decodeError(t, rec).Code)

	rec = do(srv, http.MethodDelete, "/api/v1/runs/"+view.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	body := `{"iterations":300,"seed":11}`

	a := createRun(t, srv, body)
	b := createRun(t, srv, body)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.AcceptanceRate, b.AcceptanceRate)
	assert.Equal(t, a.Summaries[0].Mean, b.Summaries[0].Mean)
}

func TestTraceDownload(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	view := createRun(t, srv, `{"iterations":300,"burn_in":50,"chains":2,"seed":3}`)

	rec := do(srv, http.MethodGet, view.TraceURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), view.ID+".csv")

	traces, err := export.ReadCSV(rec.Body)
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Len(t, traces[0], 300)

	rec = do(srv, http.MethodGet, view.TraceURL+"?burnin=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	traces, err = export.ReadCSV(rec.Body)
	require.NoError(t, err)
	assert.Len(t, traces[1], 250)

	rec = do(srv, http.MethodGet, view.TraceURL+"?format=jsonl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 600)

	rec = do(srv, http.MethodGet, view.TraceURL+"?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, view.TraceURL+"?burnin=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/api/v1/runs/missing/trace", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGibbsRun(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	view := createRun(t, srv, `{"sampler":"gibbs","rho":0.5,"iterations":2000,"burn_in":200,"seed":5}`)
	assert.Equal(t, models.SamplerGibbs, view.Sampler)
	assert.Equal(t, 1.0, view.AcceptanceRate)
	require.Len(t, view.Summaries, 1)
	assert.InDelta(t, 0.5, view.Summaries[0].Correlation[0][1], 0.1)
}

func TestCreateRunRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"iterations":`, errors.CodeInvalidInput},
		{"correlation of one", `{"sampler":"gibbs","rho":1}`, errors.CodeInvalidCorrelation},
		{"explicit zero scale", `{"proposal_scale":0}`, errors.CodeInvalidScale},
		{"negative iterations", `{"iterations":-1,"burn_in":0}`, errors.CodeInvalidIterations},
		{"too many iterations", `{"iterations":50000}`, errors.CodeInvalidIterations},
		{"too many chains", `{"chains":100}`, errors.CodeInvalidChains},
		{"burn-in beyond run", `{"iterations":10,"burn_in":11}`, errors.CodeInvalidBurnIn},
		{"unknown target", `{"target":"banana"}`, errors.CodeUnknownTarget},
		{"unknown sampler", `{"sampler":"slice"}`, errors.CodeUnsupportedSampler},
		{"wrong dimension", `{"sampler":"gibbs","initial":[1,2,3]}`, errors.CodeInvalidDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestCreateRunReportsEvaluationErrors(t *testing.T) {
	runner := samplers.NewRunner(testLogger(), nil)
	runner.Factory().Targets().Register(targets.Info{Name: "broken", Dimension: 1},
		func(targets.Params) (interfaces.Density, error) {
			return interfaces.DensityFunc(func(models.ChainState) float64 { return math.NaN() }), nil
		})
	srv := newTestServer(t, Dependencies{Runner: runner})

	rec := do(srv, http.MethodPost, "/api/v1/runs", `{"target":"broken","iterations":10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, errors.CodeDensityNaN, decodeError(t, rec).Code)

	rec = do(srv, http.MethodGet, "/api/v1/runs", "")
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := do(srv, http.MethodGet, "/api/v1/targets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var targetList struct {
		Targets []targets.Info `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &targetList))
	names := make([]string, 0, len(targetList.Targets))
	for _, info := range targetList.Targets {
		names = append(names, info.Name)
	}
	assert.Contains(t, names, targets.NameMixture)
	assert.Contains(t, names, targets.NameBivariate)

	rec = do(srv, http.MethodGet, "/api/v1/samplers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gibbs"`)
	assert.Contains(t, rec.Body.String(), `"metropolis"`)

	rec = do(srv, http.MethodGet, "/api/v1/formats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jsonl"`)
}

func TestRoutingErrors(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := do(srv, http.MethodGet, "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodPut, "/api/v1/runs", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMiddleware(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(srv, http.MethodGet, "/version", "")
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	big := `{"seed":1,"pad":"` + strings.Repeat("x", int(srv.config.MaxRequestSize)) + `"}`
	rec = do(srv, http.MethodPost, "/api/v1/runs", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	rec := do(srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"overall_status":"healthy"`)
	assert.Contains(t, rec.Body.String(), "trace_store")

	srv = newTestServer(t, Dependencies{Store: failingStore{memory.NewMemoryStorage()}})
	rec = do(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"overall_status":"unhealthy"`)

	rec = do(srv, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	rec := do(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pm, err := metrics.NewPrometheusMetrics(nil, testLogger())
	require.NoError(t, err)
	srv = newTestServer(t, Dependencies{Metrics: pm})

	createRun(t, srv, `{"iterations":100,"seed":9}`)

	rec = do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mcmc_sampler_chain_runs_total")
	assert.Contains(t, body, `path="/api/v1/runs"`)
	assert.Contains(t, body, `backend="memory"`)
}
