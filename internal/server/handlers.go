package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/internal/export"
	"github.com/inferloop/mcmc/internal/observability/health"
	"github.com/inferloop/mcmc/internal/random"
	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// RunView is a stored report without its traces
type RunView struct {
	ID             string             `json:"id"`
	Sampler        models.SamplerKind `json:"sampler"`
	Target         string             `json:"target,omitempty"`
	Iterations     int                `json:"iterations"`
	BurnIn         int                `json:"burn_in"`
	Chains         int                `json:"chains"`
	Seed           int64              `json:"seed"`
	AcceptanceRate float64            `json:"acceptance_rate"`
	Summaries      []*models.Summary  `json:"summaries"`
	RHat           []float64          `json:"r_hat,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	CompletedAt    time.Time          `json:"completed_at"`
	TraceURL       string             `json:"trace_url"`
}

func newRunView(report *models.RunReport) *RunView {
	return &RunView{
		ID:             report.ID,
		Sampler:        report.Sampler,
		Target:         report.Target,
		Iterations:     report.Iterations,
		BurnIn:         report.BurnIn,
		Chains:         len(report.Runs),
		Seed:           report.Seed,
		AcceptanceRate: report.OverallAcceptanceRate(),
		Summaries:      report.Summaries,
		RHat:           report.RHat,
		CreatedAt:      report.CreatedAt,
		CompletedAt:    report.CompletedAt,
		TraceURL:       fmt.Sprintf("%s/runs/%s/trace", APIPrefix, report.ID),
	}
}

// handleCreateRun runs a sampler synchronously and stores the report
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.decodeRunConfig(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RunTimeout)
	defer cancel()

	report, err := s.runner.Execute(ctx, cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.store.Save(r.Context(), report); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"request_id": getRequestID(r),
		"storage":    s.store.Name(),
	}).Info("Run stored")

	w.Header().Set("Location", fmt.Sprintf("%s/runs/%s", APIPrefix, report.ID))
	s.writeJSON(w, http.StatusCreated, newRunView(report))
}

// decodeRunConfig reads a samplers.Config from the body. Fields the client
// omits take the defaults of the requested sampler; explicit values, zero
// included, are kept so that they can be validated.
func (s *Server) decodeRunConfig(r *http.Request) (*samplers.Config, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "failed to read request body").
			WithDetails(err.Error())
	}

	var head struct {
		Sampler models.SamplerKind `json:"sampler"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &head); err != nil {
			return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "request body is not valid JSON").
				WithDetails(err.Error())
		}
	}

	var cfg *samplers.Config
	switch head.Sampler {
	case models.SamplerGibbs:
		cfg = samplers.DefaultGibbsConfig()
	default:
		cfg = samplers.DefaultMetropolisConfig()
	}
	cfg.Initial = nil

	if len(body) > 0 {
		if err := json.Unmarshal(body, cfg); err != nil {
			return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "invalid run request").
				WithDetails(err.Error())
		}
	}

	if cfg.Iterations > s.config.MaxIterations {
		return nil, errors.NewConfigurationError(errors.CodeInvalidIterations,
			fmt.Sprintf("iterations must not exceed %d", s.config.MaxIterations))
	}
	if cfg.Chains > s.config.MaxChains {
		return nil, errors.NewConfigurationError(errors.CodeInvalidChains,
			fmt.Sprintf("chain count must not exceed %d", s.config.MaxChains))
	}
	return cfg, nil
}

// handleListRuns returns the ids of all stored runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  ids,
		"count": len(ids),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newRunView(report))
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetTrace streams the traces of a stored run. Query parameters:
// format (csv, json, jsonl), burnin (true drops the burn-in prefix),
// precision (significant digits).
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	format := export.FormatCSV
	if f := query.Get("format"); f != "" {
		format = export.ExportFormat(f)
	}
	exporter, err := s.exporter.ExporterFor(format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	options := export.DefaultExportOptions()
	if v := query.Get("burnin"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, errors.NewConfigurationError(errors.CodeInvalidInput, "burnin must be a boolean"))
			return
		}
		options.SkipBurnIn = skip
	}
	if v := query.Get("precision"); v != "" {
		precision, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, errors.NewConfigurationError(errors.CodeInvalidInput, "precision must be an integer"))
			return
		}
		options.Precision = precision
	}

	id := mux.Vars(r)["id"]
	report, err := s.store.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"."+string(format)))
	w.WriteHeader(http.StatusOK)

	if err := s.exporter.Export(r.Context(), report, format, w, options); err != nil {
		// Headers are gone; all that is left is to log.
		s.logger.WithFields(logrus.Fields{
			"report_id":  id,
			"format":     format,
			"request_id": getRequestID(r),
		}).WithError(err).Error("Trace export failed")
	}
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"targets": s.runner.Factory().Targets().List(),
	})
}

func (s *Server) handleListSamplers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"samplers": s.runner.Factory().Available(),
		"defaults": map[models.SamplerKind]*samplers.Config{
			models.SamplerMetropolis: samplers.DefaultMetropolisConfig(),
			models.SamplerGibbs:      samplers.DefaultGibbsConfig(),
		},
	})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats": s.exporter.GetSupportedFormats(),
	})
}

// handleHealth runs every check. Degraded still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.CheckNow(r.Context())

	code := http.StatusOK
	if status.OverallStatus == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, status)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(s.startTime).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":    s.config.Version,
		"git_commit": s.config.GitCommit,
		"build_date": s.config.BuildDate,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		"uptime":     time.Since(s.startTime).String(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, errors.NewNotFoundError("route", r.URL.Path))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	err := errors.NewConfigurationError(errors.CodeInvalidInput,
		fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
	err.HTTPStatus = http.StatusMethodNotAllowed
	s.writeError(w, r, err)
}

// samplerSelfTest runs a short chain on the default target
func (s *Server) samplerSelfTest(ctx context.Context) error {
	cfg := samplers.DefaultMetropolisConfig()
	stepper, err := s.runner.Factory().Create(cfg, random.New(cfg.Seed))
	if err != nil {
		return err
	}
	driver := samplers.NewDriver(s.logger)
	result, err := driver.Run(ctx, stepper, samplers.RunParams{
		Initial:    cfg.InitialState(stepper.Dimension()),
		Iterations: 200,
		Target:     cfg.Target,
	})
	if err != nil {
		return err
	}
	if rate := result.AcceptanceRate(); rate <= 0 || rate > 1 {
		return fmt.Errorf("self-test acceptance rate %v out of range", rate)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError renders err as an errors.ErrorResponse. Errors that are not
// AppErrors are reported as internal.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "internal server error")
	}

	status := appErr.HTTPStatus
	if stderrors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	fields := logrus.Fields{
		"path":       r.URL.Path,
		"method":     r.Method,
		"status":     status,
		"code":       appErr.Code,
		"request_id": getRequestID(r),
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(fields).WithError(err).Error("Request failed")
		if s.metrics != nil {
			s.metrics.RecordError("http", string(appErr.Type))
		}
	} else {
		s.logger.WithFields(fields).WithError(err).Debug("Request rejected")
	}

	s.writeJSON(w, status, &errors.ErrorResponse{
		Error:     appErr,
		RequestID: getRequestID(r),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}
