package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// JSONExporter writes a report as a single JSON document
type JSONExporter struct{}

// JSONLinesExporter writes one JSON object per recorded state
type JSONLinesExporter struct{}

// JSONState is one line of the JSONL format
type JSONState struct {
	Chain     int       `json:"chain"`
	Iteration int       `json:"iteration"`
	State     []float64 `json:"state"`
}

// Name returns the exporter name
func (je *JSONExporter) Name() string {
	return "json"
}

// SupportedFormats returns supported formats
func (je *JSONExporter) SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatJSON}
}

// ContentType returns the MIME type of the output
func (je *JSONExporter) ContentType() string {
	return "application/json"
}

// Export writes the full report, optionally without traces or burn-in
func (je *JSONExporter) Export(ctx context.Context, writer io.Writer, report *models.RunReport, options ExportOptions) error {
	encoder := json.NewEncoder(writer)
	if options.JSONOptions.Pretty {
		encoder.SetIndent("", "  ")
	}

	out := *report
	if options.JSONOptions.OmitTraces || options.SkipBurnIn {
		out.Runs = make([]*models.RunResult, len(report.Runs))
		for i, run := range report.Runs {
			r := *run
			switch {
			case options.JSONOptions.OmitTraces:
				r.Trace = nil
			default:
				r.Trace, _ = exportedTrace(report, run, options)
			}
			out.Runs[i] = &r
		}
	}

	if err := encoder.Encode(&out); err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "failed to encode report")
	}
	return nil
}

// Name returns the exporter name
func (jl *JSONLinesExporter) Name() string {
	return "jsonl"
}

// SupportedFormats returns supported formats
func (jl *JSONLinesExporter) SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatJSONL}
}

// ContentType returns the MIME type of the output
func (jl *JSONLinesExporter) ContentType() string {
	return "application/x-ndjson"
}

// Export writes one JSONState per recorded state
func (jl *JSONLinesExporter) Export(ctx context.Context, writer io.Writer, report *models.RunReport, options ExportOptions) error {
	encoder := json.NewEncoder(writer)

	for _, run := range report.Runs {
		trace, offset := exportedTrace(report, run, options)
		for i, state := range trace {
			if i%1024 == 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}

			line := JSONState{Chain: run.Chain, Iteration: offset + i, State: state}
			if err := encoder.Encode(&line); err != nil {
				return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "failed to encode state")
			}
		}
	}
	return nil
}

// ValidateOptions validates JSON export options
func (je *JSONExporter) ValidateOptions(options ExportOptions) error {
	return nil
}

// ValidateOptions validates JSONL export options
func (jl *JSONLinesExporter) ValidateOptions(options ExportOptions) error {
	return nil
}
