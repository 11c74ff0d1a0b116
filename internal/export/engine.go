package export

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// ExportEngine dispatches report exports to format-specific exporters
type ExportEngine struct {
	logger    *logrus.Logger
	config    *ExportConfig
	mu        sync.RWMutex
	exporters map[ExportFormat]Exporter
}

// ExportConfig configures the export engine
type ExportConfig struct {
	OutputDirectory  string `json:"output_directory" mapstructure:"output_directory"`
	CompressionLevel int    `json:"compression_level" mapstructure:"compression_level"`
}

// ExportFormat defines supported export formats
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatJSON  ExportFormat = "json"
	FormatJSONL ExportFormat = "jsonl"
)

// CompressionType defines compression options
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
)

// ExportOptions contains export-specific options
type ExportOptions struct {
	IncludeHeaders bool            `json:"include_headers"`
	SkipBurnIn     bool            `json:"skip_burn_in"`
	Precision      int             `json:"precision"` // significant digits, <= 0 for exact
	Compression    CompressionType `json:"compression"`

	CSVOptions  CSVOptions  `json:"csv_options,omitempty"`
	JSONOptions JSONOptions `json:"json_options,omitempty"`
}

// CSVOptions are CSV-specific options
type CSVOptions struct {
	Delimiter string `json:"delimiter"`
}

// JSONOptions are JSON-specific options
type JSONOptions struct {
	Pretty     bool `json:"pretty"`
	OmitTraces bool `json:"omit_traces"`
}

// Exporter writes a run report in one format
type Exporter interface {
	Name() string
	SupportedFormats() []ExportFormat
	ContentType() string
	Export(ctx context.Context, writer io.Writer, report *models.RunReport, options ExportOptions) error
	ValidateOptions(options ExportOptions) error
}

// DefaultExportOptions writes headers and keeps the full trace
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeHeaders: true,
		Compression:    CompressionNone,
	}
}

// NewExportEngine creates a new export engine with the CSV and JSON exporters
func NewExportEngine(config *ExportConfig, logger *logrus.Logger) *ExportEngine {
	if config == nil {
		config = getDefaultExportConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	engine := &ExportEngine{
		logger:    logger,
		config:    config,
		exporters: make(map[ExportFormat]Exporter),
	}
	engine.registerDefaultExporters()
	return engine
}

// RegisterExporter registers an exporter for each format it supports
func (ee *ExportEngine) RegisterExporter(exporter Exporter) {
	ee.mu.Lock()
	defer ee.mu.Unlock()

	for _, format := range exporter.SupportedFormats() {
		ee.exporters[format] = exporter
	}
	ee.logger.WithField("exporter", exporter.Name()).Debug("Registered exporter")
}

// ExporterFor returns the exporter registered for format
func (ee *ExportEngine) ExporterFor(format ExportFormat) (Exporter, error) {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	exporter, ok := ee.exporters[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("unsupported export format '%s'", format))
	}
	return exporter, nil
}

// Export writes report to writer in the requested format
func (ee *ExportEngine) Export(ctx context.Context, report *models.RunReport, format ExportFormat, writer io.Writer, options ExportOptions) error {
	if report == nil {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "report is required")
	}

	exporter, err := ee.ExporterFor(format)
	if err != nil {
		return err
	}
	if err := exporter.ValidateOptions(options); err != nil {
		return err
	}

	if options.Compression == CompressionGzip {
		gz, err := gzip.NewWriterLevel(writer, ee.compressionLevel())
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "failed to create gzip writer")
		}
		if err := exporter.Export(ctx, gz, report, options); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}

	return exporter.Export(ctx, writer, report, options)
}

// ExportToFile writes report to path. A relative path is resolved against
// the configured output directory; a ".gz" suffix enables gzip.
func (ee *ExportEngine) ExportToFile(ctx context.Context, report *models.RunReport, format ExportFormat, path string, options ExportOptions) error {
	if !filepath.IsAbs(path) && ee.config.OutputDirectory != "" {
		path = filepath.Join(ee.config.OutputDirectory, path)
	}
	if strings.HasSuffix(path, ".gz") {
		options.Compression = CompressionGzip
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to create output directory")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to create output file")
	}

	if err := ee.Export(ctx, report, format, file, options); err != nil {
		file.Close()
		return err
	}

	ee.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"format":    format,
		"path":      path,
	}).Info("Exported report")

	return file.Close()
}

// GetSupportedFormats returns the registered formats, sorted
func (ee *ExportEngine) GetSupportedFormats() []ExportFormat {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	formats := make([]ExportFormat, 0, len(ee.exporters))
	for format := range ee.exporters {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func (ee *ExportEngine) compressionLevel() int {
	if ee.config.CompressionLevel == 0 {
		return gzip.DefaultCompression
	}
	return ee.config.CompressionLevel
}

// exportedTrace returns the part of run's trace an export should contain
// and the iteration index of its first state.
func exportedTrace(report *models.RunReport, run *models.RunResult, options ExportOptions) (models.Trace, int) {
	if !options.SkipBurnIn {
		return run.Trace, 0
	}
	return run.Trace.After(report.BurnIn), min(report.BurnIn, run.Trace.Len())
}

func (ee *ExportEngine) registerDefaultExporters() {
	ee.RegisterExporter(&CSVExporter{})
	ee.RegisterExporter(&JSONExporter{})
	ee.RegisterExporter(&JSONLinesExporter{})
}

func getDefaultExportConfig() *ExportConfig {
	return &ExportConfig{
		OutputDirectory:  "",
		CompressionLevel: gzip.DefaultCompression,
	}
}
