package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// CSVExporter writes one row per recorded state: chain, iteration, x0..xN
type CSVExporter struct{}

// Name returns the exporter name
func (ce *CSVExporter) Name() string {
	return "csv"
}

// SupportedFormats returns supported formats
func (ce *CSVExporter) SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatCSV}
}

// ContentType returns the MIME type of the output
func (ce *CSVExporter) ContentType() string {
	return "text/csv"
}

// Export writes the traces of every chain in report
func (ce *CSVExporter) Export(ctx context.Context, writer io.Writer, report *models.RunReport, options ExportOptions) error {
	csvWriter := csv.NewWriter(writer)
	if options.CSVOptions.Delimiter != "" {
		csvWriter.Comma = rune(options.CSVOptions.Delimiter[0])
	}

	if options.IncludeHeaders {
		if err := csvWriter.Write(ce.generateHeaders(reportDim(report))); err != nil {
			return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "failed to write CSV headers")
		}
	}

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

			if err := csvWriter.Write(ce.generateRow(run.Chain, offset+i, state, options.Precision)); err != nil {
				return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "failed to write CSV row")
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ValidateOptions validates CSV export options
func (ce *CSVExporter) ValidateOptions(options ExportOptions) error {
	if options.CSVOptions.Delimiter != "" && len(options.CSVOptions.Delimiter) != 1 {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "CSV delimiter must be a single character")
	}
	return nil
}

func (ce *CSVExporter) generateHeaders(dim int) []string {
	headers := []string{"chain", "iteration"}
	for d := 0; d < dim; d++ {
		headers = append(headers, fmt.Sprintf("x%d", d))
	}
	return headers
}

func (ce *CSVExporter) generateRow(chain, iteration int, state models.ChainState, precision int) []string {
	row := make([]string, 0, len(state)+2)
	row = append(row, strconv.Itoa(chain), strconv.Itoa(iteration))
	for _, v := range state {
		row = append(row, formatFloat(v, precision))
	}
	return row
}

// ReadCSV parses traces written by CSVExporter. A header row is optional.
// Traces are returned in ascending chain order.
func ReadCSV(reader io.Reader) ([]models.Trace, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidInput, "failed to parse CSV trace")
	}
	if len(records) > 0 && records[0][0] == "chain" {
		records = records[1:]
	}

	chains := make(map[int]models.Trace)
	dim := -1
	for line, record := range records {
		if len(record) < 3 {
			return nil, errors.NewConfigurationError(errors.CodeInvalidInput,
				fmt.Sprintf("row %d: expected chain, iteration and at least one coordinate", line+1))
		}
		if dim == -1 {
			dim = len(record) - 2
		} else if len(record)-2 != dim {
			return nil, errors.NewConfigurationError(errors.CodeInvalidDimension,
				fmt.Sprintf("row %d: expected %d coordinates, got %d", line+1, dim, len(record)-2))
		}

		chain, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidInput,
				fmt.Sprintf("row %d: invalid chain index", line+1))
		}

		state := make(models.ChainState, dim)
		for d := range state {
			v, err := strconv.ParseFloat(record[d+2], 64)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidInput,
					fmt.Sprintf("row %d: invalid coordinate x%d", line+1, d))
			}
			state[d] = v
		}
		chains[chain] = append(chains[chain], state)
	}

	ids := make([]int, 0, len(chains))
	for id := range chains {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	traces := make([]models.Trace, len(ids))
	for i, id := range ids {
		traces[i] = chains[id]
	}
	return traces, nil
}

func reportDim(report *models.RunReport) int {
	for _, run := range report.Runs {
		if d := run.Trace.Dim(); d > 0 {
			return d
		}
		if d := len(run.Initial); d > 0 {
			return d
		}
	}
	return 0
}

func formatFloat(v float64, precision int) string {
	if precision <= 0 {
		precision = -1
	}
	return strconv.FormatFloat(v, 'g', precision, 64)
}
