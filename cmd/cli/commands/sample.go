package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/mcmc/internal/diagnostics"
	"github.com/inferloop/mcmc/internal/export"
	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/pkg/models"
)

// chainFlags are the run parameters shared by the sampling commands
type chainFlags struct {
	Iterations int
	BurnIn     int
	Chains     int
	Seed       int64
	Initial    []float64
}

func (f *chainFlags) register(cmd *cobra.Command, defaults *samplers.Config) {
	cmd.Flags().IntVarP(&f.Iterations, "iterations", "n", defaults.Iterations, "Iterations per chain")
	cmd.Flags().IntVar(&f.BurnIn, "burn-in", defaults.BurnIn, "Leading iterations excluded from statistics")
	cmd.Flags().IntVar(&f.Chains, "chains", defaults.Chains, "Number of independent chains")
	cmd.Flags().Int64Var(&f.Seed, "seed", defaults.Seed, "Base random seed")
	cmd.Flags().Float64SliceVar(&f.Initial, "initial", defaults.Initial, "Initial state, one value per coordinate")
}

// apply copies the flags the user set onto cfg
func (f *chainFlags) apply(cmd *cobra.Command, cfg *samplers.Config) {
	flags := cmd.Flags()
	if flags.Changed("iterations") {
		cfg.Iterations = f.Iterations
	}
	if flags.Changed("burn-in") {
		cfg.BurnIn = f.BurnIn
	}
	if flags.Changed("chains") {
		cfg.Chains = f.Chains
	}
	if flags.Changed("seed") {
		cfg.Seed = f.Seed
	}
	if flags.Changed("initial") {
		cfg.Initial = f.Initial
	}
}

// outputFlags control what a sampling command prints and writes
type outputFlags struct {
	Output     string
	Format     string
	SkipBurnIn bool
	Precision  int
	Report     string
	Head       int
	MaxLag     int
	Bins       int
	Save       bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Output, "output", "o", "", "Write traces to this file (- for stdout)")
	cmd.Flags().StringVar(&o.Format, "format", "", "Trace format (csv, json, jsonl); defaults to the configured format")
	cmd.Flags().BoolVar(&o.SkipBurnIn, "skip-burn-in", false, "Leave the burn-in prefix out of written traces")
	cmd.Flags().IntVar(&o.Precision, "precision", 0, "Significant digits in written traces (0 keeps full precision)")
	cmd.Flags().StringVar(&o.Report, "report", "text", "Report format (text, json, none)")
	cmd.Flags().IntVar(&o.Head, "head", 0, "Print the first N states of chain 0")
	cmd.Flags().IntVar(&o.MaxLag, "max-lag", 0, "Print the autocorrelation of chain 0 up to this lag")
	cmd.Flags().IntVar(&o.Bins, "bins", 0, "Print a density histogram of chain 0 with this many bins")
	cmd.Flags().BoolVar(&o.Save, "save", false, "Store the run in the configured trace store")
}

// reportView is the JSON form of a run report without traces
type reportView struct {
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
}

// runSampling executes cfg and emits the report, traces and stored copy
// requested by out.
func runSampling(cmd *cobra.Command, env *Env, cfg *samplers.Config, out *outputFlags) error {
	ctx := cmd.Context()

	runner := samplers.NewRunner(env.Logger, nil)
	report, err := runner.Execute(ctx, cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out.Output == "-" {
		// stdout carries the trace alone
		return writeTraces(cmd, env, report, out)
	}

	switch out.Report {
	case "text":
		if err := writeTextReport(w, report, out); err != nil {
			return err
		}
	case "json":
		if err := writeJSON(w, newReportView(report)); err != nil {
			return err
		}
	case "none":
	default:
		return fmt.Errorf("unknown report format %q", out.Report)
	}

	if out.Output != "" {
		if err := writeTraces(cmd, env, report, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Traces written to %s\n", out.Output)
	}

	if out.Save {
		store, err := env.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(ctx, report); err != nil {
			return err
		}
		env.Logger.WithFields(logrus.Fields{
			"report_id": report.ID,
			"storage":   store.Name(),
		}).Info("Run stored")
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved run %s to %s storage\n", report.ID, store.Name())
	}

	return nil
}

func writeTraces(cmd *cobra.Command, env *Env, report *models.RunReport, out *outputFlags) error {
	format := out.Format
	if format == "" {
		format = env.Config.DefaultFormat
	}

	engine := export.NewExportEngine(&export.ExportConfig{OutputDirectory: env.Config.OutputDir}, env.Logger)
	options := export.DefaultExportOptions()
	options.SkipBurnIn = out.SkipBurnIn
	options.Precision = out.Precision

	if out.Output == "-" {
		return engine.Export(cmd.Context(), report, export.ExportFormat(format), cmd.OutOrStdout(), options)
	}
	return engine.ExportToFile(cmd.Context(), report, export.ExportFormat(format), out.Output, options)
}

func newReportView(report *models.RunReport) *reportView {
	return &reportView{
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
	}
}

func writeTextReport(w io.Writer, report *models.RunReport, out *outputFlags) error {
	fmt.Fprintf(w, "Run %s\n", report.ID)
	fmt.Fprintf(w, "  sampler=%s target=%s chains=%d iterations=%d burn-in=%d seed=%d\n",
		report.Sampler, orDash(report.Target), len(report.Runs), report.Iterations, report.BurnIn, report.Seed)

	for i, run := range report.Runs {
		fmt.Fprintf(w, "\nChain %d: acceptance rate %.4f\n", i, run.AcceptanceRate())
		writeSummary(w, report.Summaries[i], run.Trace)
	}

	if len(report.RHat) > 0 {
		fmt.Fprintf(w, "\nR-hat: %s\n", formatCoords(report.RHat, "%.4f"))
	}

	if len(report.Runs) == 0 {
		return nil
	}
	trace := report.Runs[0].Trace
	writeExtras(w, trace, report.BurnIn, out.Head, out.MaxLag, out.Bins)
	return nil
}

// writeSummary prints one chain's post-burn-in statistics next to the mean
// over the whole trace
func writeSummary(w io.Writer, s *models.Summary, trace models.Trace) {
	if s.Count == 0 {
		fmt.Fprintln(w, "  no samples after burn-in")
		return
	}
	for d := range s.Mean {
		fmt.Fprintf(w, "  x%d: mean %.4f (all samples %.4f)  sd %.4f  min %.4f  max %.4f  ESS %.1f\n",
			d, s.Mean[d], diagnostics.MeanAfter(trace, d, 0), s.StdDev[d], s.Min[d], s.Max[d], s.ESS[d])
	}
	if len(s.Correlation) > 1 {
		fmt.Fprintf(w, "  correlation(x0, x1): %.4f\n", s.Correlation[0][1])
	}
}

// writeExtras prints the optional trace head, autocorrelation and histogram
// of the first coordinate
func writeExtras(w io.Writer, trace models.Trace, burnIn, head, maxLag, bins int) {
	if head > 0 {
		fmt.Fprintf(w, "\nFirst %d states:\n", head)
		for i, state := range trace.Head(head) {
			fmt.Fprintf(w, "  %6d  %s\n", i, formatCoords(state, "%.6g"))
		}
	}

	kept := trace.After(burnIn)
	if len(kept) == 0 {
		return
	}
	column := kept.Column(0)

	if maxLag > 0 {
		acf := diagnostics.Autocorrelation(column, maxLag)
		fmt.Fprintln(w, "\nAutocorrelation of x0 after burn-in:")
		for _, lag := range reportedLags(len(acf) - 1) {
			fmt.Fprintf(w, "  lag %4d  %+.4f\n", lag, acf[lag])
		}
	}

	if bins > 0 {
		hist, err := diagnostics.NewHistogram(column, bins)
		if err != nil {
			return
		}
		peak := 0.0
		for _, d := range hist.Density {
			if d > peak {
				peak = d
			}
		}
		fmt.Fprintln(w, "\nDensity of x0 after burn-in:")
		for i, d := range hist.Density {
			bar := 0
			if peak > 0 {
				bar = int(40 * d / peak)
			}
			fmt.Fprintf(w, "  [%8.3f, %8.3f)  %.4f  %s\n", hist.Edges[i], hist.Edges[i+1], d, strings.Repeat("#", bar))
		}
	}
}

// reportedLags picks 0, 1, 2, 5, 10, 20, 50, ... up to maxLag, always ending at maxLag
func reportedLags(maxLag int) []int {
	lags := []int{}
	for scale := 1; ; scale *= 10 {
		for _, m := range []int{1, 2, 5} {
			lag := m * scale
			if lag > maxLag {
				return append(append([]int{0}, lags...), finalLag(lags, maxLag)...)
			}
			lags = append(lags, lag)
		}
	}
}

func finalLag(lags []int, maxLag int) []int {
	if maxLag == 0 || (len(lags) > 0 && lags[len(lags)-1] == maxLag) {
		return nil
	}
	return []int{maxLag}
}

func formatCoords(values []float64, verb string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf(verb, v)
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
