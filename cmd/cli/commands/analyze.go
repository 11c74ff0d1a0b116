package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inferloop/mcmc/internal/diagnostics"
	"github.com/inferloop/mcmc/internal/export"
	"github.com/inferloop/mcmc/pkg/models"
)

type AnalyzeOptions struct {
	InputFile string
	BurnIn    int
	MaxLag    int
	Bins      int
	Head      int
	Report    string
}

// analysis is the JSON form of the analyze output
type analysis struct {
	Chains    int               `json:"chains"`
	Length    int               `json:"length"`
	BurnIn    int               `json:"burn_in"`
	Summaries []*models.Summary `json:"summaries"`
	RHat      []float64         `json:"r_hat,omitempty"`
	ACF       []float64         `json:"acf,omitempty"`
}

// NewAnalyzeCmd summarizes traces previously written as CSV
func NewAnalyzeCmd(env *Env) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize and diagnose saved chain traces",
		Long: `Read traces written by 'metropolis' or 'gibbs' in CSV format and report
post-burn-in statistics, effective sample size, autocorrelation and R-hat.`,
		Example: `  # Basic analysis
  mcmc-cli analyze --input traces.csv --burn-in 1000

  # Autocorrelation up to lag 100 and a histogram
  mcmc-cli analyze --input traces.csv --max-lag 100 --bins 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, env, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "CSV trace file to analyze (required)")
	cmd.Flags().IntVar(&opts.BurnIn, "burn-in", 0, "Leading iterations excluded from statistics")
	cmd.Flags().IntVar(&opts.MaxLag, "max-lag", 0, "Autocorrelation of chain 0 up to this lag")
	cmd.Flags().IntVar(&opts.Bins, "bins", 0, "Density histogram of chain 0 with this many bins")
	cmd.Flags().IntVar(&opts.Head, "head", 0, "Print the first N states of chain 0")
	cmd.Flags().StringVar(&opts.Report, "report", "text", "Report format (text, json)")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(cmd *cobra.Command, env *Env, opts *AnalyzeOptions) error {
	env.Logger.WithField("input", opts.InputFile).Debug("Analyzing traces")

	f, err := os.Open(opts.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	traces, err := export.ReadCSV(f)
	if err != nil {
		return err
	}
	if len(traces) == 0 {
		return fmt.Errorf("%s contains no trace rows", opts.InputFile)
	}

	result := &analysis{
		Chains:    len(traces),
		Length:    len(traces[0]),
		BurnIn:    opts.BurnIn,
		Summaries: make([]*models.Summary, len(traces)),
	}
	for i, trace := range traces {
		s, err := diagnostics.Summarize(trace, opts.BurnIn)
		if err != nil {
			return fmt.Errorf("chain %d: %w", i, err)
		}
		result.Summaries[i] = s
	}

	if len(traces) > 1 {
		if rhat, err := diagnostics.RHat(traces, opts.BurnIn); err == nil {
			result.RHat = rhat
		}
	}

	w := cmd.OutOrStdout()
	switch opts.Report {
	case "json":
		if opts.MaxLag > 0 {
			result.ACF = diagnostics.Autocorrelation(traces[0].After(opts.BurnIn).Column(0), opts.MaxLag)
		}
		return writeJSON(w, result)
	case "text":
	default:
		return fmt.Errorf("unknown report format %q", opts.Report)
	}

	fmt.Fprintf(w, "Analyzed %s: %d chain(s), burn-in %d\n", opts.InputFile, len(traces), opts.BurnIn)
	for i, trace := range traces {
		fmt.Fprintf(w, "\nChain %d: %d states\n", i, len(trace))
		writeSummary(w, result.Summaries[i], trace)
	}
	if len(result.RHat) > 0 {
		fmt.Fprintf(w, "\nR-hat: %s\n", formatCoords(result.RHat, "%.4f"))
	}
	writeExtras(w, traces[0], opts.BurnIn, opts.Head, opts.MaxLag, opts.Bins)
	return nil
}
