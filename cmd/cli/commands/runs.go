package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRunsCmd manages runs kept in the configured trace store
func NewRunsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, inspect, export and delete stored runs",
		Long: `Work with runs saved by 'metropolis --save' or 'gibbs --save'. The store
is selected by the storage section of the configuration file.`,
	}

	cmd.AddCommand(newRunsListCmd(env))
	cmd.AddCommand(newRunsShowCmd(env))
	cmd.AddCommand(newRunsExportCmd(env))
	cmd.AddCommand(newRunsDeleteCmd(env))

	return cmd
}

func newRunsListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSAMPLER\tTARGET\tCHAINS\tITERATIONS\tACCEPTANCE\tCREATED")
			for _, id := range ids {
				report, err := store.Load(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4f\t%s\n",
					report.ID, report.Sampler, orDash(report.Target), len(report.Runs),
					report.Iterations, report.OverallAcceptanceRate(), report.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func newRunsShowCmd(env *Env) *cobra.Command {
	out := &outputFlags{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the report of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}

			if out.Report == "json" {
				return writeJSON(cmd.OutOrStdout(), newReportView(report))
			}
			return writeTextReport(cmd.OutOrStdout(), report, out)
		},
	}

	cmd.Flags().StringVar(&out.Report, "report", "text", "Report format (text, json)")
	cmd.Flags().IntVar(&out.Head, "head", 0, "Print the first N states of chain 0")
	cmd.Flags().IntVar(&out.MaxLag, "max-lag", 0, "Print the autocorrelation of chain 0 up to this lag")
	cmd.Flags().IntVar(&out.Bins, "bins", 0, "Print a density histogram of chain 0 with this many bins")

	return cmd
}

func newRunsExportCmd(env *Env) *cobra.Command {
	out := &outputFlags{}

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the traces of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			return writeTraces(cmd, env, report, out)
		},
	}

	cmd.Flags().StringVarP(&out.Output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringVar(&out.Format, "format", "", "Trace format (csv, json, jsonl)")
	cmd.Flags().BoolVar(&out.SkipBurnIn, "skip-burn-in", false, "Leave the burn-in prefix out")
	cmd.Flags().IntVar(&out.Precision, "precision", 0, "Significant digits (0 keeps full precision)")

	return cmd
}

func newRunsDeleteCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
