package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inferloop/mcmc/internal/samplers"
)

// NewTargetsCmd lists the registered target densities and sampler kinds
func NewTargetsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List available target densities and samplers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory := samplers.NewFactory(env.Logger)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TARGET\tDIM\tPARAMETERS\tDESCRIPTION")
			for _, info := range factory.Targets().List() {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", info.Name, info.Dimension, formatParams(info.Defaults), info.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			kinds := factory.Available()
			names := make([]string, len(kinds))
			for i, k := range kinds {
				names[i] = string(k)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSamplers: %s\n", strings.Join(names, ", "))
			return nil
		},
	}
}

func formatParams(params map[string]float64) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, ",")
}
