package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inferloop/mcmc/internal/samplers"
	"github.com/inferloop/mcmc/internal/targets"
)

type metropolisOptions struct {
	chainFlags
	outputFlags
	Target string
	Params map[string]string
	Scale  float64
}

// NewMetropolisCmd runs the random-walk Metropolis-Hastings sampler
func NewMetropolisCmd(env *Env) *cobra.Command {
	opts := &metropolisOptions{}
	defaults := samplers.DefaultMetropolisConfig()

	cmd := &cobra.Command{
		Use:   "metropolis",
		Short: "Sample a target density with random-walk Metropolis-Hastings",
		Long: `Run one or more random-walk Metropolis-Hastings chains against a registered
target density and report post-burn-in statistics, acceptance rates and
convergence diagnostics.`,
		Example: `  # Course mixture, 10000 iterations, burn-in 1000
  mcmc-cli metropolis

  # Wider proposal, four chains, traces to CSV
  mcmc-cli metropolis --scale 2.5 --chains 4 --output traces.csv

  # Normal target with parameters
  mcmc-cli metropolis --target normal --param mu=3 --param sigma=0.5 --max-lag 100 --bins 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd, env)
			if err != nil {
				return err
			}
			return runSampling(cmd, env, cfg, &opts.outputFlags)
		},
	}

	opts.chainFlags.register(cmd, defaults)
	opts.outputFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Target, "target", "t", defaults.Target, "Target density (see 'targets')")
	cmd.Flags().StringToStringVarP(&opts.Params, "param", "p", nil, "Target parameter as key=value, repeatable")
	cmd.Flags().Float64VarP(&opts.Scale, "scale", "s", defaults.ProposalScale, "Proposal standard deviation")

	return cmd
}

// config starts from the configured metropolis defaults and applies the flags
func (o *metropolisOptions) config(cmd *cobra.Command, env *Env) (*samplers.Config, error) {
	cfg := env.Config.Metropolis
	cfg.Sampler = samplers.DefaultMetropolisConfig().Sampler
	o.chainFlags.apply(cmd, &cfg)

	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = o.Target
		cfg.TargetParams = nil
		if !flags.Changed("initial") {
			cfg.Initial = nil
		}
	}
	if flags.Changed("scale") {
		cfg.ProposalScale = o.Scale
	}
	if len(o.Params) > 0 {
		params := make(targets.Params, len(o.Params))
		for k, v := range cfg.TargetParams {
			params[k] = v
		}
		for k, v := range o.Params {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a number", k, v)
			}
			params[k] = f
		}
		cfg.TargetParams = params
	}
	return &cfg, nil
}
