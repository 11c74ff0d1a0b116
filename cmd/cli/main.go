package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inferloop/mcmc/cmd/cli/commands"
	"github.com/inferloop/mcmc/cmd/cli/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := createRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)
	env := commands.NewEnv()

	rootCmd := &cobra.Command{
		Use:   "mcmc-cli",
		Short: "Markov chain Monte Carlo sampling CLI",
		Long: `A command-line interface for running Metropolis-Hastings and Gibbs
samplers, inspecting their traces and checking convergence.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(viper.New(), cfgFile)
			if err != nil {
				return err
			}
			env.Config = cfg

			level := cfg.LogLevel
			if verbose {
				level = "debug"
			}
			env.Logger = commands.NewLogger(level, cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(commands.NewMetropolisCmd(env))
	rootCmd.AddCommand(commands.NewGibbsCmd(env))
	rootCmd.AddCommand(commands.NewAnalyzeCmd(env))
	rootCmd.AddCommand(commands.NewTargetsCmd(env))
	rootCmd.AddCommand(commands.NewRunsCmd(env))

	return rootCmd
}
