// Package cli implements the breach command: an in-process driver for
// simulation runs, rule proposals, correlation and scenario generation.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/app"
	"github.com/telhawk-systems/breachsim/simulator/internal/cli/output"
	"github.com/telhawk-systems/breachsim/simulator/internal/config"
)

// Version is stamped at build time with -ldflags.
var Version = "0.1.0"

type rootOptions struct {
	cfgFile string
	output  string
	seed    int64
	verbose bool
}

// NewRootCmd builds the breach command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "breach",
		Short: "Breach scenario simulator",
		Long: `breach replays red-team breach scenarios against the detection rule
engine, proposes blue-team patches and correlates social threat flags with
the vulnerabilities the runs expose.

Every invocation works on a fresh in-process session.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := output.ParseFormat(opts.output)
			return err
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: ./config.yaml or /etc/breachsim/config.yaml)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table, json, yaml")
	root.PersistentFlags().Int64Var(&opts.seed, "seed", 0, "randomness seed (overrides social.seed)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log session activity to stderr")

	root.AddCommand(
		newRunCmd(opts),
		newScenariosCmd(opts),
		newRulesCmd(opts),
		newCorrelateCmd(opts),
		newGenerateCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the breach command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		output.Error(root.ErrOrStderr(), "%v", err)
		return err
	}
	return nil
}

func (o *rootOptions) format() output.Format {
	f, _ := output.ParseFormat(o.output)
	return f
}

func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Social.Seed = o.seed
	}
	return cfg, nil
}

// session builds a fresh session from the loaded configuration.
func (o *rootOptions) session(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.Discard()
	if o.verbose {
		logger = logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), "text")
	}
	a, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return a, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the breach version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "breach %s\n", Version)
		},
	}
}
