package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/breachsim/simulator/internal/cli/output"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

func newScenariosCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "scenarios",
		Aliases: []string{"ls"},
		Short:   "List the scenario catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := scenario.Load(cfg.Scenarios.File)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			list := store.List()
			if f := opts.format(); f != output.FormatTable {
				return output.Render(w, f, map[string]any{"scenarios": list})
			}

			table := output.NewTable([]string{"ID", "NAME", "ZONE", "SIGNATURE", "EVENTS"})
			for _, sc := range list {
				table.AddRow([]string{sc.ID, sc.Name, sc.Zone, sc.Signature, strconv.Itoa(len(sc.Events))})
			}
			table.Render(w)
			return nil
		},
	}
}
