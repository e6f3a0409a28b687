package cli

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/breachsim/simulator/internal/cli/output"
	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		count  int
		zone   string
		relay  scenario.RelayOptions
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate relay attack scenarios",
		Long: `Generate writes a scenario catalog of seeded relay attacks: a drone
drops a package inside a restricted zone and a courier collects it later.
The catalog can be loaded through scenarios.file.`,
		Example: `  breach generate --count 3 --seed 7 > relays.yaml
  breach generate --pickup-delay 20 --pickup-dwell 5 --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			zones := geo.ZoneSet(cfg.Zones)
			relay.Zone = zones[0]
			if zone != "" {
				z, ok := zones.Find(zone)
				if !ok {
					return fmt.Errorf("unknown zone %q", zone)
				}
				relay.Zone = z
			}

			generated := scenario.GenerateVariants(gofakeit.New(cfg.Social.Seed), count, relay)
			if verify {
				if _, err := scenario.NewStore(generated...); err != nil {
					return err
				}
			}

			f := opts.format()
			if f == output.FormatTable {
				f = output.FormatYAML
			}
			return output.Render(cmd.OutOrStdout(), f, map[string]any{"scenarios": generated})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 1, "number of scenarios")
	cmd.Flags().StringVar(&zone, "zone", "", "target zone name (default: first configured zone)")
	cmd.Flags().Float64Var(&relay.DropDelay, "drop-delay", 0, "seconds until the drone drops the package (default 45)")
	cmd.Flags().Float64Var(&relay.PickupDelay, "pickup-delay", 0, "seconds until the courier enters (default 180)")
	cmd.Flags().Float64Var(&relay.PickupDwell, "pickup-dwell", 0, "seconds the courier waits before the pickup (default 50)")
	cmd.Flags().StringVar(&relay.Signature, "signature", "", "rule id that patches the scenarios")
	cmd.Flags().StringVar(&relay.NamePrefix, "name-prefix", "", "scenario name prefix")
	cmd.Flags().BoolVar(&verify, "verify", false, "validate the catalog before printing it")
	return cmd
}
