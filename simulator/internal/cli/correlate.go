package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/breachsim/simulator/internal/authoring"
	"github.com/telhawk-systems/breachsim/simulator/internal/cli/output"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

func newCorrelateCmd(opts *rootOptions) *cobra.Command {
	var (
		patched bool
		flags   []string
		poll    int
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate social threat flags with scenario vulnerabilities",
		Long: `Correlate runs every catalog scenario once, adds the given social
flags, optionally polls the social feed, and prints the resulting
correlations. Flags take the form location[:level].`,
		Example: `  breach correlate
  breach correlate --flag "Attari checkpoint:warning" --patched
  breach correlate --poll 2 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]models.SocialFlag, 0, len(flags))
			for _, f := range flags {
				flag, err := parseFlag(f)
				if err != nil {
					return err
				}
				parsed = append(parsed, flag)
			}

			a, err := opts.session(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			s := a.Session

			for _, sc := range s.Scenarios() {
				if _, err := s.Run(ctx, sc.ID); err != nil {
					return fmt.Errorf("run %s failed: %w", sc.ID, err)
				}
			}
			if patched {
				if err := s.ApplyRule(ctx, authoring.HandoffRule()); err != nil {
					return err
				}
			}
			for _, f := range parsed {
				if _, err := s.AddFlag(ctx, f); err != nil {
					return err
				}
			}
			for i := 0; i < poll; i++ {
				if _, err := s.PollFeed(ctx); err != nil {
					return err
				}
			}

			corr := s.Correlations()
			w := cmd.OutOrStdout()
			if f := opts.format(); f != output.FormatTable {
				return output.Render(w, f, map[string]any{"correlations": corr})
			}
			if len(corr) == 0 {
				output.Info(w, "No correlations found")
				return nil
			}

			table := output.NewTable([]string{"ID", "LOCATION", "THREAT", "LEVEL", "VULNERABILITY", "STATUS"})
			for _, c := range corr {
				table.AddRow([]string{
					c.ID,
					c.Location,
					c.SocialThreat.Type,
					string(c.SocialThreat.Level),
					c.Vulnerability.Scenario,
					string(c.Vulnerability.Status),
				})
			}
			table.Paint(func(col int, cell string) *color.Color {
				if col != 5 {
					return nil
				}
				if models.VulnerabilityStatus(cell) == models.StatusPatched {
					return color.New(color.FgGreen)
				}
				return color.New(color.FgRed, color.Bold)
			})
			table.Render(w)
			return nil
		},
	}

	cmd.Flags().BoolVar(&patched, "patched", false, "apply the stateful handoff rule before correlating")
	cmd.Flags().StringArrayVar(&flags, "flag", nil, "social flag as location[:level] (repeatable)")
	cmd.Flags().IntVar(&poll, "poll", 0, "number of social feed polls to ingest")
	return cmd
}

func parseFlag(s string) (models.SocialFlag, error) {
	location, level, _ := strings.Cut(s, ":")
	flag := models.SocialFlag{
		Location: strings.TrimSpace(location),
		Level:    models.ThreatLevel(strings.ToLower(strings.TrimSpace(level))),
	}
	if flag.Location == "" {
		return models.SocialFlag{}, fmt.Errorf("flag %q has no location", s)
	}
	if flag.Level != "" && !flag.Level.IsValid() {
		return models.SocialFlag{}, fmt.Errorf("flag %q has unknown level %q", s, flag.Level)
	}
	return flag, nil
}
