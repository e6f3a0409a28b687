package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/breachsim/simulator/internal/authoring"
	"github.com/telhawk-systems/breachsim/simulator/internal/cli/output"
	"github.com/telhawk-systems/breachsim/simulator/internal/metrics"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

type runReport struct {
	Runs  []models.AttackLog `json:"runs"`
	Stats metrics.Snapshot   `json:"stats"`
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		patched    bool
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "run [scenario-id]",
		Short: "Run a scenario through the detection engine",
		Long: `Run replays a scenario against the active rule set and prints the
annotated attack timeline. With --patched the stateful handoff rule is
applied before the first run.`,
		Example: `  breach run
  breach run relay_attack_wagah --patched
  breach run --iterations 5 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations < 1 {
				return fmt.Errorf("--iterations must be at least 1")
			}
			scenarioID := scenario.RelayAttackWagahID
			if len(args) == 1 {
				scenarioID = args[0]
			}

			a, err := opts.session(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if patched {
				if err := a.Session.ApplyRule(ctx, authoring.HandoffRule()); err != nil {
					return err
				}
			}

			report := runReport{}
			for i := 0; i < iterations; i++ {
				res, err := a.Session.Run(ctx, scenarioID)
				if err != nil {
					return fmt.Errorf("run failed: %w", err)
				}
				report.Runs = append(report.Runs, res.Log)
			}
			report.Stats = a.Session.Stats()

			w := cmd.OutOrStdout()
			if f := opts.format(); f != output.FormatTable {
				return output.Render(w, f, report)
			}
			for _, log := range report.Runs {
				printTimeline(w, log)
			}
			printStats(w, report.Stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&patched, "patched", false, "apply the stateful handoff rule before running")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1, "number of runs")
	return cmd
}

func printTimeline(w io.Writer, log models.AttackLog) {
	output.Info(w, "Attack log %s (%s)", log.ID, log.ScenarioID)

	table := output.NewTable([]string{"TIME", "ENTITY", "ACTION", "DETAILS", "STATUS"})
	for _, e := range log.Entries {
		table.AddRow([]string{e.Timestamp, e.Entity, e.Action, e.Details, string(e.Status)})
	}
	table.Paint(func(col int, cell string) *color.Color {
		if col == 4 {
			return output.StatusColor(models.LogStatus(cell))
		}
		return nil
	})
	table.Render(w)

	outcome := output.OutcomeColor(log.Outcome).Sprint(string(log.Outcome))
	if log.TimeToDetect != nil {
		fmt.Fprintf(w, "Outcome: %s at T+%.1fs\n\n", outcome, *log.TimeToDetect)
	} else {
		fmt.Fprintf(w, "Outcome: %s\n\n", outcome)
	}
}

func printStats(w io.Writer, s metrics.Snapshot) {
	avg := "n/a"
	if s.AvgTimeToDetect != nil {
		avg = strconv.FormatFloat(*s.AvgTimeToDetect, 'f', 1, 64) + "s"
	}
	table := output.NewTable([]string{"ITERATIONS", "DETECTIONS", "DETECTION RATE", "AVG TIME TO DETECT", "SYSTEM"})
	table.AddRow([]string{
		strconv.Itoa(s.Iterations),
		strconv.Itoa(s.Detections),
		fmt.Sprintf("%.1f%%", s.DetectionRate),
		avg,
		string(s.SystemStatus),
	})
	table.Render(w)
}
