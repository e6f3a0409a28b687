package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/breachsim/simulator/internal/cli/output"
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

func newRulesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Detection rule authoring",
		Long:  "Propose blue-team patches and check rule documents against the engine",
	}
	cmd.AddCommand(newRulesProposeCmd(opts), newRulesCheckCmd(opts))
	return cmd
}

func newRulesProposeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "propose [scenario-id]",
		Short: "Run a scenario unpatched and propose a patch for it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if _, err := a.Session.Run(ctx, scenarioID); err != nil {
				return fmt.Errorf("run failed: %w", err)
			}
			patch, err := a.Session.ProposePatch(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if f := opts.format(); f != output.FormatTable {
				return output.Render(w, f, patch)
			}
			output.Success(w, "Proposed %s", patch.PatchID)
			fmt.Fprintln(w, patch.PatchText)
			fmt.Fprintln(w)
			return output.JSON(w, patch.Rule)
		},
	}
}

type ruleCheck struct {
	RuleID  string  `json:"rule_id"`
	Valid   bool    `json:"valid"`
	Handoff bool    `json:"handoff"`
	Error   *string `json:"error,omitempty"`
}

func newRulesCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <rule.json>",
		Short: "Validate a rule document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rule: %w", err)
			}
			var rule models.Rule
			if err := json.Unmarshal(data, &rule); err != nil {
				return fmt.Errorf("failed to parse rule: %w", err)
			}

			res := ruleCheck{RuleID: rule.RuleID, Valid: true}
			if err := engine.NewRuleSet().ApplyRule(rule); err != nil {
				msg := err.Error()
				res.Valid = false
				res.Error = &msg
			} else {
				res.Handoff = engine.IsHandoff(rule)
			}

			w := cmd.OutOrStdout()
			if f := opts.format(); f != output.FormatTable {
				if err := output.Render(w, f, res); err != nil {
					return err
				}
			} else if res.Valid {
				output.Success(w, "Rule %s is valid (handoff: %t)", res.RuleID, res.Handoff)
			}
			if !res.Valid {
				return fmt.Errorf("%s", *res.Error)
			}
			return nil
		},
	}
}
