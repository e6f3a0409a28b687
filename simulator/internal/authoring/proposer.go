// Package authoring proposes detection-rule patches from attack logs.
package authoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

var ErrNoLog = errors.New("no attack log to analyse")

// Proposer turns an attack log into a candidate rule. The session only
// validates and stores what it is handed.
type Proposer interface {
	Propose(ctx context.Context, log models.AttackLog) (models.Patch, error)
}

const handoffPatchText = "New rule: Detect and flag if a package is picked up by a different entity " +
	"than the one who dropped it within the same zone in under 60 seconds."

// Template always proposes the stateful handoff rule.
type Template struct {
	newID func() (uuid.UUID, error)
}

func NewTemplate() *Template {
	return &Template{newID: uuid.NewV7}
}

func (t *Template) Propose(_ context.Context, log models.AttackLog) (models.Patch, error) {
	if log.ID == "" {
		return models.Patch{}, ErrNoLog
	}
	id, err := t.newID()
	if err != nil {
		return models.Patch{}, fmt.Errorf("failed to generate patch id: %w", err)
	}
	return models.Patch{
		PatchID:   "patch_" + id.String(),
		PatchText: handoffPatchText,
		Rule:      HandoffRule(),
	}, nil
}

// HandoffRule is the canonical stateful handoff rule.
func HandoffRule() models.Rule {
	return models.Rule{
		RuleID:      engine.HandoffRuleID,
		Description: "Detects suspicious package handoffs between entities.",
		Trigger: map[string]any{
			engine.TriggerKeyType: engine.TriggerTypeSequence,
			engine.TriggerKeyEvents: []any{
				string(models.ActionDropPackage),
				string(models.ActionPickupPackage),
			},
			"conditions": []any{
				"event1.zone === event2.zone",
				"event1.entity_id !== event2.entity_id",
				"event2.timestamp - event1.timestamp < 60",
			},
		},
		Action: "CREATE_CRITICAL_ALERT",
	}
}
