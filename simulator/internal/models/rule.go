package models

// Rule is a detection rule as ingested from operators or the authoring
// collaborator. Trigger is opaque structured data; only the built-in
// handoff shape is interpreted by the engine.
type Rule struct {
	RuleID      string         `json:"rule_id" validate:"required,notblank"`
	Description string         `json:"description"`
	Trigger     map[string]any `json:"trigger" validate:"required,min=1"`
	Action      string         `json:"action"`
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	out := r
	out.Trigger = cloneMap(r.Trigger)
	return out
}

// Patch is a proposed rule plus its human-readable justification.
type Patch struct {
	PatchID   string `json:"patch_id"`
	PatchText string `json:"patch_text"`
	Rule      Rule   `json:"patch_json"`
}
