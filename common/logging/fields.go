package logging

import "log/slog"

// Common field names for consistent logging across components.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldScenarioID = "scenario_id"
	FieldRunID      = "run_id"
	FieldRuleID     = "rule_id"
	FieldOutcome    = "outcome"
	FieldEntityID   = "entity_id"
	FieldLocation   = "location"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// ScenarioID returns a slog attribute for a scenario identifier.
func ScenarioID(id string) slog.Attr {
	return slog.String(FieldScenarioID, id)
}

// RunID returns a slog attribute for a run (attack log) identifier.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// RuleID returns a slog attribute for a detection rule identifier.
func RuleID(id string) slog.Attr {
	return slog.String(FieldRuleID, id)
}

// Outcome returns a slog attribute for a run outcome.
func Outcome(outcome string) slog.Attr {
	return slog.String(FieldOutcome, outcome)
}

// EntityID returns a slog attribute for a tracked entity.
func EntityID(id string) slog.Attr {
	return slog.String(FieldEntityID, id)
}

// Location returns a slog attribute for a free-text location.
func Location(loc string) slog.Attr {
	return slog.String(FieldLocation, loc)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
