package models

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal result of one simulation run.
type Outcome string

const (
	OutcomeBypassed Outcome = "Bypassed"
	OutcomeDetected Outcome = "Detected"
)

// IsValid checks if the outcome is known
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeBypassed, OutcomeDetected:
		return true
	default:
		return false
	}
}

// LogStatus is the timeline classification of one log entry.
type LogStatus string

const (
	LogInfo     LogStatus = "info"
	LogBypass   LogStatus = "bypass"
	LogDetected LogStatus = "detected"
	LogPending  LogStatus = "pending"
)

// LogStatusFor maps a detection status onto a timeline status.
func LogStatusFor(s DetectionStatus) LogStatus {
	switch s {
	case StatusBypassed:
		return LogBypass
	case StatusDetected:
		return LogDetected
	case StatusPending:
		return LogPending
	case StatusUndefined:
		return LogInfo
	default:
		return LogInfo
	}
}

// LogEntry is one human-readable line of an attack log.
type LogEntry struct {
	Timestamp string    `json:"timestamp"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Status    LogStatus `json:"status"`
}

// NewLogEntry renders an annotated event as a timeline line.
func NewLogEntry(e Event) LogEntry {
	return LogEntry{
		Timestamp: fmt.Sprintf("T+%.1fs", e.Offset),
		Entity:    e.EntityID,
		Action:    strings.ReplaceAll(string(e.Action), "_", " "),
		Details:   "at " + e.Coords.String(),
		Status:    LogStatusFor(e.Status),
	}
}

// AttackLog is the immutable record of one completed run.
type AttackLog struct {
	ID         string     `json:"id"`
	ScenarioID string     `json:"scenario_id"`
	Entries    []LogEntry `json:"events"`
	Outcome    Outcome    `json:"outcome"`
	RuleIDs    []string   `json:"rule_ids"`
	// TimeToDetect is the offset of the first DETECTED event; nil when bypassed.
	TimeToDetect *float64  `json:"time_to_detect_seconds,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Clone returns a deep copy of the log.
func (l AttackLog) Clone() AttackLog {
	out := l
	out.Entries = append([]LogEntry(nil), l.Entries...)
	out.RuleIDs = append([]string(nil), l.RuleIDs...)
	if l.TimeToDetect != nil {
		v := *l.TimeToDetect
		out.TimeToDetect = &v
	}
	return out
}
