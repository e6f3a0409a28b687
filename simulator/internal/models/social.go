package models

import "time"

// ThreatLevel classifies a social signal.
type ThreatLevel string

const (
	ThreatNone     ThreatLevel = "none"
	ThreatWarning  ThreatLevel = "warning"
	ThreatCritical ThreatLevel = "critical"
)

// IsValid checks if the level is known
func (l ThreatLevel) IsValid() bool {
	switch l {
	case ThreatNone, ThreatWarning, ThreatCritical:
		return true
	default:
		return false
	}
}

// SocialFlag is an external signal that a location shows threat activity.
// Coords is nil when geocoding missed; the flag is still valid.
type SocialFlag struct {
	ID       string      `json:"id"`
	Location string      `json:"location" validate:"required,notblank"`
	Level    ThreatLevel `json:"level"`
	Summary  string      `json:"summary,omitempty"`
	Coords   *Coord      `json:"coords,omitempty"`
}

// Post is a raw social-feed record as supplied by the feed collaborator.
type Post struct {
	PostID      string    `json:"post_id" yaml:"post_id"`
	Source      string    `json:"source" yaml:"source"`
	Text        string    `json:"text" yaml:"text"`
	Timestamp   time.Time `json:"timestamp" yaml:"-"`
	User        string    `json:"user" yaml:"user"`
	RawLocation string    `json:"raw_location" yaml:"raw_location"`
	Lang        string    `json:"lang" yaml:"lang"`
}
