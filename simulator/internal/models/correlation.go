package models

// VulnerabilityStatus says whether the rule set currently covers a scenario.
type VulnerabilityStatus string

const (
	StatusPatched    VulnerabilityStatus = "Patched"
	StatusVulnerable VulnerabilityStatus = "Vulnerable"
)

// SocialThreat describes the social side of a correlation.
type SocialThreat struct {
	Type  string      `json:"type"`
	Level ThreatLevel `json:"level"`
}

// Vulnerability describes the physical side of a correlation.
type Vulnerability struct {
	ScenarioID string              `json:"scenario_id"`
	Scenario   string              `json:"scenario"`
	Status     VulnerabilityStatus `json:"status"`
}

// Correlation links a social flag to a scenario vulnerability. Derived on
// demand, never stored.
type Correlation struct {
	ID            string        `json:"id"`
	Location      string        `json:"location"`
	FlagID        string        `json:"flag_id"`
	SocialThreat  SocialThreat  `json:"social_threat"`
	Vulnerability Vulnerability `json:"red_team_vuln"`
	Coords        *Coord        `json:"coords,omitempty"`
}
