// Package correlation joins social threat flags with scenario vulnerabilities.
package correlation

import (
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// Input is everything a correlation pass reads. Nothing is retained.
type Input struct {
	Flags     []models.SocialFlag
	Logs      []models.AttackLog
	Rules     engine.Snapshot
	Scenarios []models.Scenario
	Zones     geo.ZoneSet
}

// Compute derives correlations from scratch. A flag pairs with a scenario
// when its location text names the scenario's zone (label or keyword,
// ignoring case) and at least one attack log exists for that scenario.
func Compute(in Input) []models.Correlation {
	runs := make(map[string]int, len(in.Scenarios))
	for _, l := range in.Logs {
		runs[l.ScenarioID]++
	}

	var out []models.Correlation
	for _, flag := range in.Flags {
		for _, sc := range in.Scenarios {
			if runs[sc.ID] == 0 {
				continue
			}
			zone, ok := in.Zones.Find(sc.Zone)
			if !ok {
				zone = geo.Zone{Name: sc.Zone}
			}
			if !zone.MatchesText(flag.Location) {
				continue
			}
			out = append(out, build(flag, sc, in.Rules))
		}
	}
	return out
}

func build(flag models.SocialFlag, sc models.Scenario, rules engine.Snapshot) models.Correlation {
	status := models.StatusVulnerable
	if rules.Addresses(sc.Signature) {
		status = models.StatusPatched
	}
	var coords *models.Coord
	if flag.Coords != nil {
		c := *flag.Coords
		coords = &c
	}
	return models.Correlation{
		ID:       "corr_" + sc.ID + "_" + flag.ID,
		Location: sc.Zone + " Region",
		FlagID:   flag.ID,
		SocialThreat: models.SocialThreat{
			Type:  ThreatType(flag.Level),
			Level: flag.Level,
		},
		Vulnerability: models.Vulnerability{
			ScenarioID: sc.ID,
			Scenario:   sc.Name + " Vulnerability",
			Status:     status,
		},
		Coords: coords,
	}
}

// ThreatType names the social threat for a level.
func ThreatType(level models.ThreatLevel) string {
	switch level {
	case models.ThreatCritical:
		return "Organized Protest Activity"
	case models.ThreatWarning:
		return "Illicit Transfer Chatter"
	case models.ThreatNone:
		return "Unclassified Social Signal"
	default:
		return "Unclassified Social Signal"
	}
}
