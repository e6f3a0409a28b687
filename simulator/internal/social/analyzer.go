package social

import (
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// Result is the classification of one post.
type Result struct {
	PostID     string             `json:"post_id"`
	Level      models.ThreatLevel `json:"threat_level"`
	Confidence float64            `json:"confidence"`
	Locations  []string           `json:"locations"`
	Summary    string             `json:"summary"`
}

// MapPoint is a highlighted location for presentation.
type MapPoint struct {
	Coords    models.Coord `json:"coords"`
	Intensity float64      `json:"intensity"`
	Label     string       `json:"label"`
}

// Analysis is the output of one Analyze call.
type Analysis struct {
	Results   []Result   `json:"results"`
	MapPoints []MapPoint `json:"map_points"`
}

const (
	SummaryCritical = "Potential for civil unrest and blockade at a major crossing."
	SummaryWarning  = "Chatter related to illicit package transfer detected."
	SummaryNone     = "No immediate threat identified."

	crossingLabel = "Wagah Border Crossing"
)

var (
	criticalKeywords = []string{"protest", "घेराव", "blockade"}
	warningKeywords  = []string{"package", "smuggle"}
	crossingCoords   = models.Coord{31.6047, 74.5725}
)

// Analyzer is a keyword classifier standing in for the language-model
// analysis service.
type Analyzer struct {
	faker *gofakeit.Faker
}

func NewAnalyzer(faker *gofakeit.Faker) *Analyzer {
	return &Analyzer{faker: faker}
}

// Classify returns the threat level and summary for one text.
func Classify(text string) (models.ThreatLevel, string) {
	lower := strings.ToLower(text)
	if containsAny(lower, criticalKeywords) {
		return models.ThreatCritical, SummaryCritical
	}
	if containsAny(lower, warningKeywords) {
		return models.ThreatWarning, SummaryWarning
	}
	return models.ThreatNone, SummaryNone
}

// Analyze classifies every post.
func (a *Analyzer) Analyze(posts []models.Post) Analysis {
	out := Analysis{Results: make([]Result, 0, len(posts))}
	for _, p := range posts {
		level, summary := Classify(p.Text)
		if level == models.ThreatCritical && len(out.MapPoints) == 0 {
			out.MapPoints = append(out.MapPoints, MapPoint{Coords: crossingCoords, Intensity: 0.8, Label: crossingLabel})
		}
		out.Results = append(out.Results, Result{
			PostID:     p.PostID,
			Level:      level,
			Confidence: 0.65 + 0.3*a.faker.Float64(),
			Locations:  []string{p.RawLocation},
			Summary:    summary,
		})
	}
	return out
}

// Flags turns non-benign results into unlocated social flags.
func (a Analysis) Flags() []models.SocialFlag {
	var flags []models.SocialFlag
	for _, r := range a.Results {
		if r.Level == models.ThreatNone {
			continue
		}
		for _, loc := range r.Locations {
			if strings.TrimSpace(loc) == "" {
				continue
			}
			flags = append(flags, models.SocialFlag{Location: loc, Level: r.Level, Summary: r.Summary})
		}
	}
	return flags
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
