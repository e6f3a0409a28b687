package social

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

func fixedFeed(seed int64, max int) *Feed {
	f := NewFeed(nil, gofakeit.New(seed), max)
	f.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestFeed_PollBounds(t *testing.T) {
	f := fixedFeed(1, 3)
	for i := 0; i < 50; i++ {
		posts := f.Poll()
		require.GreaterOrEqual(t, len(posts), 1)
		require.LessOrEqual(t, len(posts), 3)

		seen := map[string]bool{}
		for _, p := range posts {
			assert.False(t, seen[p.Text], "duplicate post in one sample")
			seen[p.Text] = true
			assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), p.Timestamp)
		}
	}
}

func TestFeed_SampleMaxCappedByPool(t *testing.T) {
	pool := DefaultPool()[:2]
	f := NewFeed(pool, gofakeit.New(5), 10)
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, len(f.Poll()), 2)
	}
}

func TestFeed_Deterministic(t *testing.T) {
	a := fixedFeed(42, 3).Poll()
	b := fixedFeed(42, 3).Poll()
	assert.Equal(t, a, b)
}

func TestFeed_FreshIDs(t *testing.T) {
	posts := fixedFeed(9, 3).Poll()
	for _, p := range posts {
		assert.NotContains(t, []string{"tw_1", "tg_1", "rd_1", "nw_1", "pa_1", "hi_1"}, p.PostID)
		assert.Contains(t, p.PostID, "_1772366400000_")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text    string
		level   models.ThreatLevel
		summary string
	}{
		{"Big convoy PROTEST planned near Wagah", models.ThreatCritical, SummaryCritical},
		{"वाघा पर घेराव की योजना बन रही है।", models.ThreatCritical, SummaryCritical},
		{"road blockade expected", models.ThreatCritical, SummaryCritical},
		{"Need to get a special package across", models.ThreatWarning, SummaryWarning},
		{"how to smuggle goods", models.ThreatWarning, SummaryWarning},
		{"protest about a package", models.ThreatCritical, SummaryCritical},
		{"Authorities increase security measures", models.ThreatNone, SummaryNone},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			level, summary := Classify(tt.text)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.summary, summary)
		})
	}
}

func TestAnalyzer_DefaultPool(t *testing.T) {
	a := NewAnalyzer(gofakeit.New(3))
	analysis := a.Analyze(DefaultPool())

	require.Len(t, analysis.Results, 6)
	levels := map[string]models.ThreatLevel{}
	for _, r := range analysis.Results {
		levels[r.PostID] = r.Level
		assert.GreaterOrEqual(t, r.Confidence, 0.65)
		assert.LessOrEqual(t, r.Confidence, 0.95)
	}
	assert.Equal(t, models.ThreatCritical, levels["tw_1"])
	assert.Equal(t, models.ThreatWarning, levels["tg_1"])
	assert.Equal(t, models.ThreatNone, levels["rd_1"])
	assert.Equal(t, models.ThreatNone, levels["nw_1"])
	assert.Equal(t, models.ThreatNone, levels["pa_1"])
	assert.Equal(t, models.ThreatCritical, levels["hi_1"])

	require.Len(t, analysis.MapPoints, 1)
	assert.Equal(t, "Wagah Border Crossing", analysis.MapPoints[0].Label)

	flags := analysis.Flags()
	require.Len(t, flags, 3)
	assert.Equal(t, "Wagah Border", flags[0].Location)
	assert.Equal(t, "Amritsar", flags[1].Location)
	assert.Equal(t, models.ThreatWarning, flags[1].Level)
	assert.Equal(t, "Wagah", flags[2].Location)
}

func TestAnalyzer_NoThreatNoMapPoint(t *testing.T) {
	analysis := NewAnalyzer(gofakeit.New(1)).Analyze([]models.Post{{PostID: "x", Text: "quiet day"}})
	assert.Empty(t, analysis.MapPoints)
	assert.Empty(t, analysis.Flags())
}
