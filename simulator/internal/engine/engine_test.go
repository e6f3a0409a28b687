package engine

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) OnMatch(ctx context.Context, match Match) {
	m.Called(ctx, match)
}

func handoffRule() models.Rule {
	return models.Rule{
		RuleID:      HandoffRuleID,
		Description: "Detects suspicious package handoffs between entities.",
		Trigger: map[string]any{
			"type":   "sequence",
			"events": []any{"drop_package", "pickup_package"},
			"conditions": []any{
				"event1.zone === event2.zone",
				"event1.entity_id !== event2.entity_id",
				"event2.timestamp - event1.timestamp < 60",
			},
		},
		Action: "CREATE_CRITICAL_ALERT",
	}
}

func relayEvents(t *testing.T) []models.Event {
	t.Helper()
	store, err := scenario.NewStore(scenario.Builtin()...)
	require.NoError(t, err)
	sc, err := store.Get(scenario.RelayAttackWagahID)
	require.NoError(t, err)
	return sc.Events
}

func statuses(events []models.Event) []models.DetectionStatus {
	out := make([]models.DetectionStatus, len(events))
	for i, e := range events {
		out[i] = e.Status
	}
	return out
}

var (
	inZone    = models.Coord{31.6042, 74.5728}
	inZoneAlt = models.Coord{31.6050, 74.5740}
	outside   = models.Coord{31.6200, 74.8700}
)

func handoffPair(dropEntity, pickupEntity string, dropAt, pickupAt float64) []models.Event {
	return []models.Event{
		{EntityID: dropEntity, Action: models.ActionDropPackage, Offset: dropAt, Coords: inZone},
		{EntityID: pickupEntity, Action: models.ActionPickupPackage, Offset: pickupAt, Coords: inZone},
	}
}

func TestAnnotate_BaselineBypass(t *testing.T) {
	e := New(geo.DefaultZones())
	events := relayEvents(t)

	matches := e.Annotate(context.Background(), NewSnapshot(), events, nil)

	assert.Empty(t, matches)
	for i, ev := range events {
		if ev.Action == models.ActionPickupPackage {
			assert.Equal(t, models.StatusBypassed, ev.Status, "event %d", i)
		} else {
			assert.Equal(t, models.StatusUndefined, ev.Status, "event %d", i)
		}
	}
	assert.Equal(t, models.OutcomeBypassed, Outcome(events))
	assert.Nil(t, TimeToDetect(events))
}

func TestAnnotate_PatchedDetection(t *testing.T) {
	e := New(geo.DefaultZones())
	events := relayEvents(t)
	obs := new(MockObserver)
	obs.On("OnMatch", mock.Anything, mock.MatchedBy(func(m Match) bool {
		return m.DropIndex == 2 && m.PickupIndex == 6 &&
			m.DropEntity == "OPERATIVE_A" && m.PickupEntity == "OPERATIVE_B" &&
			m.ElapsedSeconds == 7 && m.Zone == "Wagah Border" && m.RuleID == HandoffRuleID
	})).Once()

	matches := e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, obs)

	require.Len(t, matches, 1)
	assert.InDelta(t, 0, matches[0].DistanceMeters, 1e-6)
	assert.Equal(t, []models.DetectionStatus{
		models.StatusUndefined, models.StatusUndefined, models.StatusPending, models.StatusUndefined,
		models.StatusUndefined, models.StatusUndefined, models.StatusDetected, models.StatusUndefined,
	}, statuses(events))
	assert.Equal(t, models.OutcomeDetected, Outcome(events))
	require.NotNil(t, TimeToDetect(events))
	assert.Equal(t, 13.0, *TimeToDetect(events))
	obs.AssertExpectations(t)
}

func TestAnnotate_SameEntityNeverDetected(t *testing.T) {
	e := New(geo.DefaultZones())
	events := handoffPair("OPERATIVE_A", "OPERATIVE_A", 0, 10)

	matches := e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)

	assert.Empty(t, matches)
	assert.Equal(t, models.StatusUndefined, events[0].Status)
	assert.Equal(t, models.StatusBypassed, events[1].Status)
	assert.Equal(t, models.OutcomeBypassed, Outcome(events))
}

func TestAnnotate_WindowBoundary(t *testing.T) {
	tests := []struct {
		name     string
		pickupAt float64
		want     models.DetectionStatus
	}{
		{"well inside", 30, models.StatusDetected},
		{"exactly 60s", 66, models.StatusDetected},
		{"60.001s", 66.001, models.StatusBypassed},
		{"far outside", 600, models.StatusBypassed},
	}
	e := New(geo.DefaultZones())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := handoffPair("A", "B", 6, tt.pickupAt)
			e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)
			assert.Equal(t, tt.want, events[1].Status)
		})
	}
}

func TestAnnotate_WindowOverride(t *testing.T) {
	rule := handoffRule()
	rule.Trigger["window_seconds"] = 300.0
	e := New(geo.DefaultZones())

	events := handoffPair("A", "B", 0, 250)
	e.Annotate(context.Background(), NewSnapshot(rule), events, nil)
	assert.Equal(t, models.StatusDetected, events[1].Status)

	events = handoffPair("A", "B", 0, 250)
	New(geo.DefaultZones(), WithHandoffWindow(10*time.Second)).
		Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)
	assert.Equal(t, models.StatusBypassed, events[1].Status)
}

func TestAnnotate_DifferentZones(t *testing.T) {
	zones := append(geo.DefaultZones(), geo.Zone{
		Name:    "Far Post",
		Polygon: []models.Coord{{31.61, 74.86}, {31.63, 74.86}, {31.63, 74.88}, {31.61, 74.88}},
	})
	e := New(zones)
	events := []models.Event{
		{EntityID: "A", Action: models.ActionDropPackage, Offset: 0, Coords: inZone},
		{EntityID: "B", Action: models.ActionPickupPackage, Offset: 5, Coords: outside},
	}

	e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)

	assert.Equal(t, models.StatusUndefined, events[0].Status)
	assert.Equal(t, models.StatusBypassed, events[1].Status)
}

func TestAnnotate_OutsideEveryZoneNeverMatches(t *testing.T) {
	e := New(geo.DefaultZones())
	events := []models.Event{
		{EntityID: "A", Action: models.ActionDropPackage, Offset: 0, Coords: outside},
		{EntityID: "B", Action: models.ActionPickupPackage, Offset: 5, Coords: outside},
	}

	e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)

	assert.Equal(t, models.StatusBypassed, events[1].Status)
}

func TestAnnotate_EarliestDropWins(t *testing.T) {
	e := New(geo.DefaultZones())
	events := []models.Event{
		{EntityID: "A", Action: models.ActionDropPackage, Offset: 0, Coords: inZone},
		{EntityID: "C", Action: models.ActionDropPackage, Offset: 5, Coords: inZoneAlt},
		{EntityID: "B", Action: models.ActionPickupPackage, Offset: 10, Coords: inZone},
		{EntityID: "D", Action: models.ActionPickupPackage, Offset: 12, Coords: inZoneAlt},
	}

	matches := e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)

	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].DropIndex)
	assert.Equal(t, 2, matches[0].PickupIndex)
	assert.Equal(t, 1, matches[1].DropIndex)
	assert.Equal(t, 3, matches[1].PickupIndex)
	assert.Equal(t, []models.DetectionStatus{
		models.StatusPending, models.StatusPending, models.StatusDetected, models.StatusDetected,
	}, statuses(events))
}

func TestAnnotate_EarliestSkipsSameEntity(t *testing.T) {
	e := New(geo.DefaultZones())
	events := []models.Event{
		{EntityID: "B", Action: models.ActionDropPackage, Offset: 0, Coords: inZone},
		{EntityID: "A", Action: models.ActionDropPackage, Offset: 1, Coords: inZone},
		{EntityID: "B", Action: models.ActionPickupPackage, Offset: 2, Coords: inZone},
	}

	matches := e.Annotate(context.Background(), NewSnapshot(handoffRule()), events, nil)

	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].DropIndex)
	assert.Equal(t, models.StatusUndefined, events[0].Status)
	assert.Equal(t, models.StatusPending, events[1].Status)
}

func TestAnnotate_PickupWithoutDrop(t *testing.T) {
	e := New(geo.DefaultZones())
	events := []models.Event{
		{EntityID: "B", Action: models.ActionPickupPackage, Offset: 0, Coords: inZone},
		{EntityID: "A", Action: models.ActionDropPackage, Offset: 1, Coords: inZone},
	}

	e.Annotate(context.Background(), NewSnapshot(), events, nil)

	assert.Equal(t, models.StatusUndefined, events[0].Status)
	assert.Equal(t, models.StatusUndefined, events[1].Status)
	assert.Equal(t, models.OutcomeBypassed, Outcome(events))
}

func TestAnnotate_InertRuleKeepsBaseline(t *testing.T) {
	e := New(geo.DefaultZones())
	events := relayEvents(t)
	inert := models.Rule{RuleID: "loiter_v1", Trigger: map[string]any{"type": "dwell", "seconds": 30}}

	e.Annotate(context.Background(), NewSnapshot(inert), events, nil)

	assert.Equal(t, models.StatusBypassed, events[6].Status)
	assert.Equal(t, models.OutcomeBypassed, Outcome(events))
}

func TestAnnotate_ShapeRecognisedByTrigger(t *testing.T) {
	e := New(geo.DefaultZones())
	events := relayEvents(t)
	rule := handoffRule()
	rule.RuleID = "custom_handoff"

	e.Annotate(context.Background(), NewSnapshot(rule), events, nil)

	assert.Equal(t, models.StatusDetected, events[6].Status)
}

func TestAnnotate_Deterministic(t *testing.T) {
	e := New(geo.DefaultZones())
	snap := NewSnapshot(handoffRule())

	first := relayEvents(t)
	second := relayEvents(t)
	e.Annotate(context.Background(), snap, first, nil)
	e.Annotate(context.Background(), snap, second, nil)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, Outcome(first), Outcome(second))
}

func TestAnnotate_ResetsStaleStatuses(t *testing.T) {
	e := New(geo.DefaultZones())
	events := relayEvents(t)
	events[0].Status = models.StatusDetected

	e.Annotate(context.Background(), NewSnapshot(), events, nil)

	assert.Equal(t, models.StatusUndefined, events[0].Status)
}

func TestOutcome_LastTerminalWins(t *testing.T) {
	events := []models.Event{
		{Status: models.StatusDetected},
		{Status: models.StatusBypassed},
		{Status: models.StatusPending},
	}
	assert.Equal(t, models.OutcomeBypassed, Outcome(events))

	events[1].Status = models.StatusUndefined
	assert.Equal(t, models.OutcomeDetected, Outcome(events))

	assert.Equal(t, models.OutcomeBypassed, Outcome(nil))
}
