package engine

import (
	"context"
	"time"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// DefaultHandoffWindow bounds drop→pickup matching when a rule sets no window.
const DefaultHandoffWindow = 60 * time.Second

// Match is one drop/pickup pair joined by the handoff rule.
type Match struct {
	RuleID         string  `json:"rule_id"`
	Zone           string  `json:"zone"`
	DropIndex      int     `json:"drop_index"`
	PickupIndex    int     `json:"pickup_index"`
	DropEntity     string  `json:"drop_entity"`
	PickupEntity   string  `json:"pickup_entity"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	DistanceMeters float64 `json:"distance_meters"`
}

// MatchObserver is notified synchronously after each rule match.
type MatchObserver interface {
	OnMatch(ctx context.Context, m Match)
}

// Engine annotates event sequences against a rule snapshot.
type Engine struct {
	zones  geo.ZoneSet
	window float64
	logger *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHandoffWindow sets the default handoff window.
func WithHandoffWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d.Seconds()
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(zones geo.ZoneSet, opts ...Option) *Engine {
	e := &Engine{
		zones:  zones,
		window: DefaultHandoffWindow.Seconds(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Zones returns the configured zones.
func (e *Engine) Zones() geo.ZoneSet {
	return e.zones
}

type pendingDrop struct {
	index  int
	entity string
	zone   string
	offset float64
}

// Annotate assigns detection statuses to events in place and returns the
// handoff matches in pickup order. Events must already be a private copy.
//
// Baseline: every pickup that follows some drop is BYPASSED. With a handoff
// rule active, a pickup joined to the earliest buffered drop in the same
// zone, by a different entity, within the window, is DETECTED and that drop
// becomes PENDING.
func (e *Engine) Annotate(ctx context.Context, snap Snapshot, events []models.Event, obs MatchObserver) []Match {
	ruleID, window, handoff := snap.handoff(e.window)

	var (
		buffer   []pendingDrop
		seenDrop bool
		matches  []Match
	)

	for i := range events {
		ev := &events[i]
		ev.Status = models.StatusUndefined

		switch ev.Action {
		case models.ActionDropPackage:
			seenDrop = true
			if !handoff {
				continue
			}
			zone, ok := e.zones.Locate(ev.Coords)
			if !ok {
				e.logger.DebugContext(ctx, "drop outside every zone",
					logging.EntityID(ev.EntityID))
				continue
			}
			buffer = append(buffer, pendingDrop{index: i, entity: ev.EntityID, zone: zone, offset: ev.Offset})

		case models.ActionPickupPackage:
			if handoff {
				if j, ok := e.joinPickup(buffer, ev, window); ok {
					drop := buffer[j]
					buffer = append(buffer[:j], buffer[j+1:]...)

					events[drop.index].Status = models.StatusPending
					ev.Status = models.StatusDetected

					m := Match{
						RuleID:         ruleID,
						Zone:           drop.zone,
						DropIndex:      drop.index,
						PickupIndex:    i,
						DropEntity:     drop.entity,
						PickupEntity:   ev.EntityID,
						ElapsedSeconds: ev.Offset - drop.offset,
						DistanceMeters: geo.DistanceMeters(events[drop.index].Coords, ev.Coords),
					}
					matches = append(matches, m)
					if obs != nil {
						obs.OnMatch(ctx, m)
					}
					continue
				}
			}
			if seenDrop {
				ev.Status = models.StatusBypassed
			}

		case models.ActionEnter, models.ActionExit, models.ActionMove:
		}
	}
	return matches
}

// joinPickup returns the buffer index of the earliest qualifying drop.
func (e *Engine) joinPickup(buffer []pendingDrop, pickup *models.Event, window float64) (int, bool) {
	zone, ok := e.zones.Locate(pickup.Coords)
	if !ok {
		return 0, false
	}
	for j, d := range buffer {
		if d.zone != zone || d.entity == pickup.EntityID {
			continue
		}
		elapsed := pickup.Offset - d.offset
		if elapsed >= 0 && elapsed <= window {
			return j, true
		}
	}
	return 0, false
}

// Outcome is decided by the last terminal status in sequence order;
// Bypassed when no event reached a terminal status.
func Outcome(events []models.Event) models.Outcome {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Status {
		case models.StatusDetected:
			return models.OutcomeDetected
		case models.StatusBypassed:
			return models.OutcomeBypassed
		case models.StatusUndefined, models.StatusPending:
		}
	}
	return models.OutcomeBypassed
}

// TimeToDetect returns the offset of the first DETECTED event, or nil.
func TimeToDetect(events []models.Event) *float64 {
	for _, ev := range events {
		if ev.Status == models.StatusDetected {
			v := ev.Offset
			return &v
		}
	}
	return nil
}
