// Package simulation orchestrates single scenario runs.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/runlock"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

// ErrConcurrencyRejected is returned when a run is already in flight.
var ErrConcurrencyRejected = errors.New("a simulation run is already in progress")

// IDFunc produces attack log ids.
type IDFunc func() (string, error)

// NewV7ID returns a UUIDv7 string.
func NewV7ID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Observer is notified synchronously of rule matches and completed runs.
type Observer interface {
	engine.MatchObserver
	OnRunCompleted(ctx context.Context, log models.AttackLog)
}

// Observers fans out to every observer in order.
type Observers []Observer

func (o Observers) OnMatch(ctx context.Context, m engine.Match) {
	for _, obs := range o {
		obs.OnMatch(ctx, m)
	}
}

func (o Observers) OnRunCompleted(ctx context.Context, log models.AttackLog) {
	for _, obs := range o {
		obs.OnRunCompleted(ctx, log)
	}
}

// Result is what one run hands back: the annotated private copy of the
// events plus the log that was recorded.
type Result struct {
	Events  []models.Event
	LogID   string
	Log     models.AttackLog
	Matches []engine.Match
}

// Simulator runs scenarios against the session's rule set.
type Simulator struct {
	store    *scenario.Store
	rules    *engine.RuleSet
	engine   *engine.Engine
	history  *History
	guard    runlock.Guard
	lockKey  string
	newID    IDFunc
	now      func() time.Time
	observer Observer
	logger   *logging.Logger
}

// Config carries a Simulator's collaborators. Nil optional fields take
// in-process defaults.
type Config struct {
	Store     *scenario.Store
	Rules     *engine.RuleSet
	Engine    *engine.Engine
	History   *History
	Guard     runlock.Guard
	LockKey   string
	IDFunc    IDFunc
	Now       func() time.Time
	Observers []Observer
	Logger    *logging.Logger
}

func New(cfg Config) *Simulator {
	s := &Simulator{
		store:    cfg.Store,
		rules:    cfg.Rules,
		engine:   cfg.Engine,
		history:  cfg.History,
		guard:    cfg.Guard,
		lockKey:  cfg.LockKey,
		newID:    cfg.IDFunc,
		now:      cfg.Now,
		observer: Observers(cfg.Observers),
		logger:   cfg.Logger,
	}
	if s.history == nil {
		s.history = NewHistory()
	}
	if s.guard == nil {
		s.guard = runlock.NewLocal()
	}
	if s.lockKey == "" {
		s.lockKey = "default"
	}
	if s.newID == nil {
		s.newID = NewV7ID
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// History returns the attack log history.
func (s *Simulator) History() *History {
	return s.history
}

// Run executes one scenario: copy, annotate against a rule snapshot, record
// the log. Unknown scenarios fail with scenario.ErrNotFound and record
// nothing; a second concurrent Run fails with ErrConcurrencyRejected.
func (s *Simulator) Run(ctx context.Context, scenarioID string) (*Result, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sc, err := s.store.Get(scenarioID)
	if err != nil {
		return nil, err
	}

	snap := s.rules.Snapshot()
	// Get already returned a private deep copy; annotation mutates it.
	events := sc.Events
	matches := s.engine.Annotate(ctx, snap, events, s.observer)

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate log id: %w", err)
	}

	entries := make([]models.LogEntry, len(events))
	for i := range events {
		entries[i] = models.NewLogEntry(events[i])
	}
	log := models.AttackLog{
		ID:           id,
		ScenarioID:   sc.ID,
		Entries:      entries,
		Outcome:      engine.Outcome(events),
		RuleIDs:      snap.IDs(),
		TimeToDetect: engine.TimeToDetect(events),
		CreatedAt:    s.now().UTC(),
	}
	s.history.Append(log)

	s.logger.InfoContext(ctx, "simulation run completed",
		logging.RunID(log.ID),
		logging.ScenarioID(log.ScenarioID),
		logging.Outcome(string(log.Outcome)),
		"matches", len(matches),
		"rules", len(log.RuleIDs),
	)
	s.observer.OnRunCompleted(ctx, log.Clone())

	return &Result{Events: events, LogID: log.ID, Log: log, Matches: matches}, nil
}

// Exclusive runs fn while holding the run lock, so fn never observes a
// half-recorded run. It fails with ErrConcurrencyRejected while a run is
// in flight.
func (s *Simulator) Exclusive(ctx context.Context, fn func()) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	fn()
	return nil
}

func (s *Simulator) acquire(ctx context.Context) (func(), error) {
	release, err := s.guard.TryAcquire(ctx, s.lockKey)
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyRejected, err)
		}
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to release run lock", logging.Error(err))
		}
	}, nil
}
