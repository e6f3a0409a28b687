// Package session owns every piece of mutable simulator state: the rule
// set, the attack log history, run metrics and social flags. State lives for
// the lifetime of a Session and is cleared only by Reset.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/common/messaging"
	"github.com/telhawk-systems/breachsim/simulator/internal/authoring"
	"github.com/telhawk-systems/breachsim/simulator/internal/correlation"
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/geocode"
	"github.com/telhawk-systems/breachsim/simulator/internal/metrics"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/runlock"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
	"github.com/telhawk-systems/breachsim/simulator/internal/simulation"
	"github.com/telhawk-systems/breachsim/simulator/internal/social"
)

var ErrInvalidFlag = errors.New("invalid social flag")

// DefaultFlag is seeded into every new or reset session.
func DefaultFlag() models.SocialFlag {
	return models.SocialFlag{ID: "flag_01", Location: "Wagah Border", Level: models.ThreatCritical}
}

// Options wires a Session. Zero values take in-process defaults.
type Options struct {
	Store         *scenario.Store
	Zones         geo.ZoneSet
	HandoffWindow time.Duration
	Guard         runlock.Guard
	LockKey       string
	Geocoder      geocode.Geocoder
	Faker         *gofakeit.Faker
	SampleMax     int
	Publisher     messaging.Publisher
	SubjectPrefix string
	Proposer      authoring.Proposer
	Logger        *logging.Logger
	IDFunc        simulation.IDFunc
	// Observers receive run notifications alongside the built-in ones.
	Observers     []simulation.Observer
}

// Session is the explicit context object for one simulator session.
type Session struct {
	store     *scenario.Store
	zones     geo.ZoneSet
	rules     *engine.RuleSet
	sim       *simulation.Simulator
	metrics   *metrics.Aggregator
	geocoder  geocode.Geocoder
	feed      *social.Feed
	analyzer  *social.Analyzer
	proposer  authoring.Proposer
	ruleObs   []RuleObserver
	validate  *validator.Validate
	logger    *logging.Logger
	newFlagID func() string

	mu    sync.RWMutex
	flags []models.SocialFlag
}

func New(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if len(opts.Zones) == 0 {
		opts.Zones = geo.DefaultZones()
	}
	if err := opts.Zones.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		store, err := scenario.NewStore(scenario.Builtin()...)
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}
	if opts.Geocoder == nil {
		opts.Geocoder = geocode.DefaultIndex()
	}
	if opts.Faker == nil {
		opts.Faker = gofakeit.New(0)
	}
	if opts.Publisher == nil {
		opts.Publisher = messaging.NopPublisher{}
	}
	if opts.Proposer == nil {
		opts.Proposer = authoring.NewTemplate()
	}

	logObs := NewLogObserver(opts.Logger)
	natsObs := NewNATSObserver(opts.Publisher, opts.SubjectPrefix, opts.Logger)
	agg := metrics.NewAggregator()
	rules := engine.NewRuleSet()

	s := &Session{
		store:    opts.Store,
		zones:    opts.Zones,
		rules:    rules,
		metrics:  agg,
		geocoder: opts.Geocoder,
		feed:     social.NewFeed(nil, opts.Faker, opts.SampleMax),
		analyzer: social.NewAnalyzer(opts.Faker),
		proposer: opts.Proposer,
		ruleObs:  []RuleObserver{logObs, natsObs},
		validate: models.NewValidator(),
		logger:   opts.Logger,
		newFlagID: func() string {
			return "flag_" + uuid.NewString()
		},
		flags: []models.SocialFlag{DefaultFlag()},
	}
	s.sim = simulation.New(simulation.Config{
		Store: opts.Store,
		Rules: rules,
		Engine: engine.New(opts.Zones,
			engine.WithHandoffWindow(opts.HandoffWindow),
			engine.WithLogger(opts.Logger),
		),
		Guard:     opts.Guard,
		LockKey:   opts.LockKey,
		IDFunc:    opts.IDFunc,
		Observers: append([]simulation.Observer{agg, logObs, natsObs}, opts.Observers...),
		Logger:    opts.Logger,
	})
	return s, nil
}

// Scenarios lists the scenario catalog.
func (s *Session) Scenarios() []models.Scenario {
	return s.store.List()
}

// Zones returns the configured restricted zones.
func (s *Session) Zones() geo.ZoneSet {
	return s.zones
}

// Run executes one scenario.
func (s *Session) Run(ctx context.Context, scenarioID string) (*simulation.Result, error) {
	return s.sim.Run(ctx, scenarioID)
}

// ApplyRule validates and upserts a rule.
func (s *Session) ApplyRule(ctx context.Context, rule models.Rule) error {
	if err := s.rules.ApplyRule(rule); err != nil {
		return err
	}
	for _, o := range s.ruleObs {
		o.OnRuleApplied(ctx, rule)
	}
	return nil
}

// ClearRules empties the rule set.
func (s *Session) ClearRules(ctx context.Context) {
	s.rules.ClearRules()
	s.logger.InfoContext(ctx, "rules cleared")
}

// Rules lists the active rules.
func (s *Session) Rules() []models.Rule {
	return s.rules.Rules()
}

// Logs returns the attack log history.
func (s *Session) Logs() []models.AttackLog {
	return s.sim.History().List()
}

// Log returns one attack log.
func (s *Session) Log(id string) (models.AttackLog, bool) {
	return s.sim.History().Get(id)
}

// Stats returns the run statistics.
func (s *Session) Stats() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// Flags returns the social flags.
func (s *Session) Flags() []models.SocialFlag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SocialFlag, len(s.flags))
	copy(out, s.flags)
	return out
}

// AddFlag stores a flag, geocoding its location when it carries no
// coordinates. Geocoder failures leave the flag unmapped.
func (s *Session) AddFlag(ctx context.Context, flag models.SocialFlag) (models.SocialFlag, error) {
	flag.Location = strings.TrimSpace(flag.Location)
	if err := s.validate.Struct(flag); err != nil {
		return models.SocialFlag{}, fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if flag.Level == "" {
		flag.Level = models.ThreatCritical
	}
	if !flag.Level.IsValid() {
		return models.SocialFlag{}, fmt.Errorf("%w: unknown level %q", ErrInvalidFlag, flag.Level)
	}
	if flag.ID == "" {
		flag.ID = s.newFlagID()
	}
	if flag.Coords == nil {
		flag.Coords = s.locate(ctx, flag.Location)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.flags {
		if s.flags[i].ID == flag.ID {
			s.flags[i] = flag
			return flag, nil
		}
	}
	s.flags = append(s.flags, flag)
	return flag, nil
}

func (s *Session) locate(ctx context.Context, location string) *models.Coord {
	c, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		s.logger.WarnContext(ctx, "geocode failed, flag left unmapped",
			logging.Location(location),
			logging.Error(err),
		)
		return nil
	}
	return c
}

// FeedResult is one feed poll: the sampled posts, their analysis and the
// flags that were added.
type FeedResult struct {
	Posts    []models.Post       `json:"posts"`
	Analysis social.Analysis     `json:"analysis"`
	Flags    []models.SocialFlag `json:"flags"`
}

// PollFeed samples the social feed, classifies it and stores any threat
// flags it raises.
func (s *Session) PollFeed(ctx context.Context) (*FeedResult, error) {
	posts := s.feed.Poll()
	analysis := s.analyzer.Analyze(posts)

	res := &FeedResult{Posts: posts, Analysis: analysis}
	for _, f := range analysis.Flags() {
		added, err := s.AddFlag(ctx, f)
		if err != nil {
			return nil, err
		}
		res.Flags = append(res.Flags, added)
	}
	return res, nil
}

// Correlations recomputes correlations from the current session state.
func (s *Session) Correlations() []models.Correlation {
	return correlation.Compute(correlation.Input{
		Flags:     s.Flags(),
		Logs:      s.Logs(),
		Rules:     s.rules.Snapshot(),
		Scenarios: s.store.List(),
		Zones:     s.zones,
	})
}

// ProposePatch asks the authoring collaborator for a rule based on the most
// recent attack log. The proposal is not applied.
func (s *Session) ProposePatch(ctx context.Context) (models.Patch, error) {
	latest, ok := s.sim.History().Latest()
	if !ok {
		return models.Patch{}, authoring.ErrNoLog
	}
	return s.proposer.Propose(ctx, latest)
}

// Reset clears rules, history and metrics, and reseeds the default flag.
// It holds the run lock throughout and fails with
// simulation.ErrConcurrencyRejected while a run is in flight.
func (s *Session) Reset(ctx context.Context) error {
	err := s.sim.Exclusive(ctx, func() {
		s.rules.ClearRules()
		s.sim.History().Reset()
		s.metrics.Reset()

		s.mu.Lock()
		s.flags = []models.SocialFlag{DefaultFlag()}
		s.mu.Unlock()
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "session reset")
	return nil
}
