package session

import (
	"context"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/common/messaging"
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/simulation"
)

// RuleObserver is notified after a rule is stored.
type RuleObserver interface {
	OnRuleApplied(ctx context.Context, rule models.Rule)
}

// LogObserver writes matches and completed runs to the structured log.
type LogObserver struct {
	logger *logging.Logger
}

func NewLogObserver(logger *logging.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnMatch(ctx context.Context, m engine.Match) {
	o.logger.InfoContext(ctx, "handoff detected",
		logging.RuleID(m.RuleID),
		logging.Location(m.Zone),
		"drop_entity", m.DropEntity,
		"pickup_entity", m.PickupEntity,
		"elapsed_seconds", m.ElapsedSeconds,
		"distance_meters", m.DistanceMeters,
	)
}

func (o *LogObserver) OnRunCompleted(ctx context.Context, log models.AttackLog) {
	o.logger.DebugContext(ctx, "attack log recorded",
		logging.RunID(log.ID),
		logging.ScenarioID(log.ScenarioID),
		logging.Outcome(string(log.Outcome)),
		"entries", len(log.Entries),
	)
}

func (o *LogObserver) OnRuleApplied(ctx context.Context, rule models.Rule) {
	o.logger.InfoContext(ctx, "rule applied",
		logging.RuleID(rule.RuleID),
		"handoff", engine.IsHandoff(rule),
	)
}

// RunCompleted is the payload published when a run finishes.
type RunCompleted struct {
	LogID        string         `json:"attack_log_id"`
	ScenarioID   string         `json:"scenario_id"`
	Outcome      models.Outcome `json:"outcome"`
	RuleIDs      []string       `json:"rule_ids"`
	TimeToDetect *float64       `json:"time_to_detect_seconds,omitempty"`
}

// NATSObserver publishes run, match and rule notifications. Publish errors
// are logged and never fail the run.
type NATSObserver struct {
	publisher messaging.Publisher
	prefix    string
	logger    *logging.Logger
}

func NewNATSObserver(p messaging.Publisher, prefix string, logger *logging.Logger) *NATSObserver {
	return &NATSObserver{publisher: p, prefix: prefix, logger: logger}
}

func (o *NATSObserver) OnMatch(ctx context.Context, m engine.Match) {
	o.publish(ctx, messaging.Subject(o.prefix, messaging.ResourceRules, messaging.ActionMatched), m)
}

func (o *NATSObserver) OnRunCompleted(ctx context.Context, log models.AttackLog) {
	o.publish(ctx, messaging.Subject(o.prefix, messaging.ResourceRuns, messaging.ActionCompleted), RunCompleted{
		LogID:        log.ID,
		ScenarioID:   log.ScenarioID,
		Outcome:      log.Outcome,
		RuleIDs:      log.RuleIDs,
		TimeToDetect: log.TimeToDetect,
	})
}

func (o *NATSObserver) OnRuleApplied(ctx context.Context, rule models.Rule) {
	o.publish(ctx, messaging.Subject(o.prefix, messaging.ResourceRules, messaging.ActionApplied), rule)
}

func (o *NATSObserver) publish(ctx context.Context, subject string, v any) {
	if err := messaging.PublishJSON(ctx, o.publisher, subject, v); err != nil {
		o.logger.WarnContext(ctx, "failed to publish notification",
			"subject", subject,
			logging.Error(err),
		)
	}
}

var (
	_ simulation.Observer = (*LogObserver)(nil)
	_ simulation.Observer = (*NATSObserver)(nil)
	_ RuleObserver        = (*LogObserver)(nil)
	_ RuleObserver        = (*NATSObserver)(nil)
)
