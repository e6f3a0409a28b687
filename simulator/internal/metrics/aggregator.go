// Package metrics aggregates per-session run statistics and mirrors them to
// Prometheus.
package metrics

import (
	"context"
	"sync"

	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// SystemStatus summarises the last run.
type SystemStatus string

const (
	StatusSecure      SystemStatus = "Secure"
	StatusCompromised SystemStatus = "Compromised"
)

// Snapshot is a point-in-time view of the aggregate.
type Snapshot struct {
	Iterations      int          `json:"iterations"`
	Detections      int          `json:"detections"`
	DetectionRate   float64      `json:"detection_rate"`
	BypassRate      float64      `json:"bypass_rate"`
	AvgTimeToDetect *float64     `json:"avg_time_to_detect_seconds"`
	SystemStatus    SystemStatus `json:"system_status"`
}

// Aggregator counts runs and detections. It is updated once per completed
// run from the run's outcome only.
type Aggregator struct {
	mu          sync.Mutex
	iterations  int
	detections  int
	detectSum   float64
	detectCount int
	lastOutcome models.Outcome
}

func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.publish()
	return a
}

// Record adds one completed run.
func (a *Aggregator) Record(outcome models.Outcome, timeToDetect *float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.iterations++
	switch outcome {
	case models.OutcomeDetected:
		a.detections++
		if timeToDetect != nil {
			a.detectSum += *timeToDetect
			a.detectCount++
		}
	case models.OutcomeBypassed:
	}
	a.lastOutcome = outcome
	a.publish()
}

// Snapshot returns the current statistics.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	s := Snapshot{
		Iterations:   a.iterations,
		Detections:   a.detections,
		SystemStatus: StatusSecure,
	}
	if a.iterations > 0 {
		s.DetectionRate = 100 * float64(a.detections) / float64(a.iterations)
	}
	s.BypassRate = 100 - s.DetectionRate
	if a.detectCount > 0 {
		avg := a.detectSum / float64(a.detectCount)
		s.AvgTimeToDetect = &avg
	}
	if a.lastOutcome == models.OutcomeBypassed {
		s.SystemStatus = StatusCompromised
	}
	return s
}

// Reset zeroes every counter.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.iterations, a.detections = 0, 0
	a.detectSum, a.detectCount = 0, 0
	a.lastOutcome = ""
	a.publish()
}

func (a *Aggregator) publish() {
	s := a.snapshotLocked()
	Iterations.Set(float64(s.Iterations))
	DetectionRate.Set(s.DetectionRate)
}

// OnMatch counts rule matches.
func (a *Aggregator) OnMatch(_ context.Context, m engine.Match) {
	RuleMatchesTotal.WithLabelValues(m.RuleID).Inc()
}

// OnRunCompleted records the run outcome.
func (a *Aggregator) OnRunCompleted(_ context.Context, log models.AttackLog) {
	a.Record(log.Outcome, log.TimeToDetect)
	RunsTotal.WithLabelValues(log.ScenarioID, string(log.Outcome)).Inc()
	if log.TimeToDetect != nil {
		TimeToDetect.Observe(*log.TimeToDetect)
	}
}
