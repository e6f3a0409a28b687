// Package runstats keeps fleet-wide scenario run statistics in Redis.
//
// Several simulator instances may write concurrently; any of them can read
// the combined totals.
//
// Redis Key Structure:
//
//	breachsim:runstats:{scenario_id}                 - Hash with run totals
//	breachsim:runstats:daily:{scenario_id}:{YYYYMMDD} - Runs on that day (expires 7d)
//	breachsim:runstats:instances:{scenario_id}       - Hash of instance -> last run timestamp
package runstats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

const (
	keyPrefix   = "breachsim:runstats:"
	dailyTTL    = 7 * 24 * time.Hour
	instanceTTL = 24 * time.Hour
)

// Stats is the fleet-wide record for one scenario.
type Stats struct {
	ScenarioID       string            `json:"scenario_id"`
	TotalRuns        int64             `json:"total_runs"`
	Detected         int64             `json:"detected"`
	Bypassed         int64             `json:"bypassed"`
	RunsToday        int64             `json:"runs_today"`
	LastRunAt        *time.Time        `json:"last_run_at,omitempty"`
	LastOutcome      models.Outcome    `json:"last_outcome,omitempty"`
	Instances        map[string]string `json:"instances,omitempty"` // instance_id -> last run
	StatsRetrievedAt time.Time         `json:"stats_retrieved_at"`
}

// Client reads and writes run statistics.
type Client struct {
	redis      *redis.Client
	instanceID string
	now        func() time.Time
}

// NewClient wraps an existing Redis connection. instanceID should be unique
// per simulator instance (hostname, pod name).
func NewClient(client *redis.Client, instanceID string) *Client {
	return &Client{redis: client, instanceID: instanceID, now: time.Now}
}

func statsKey(scenarioID string) string {
	return keyPrefix + scenarioID
}

func dailyKey(scenarioID string, t time.Time) string {
	return fmt.Sprintf("%sdaily:%s:%s", keyPrefix, scenarioID, t.Format("20060102"))
}

func instancesKey(scenarioID string) string {
	return keyPrefix + "instances:" + scenarioID
}

// Batch holds run outcomes accumulated for one scenario between flushes.
type Batch struct {
	ScenarioID  string
	Detected    int64
	Bypassed    int64
	LastOutcome models.Outcome
	LastRunAt   time.Time
}

// Add accumulates one completed run.
func (b *Batch) Add(outcome models.Outcome, at time.Time) {
	switch outcome {
	case models.OutcomeDetected:
		b.Detected++
	case models.OutcomeBypassed:
		b.Bypassed++
	}
	if !at.Before(b.LastRunAt) {
		b.LastRunAt = at
		b.LastOutcome = outcome
	}
}

// Merge folds another batch for the same scenario into b.
func (b *Batch) Merge(o *Batch) {
	b.Detected += o.Detected
	b.Bypassed += o.Bypassed
	if !o.LastRunAt.Before(b.LastRunAt) {
		b.LastRunAt = o.LastRunAt
		b.LastOutcome = o.LastOutcome
	}
}

// Runs is the number of runs in the batch.
func (b *Batch) Runs() int64 {
	return b.Detected + b.Bypassed
}

// FlushBatch writes an accumulated batch in one pipeline.
func (c *Client) FlushBatch(ctx context.Context, b *Batch) error {
	if b.Runs() == 0 {
		return nil
	}
	lastRun := strconv.FormatInt(b.LastRunAt.Unix(), 10)

	pipe := c.redis.Pipeline()

	key := statsKey(b.ScenarioID)
	pipe.HIncrBy(ctx, key, "total_runs", b.Runs())
	pipe.HIncrBy(ctx, key, "detected", b.Detected)
	pipe.HIncrBy(ctx, key, "bypassed", b.Bypassed)
	pipe.HSet(ctx, key, map[string]any{
		"last_run_at":  lastRun,
		"last_outcome": string(b.LastOutcome),
	})

	day := dailyKey(b.ScenarioID, c.now())
	pipe.IncrBy(ctx, day, b.Runs())
	pipe.Expire(ctx, day, dailyTTL)

	inst := instancesKey(b.ScenarioID)
	pipe.HSet(ctx, inst, c.instanceID, lastRun)
	pipe.Expire(ctx, inst, instanceTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to flush run stats: %w", err)
	}
	return nil
}

// GetStats retrieves the fleet-wide record for a scenario. Unknown scenarios
// come back with zero counts.
func (c *Client) GetStats(ctx context.Context, scenarioID string) (*Stats, error) {
	now := c.now()

	pipe := c.redis.Pipeline()
	totalsCmd := pipe.HGetAll(ctx, statsKey(scenarioID))
	todayCmd := pipe.Get(ctx, dailyKey(scenarioID, now))
	instancesCmd := pipe.HGetAll(ctx, instancesKey(scenarioID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}

	stats := &Stats{
		ScenarioID:       scenarioID,
		Instances:        make(map[string]string),
		StatsRetrievedAt: now,
	}

	if totals, err := totalsCmd.Result(); err == nil {
		stats.TotalRuns, _ = strconv.ParseInt(totals["total_runs"], 10, 64)
		stats.Detected, _ = strconv.ParseInt(totals["detected"], 10, 64)
		stats.Bypassed, _ = strconv.ParseInt(totals["bypassed"], 10, 64)
		if unix, err := strconv.ParseInt(totals["last_run_at"], 10, 64); err == nil {
			t := time.Unix(unix, 0).UTC()
			stats.LastRunAt = &t
		}
		stats.LastOutcome = models.Outcome(totals["last_outcome"])
	}

	if val, err := todayCmd.Int64(); err == nil {
		stats.RunsToday = val
	}

	if instances, err := instancesCmd.Result(); err == nil {
		for instance, lastSeen := range instances {
			if unix, err := strconv.ParseInt(lastSeen, 10, 64); err == nil {
				stats.Instances[instance] = time.Unix(unix, 0).UTC().Format(time.RFC3339)
			}
		}
	}

	return stats, nil
}
