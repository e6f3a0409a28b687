package runstats

import (
	"context"
	"sync"
	"time"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// Collector accumulates run outcomes per scenario and flushes them to Redis
// periodically. It plugs into a simulator as a run observer.
type Collector struct {
	client        *Client
	flushInterval time.Duration
	logger        *logging.Logger

	mu      sync.Mutex
	batches map[string]*Batch // scenarioID -> batch

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCollector starts a collector that flushes every flushInterval.
func NewCollector(client *Client, flushInterval time.Duration, logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.Discard()
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{
		client:        client,
		flushInterval: flushInterval,
		logger:        logger,
		batches:       make(map[string]*Batch),
		ctx:           ctx,
		cancel:        cancel,
	}

	c.wg.Add(1)
	go c.flushLoop()

	return c
}

// Record accumulates one run for the next flush.
func (c *Collector) Record(scenarioID string, outcome models.Outcome, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.batches[scenarioID]
	if !ok {
		b = &Batch{ScenarioID: scenarioID}
		c.batches[scenarioID] = b
	}
	b.Add(outcome, at)
}

func (c *Collector) OnMatch(context.Context, engine.Match) {}

func (c *Collector) OnRunCompleted(_ context.Context, log models.AttackLog) {
	c.Record(log.ScenarioID, log.Outcome, log.CreatedAt)
}

func (c *Collector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			// Final flush on shutdown
			c.flush()
			return
		case <-ticker.C:
			c.flush()
		}
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	batches := c.batches
	c.batches = make(map[string]*Batch)
	c.mu.Unlock()

	if len(batches) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var flushed, runs int64
	for _, b := range batches {
		if err := c.client.FlushBatch(ctx, b); err != nil {
			c.logger.ErrorContext(ctx, "failed to flush run stats",
				logging.ScenarioID(b.ScenarioID),
				"runs", b.Runs(),
				logging.Error(err),
			)
			// merge back for the next attempt
			c.mu.Lock()
			if existing, ok := c.batches[b.ScenarioID]; ok {
				existing.Merge(b)
			} else {
				c.batches[b.ScenarioID] = b
			}
			c.mu.Unlock()
			continue
		}
		flushed++
		runs += b.Runs()
	}

	if flushed > 0 {
		c.logger.DebugContext(ctx, "flushed run stats", "scenarios", flushed, "runs", runs)
	}
}

// FlushNow forces an immediate flush.
func (c *Collector) FlushNow() {
	c.flush()
}

// Stop halts the flush loop after a final flush.
func (c *Collector) Stop() {
	c.cancel()
	c.wg.Wait()
}

// Pending returns the unflushed run count per scenario.
func (c *Collector) Pending() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.batches))
	for id, b := range c.batches {
		out[id] = b.Runs()
	}
	return out
}
