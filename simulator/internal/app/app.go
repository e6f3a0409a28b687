// Package app assembles a Session from configuration. Both the HTTP service
// and the breach CLI build their sessions here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/common/messaging"
	natsclient "github.com/telhawk-systems/breachsim/common/messaging/nats"
	"github.com/telhawk-systems/breachsim/simulator/internal/config"
	"github.com/telhawk-systems/breachsim/simulator/internal/geocode"
	"github.com/telhawk-systems/breachsim/simulator/internal/runlock"
	"github.com/telhawk-systems/breachsim/simulator/internal/runstats"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
	"github.com/telhawk-systems/breachsim/simulator/internal/session"
	"github.com/telhawk-systems/breachsim/simulator/internal/simulation"
)

// App holds a wired session and the connections it owns.
type App struct {
	Session *session.Session
	// RunStats is nil unless runstats.enabled is set.
	RunStats *runstats.Client

	redis   *redis.Client
	closers []func() error
}

// Close releases every connection opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) *logging.Logger {
	return logging.New(logging.ParseLevel(cfg.Level), cfg.Format)
}

// Build wires the scenario catalog, run lock, geocoder, publisher and
// randomness described by cfg into a new Session.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{}

	store, err := scenario.Load(cfg.Scenarios.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	guard, err := a.runLock(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	publisher, err := a.publisher(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	geocoder, err := newGeocoder(cfg.Geocoder, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var observers []simulation.Observer
	if cfg.RunStats.Enabled {
		collector, err := a.runStats(ctx, cfg, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		observers = append(observers, collector)
	}

	s, err := session.New(session.Options{
		Store:         store,
		Zones:         cfg.Zones,
		HandoffWindow: cfg.Engine.HandoffWindow,
		Guard:         guard,
		LockKey:       cfg.RunLock.Key,
		Geocoder:      geocoder,
		Faker:         gofakeit.New(cfg.Social.Seed),
		SampleMax:     cfg.Social.SampleMax,
		Publisher:     publisher,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		Logger:        logger,
		Observers:     observers,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Session = s

	logger.InfoContext(ctx, "session ready",
		"scenarios", store.Len(),
		"zones", len(cfg.Zones),
		"runlock", cfg.RunLock.Backend,
		"nats", cfg.NATS.Enabled,
		"runstats", cfg.RunStats.Enabled,
	)
	return a, nil
}

func (a *App) runLock(ctx context.Context, cfg *config.Config) (runlock.Guard, error) {
	if cfg.RunLock.Backend != "redis" {
		return runlock.NewLocal(), nil
	}
	client, err := a.redisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	return runlock.NewRedis(client, "", cfg.RunLock.TTL), nil
}

func (a *App) runStats(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*runstats.Collector, error) {
	client, err := a.redisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	instanceID := cfg.RunStats.InstanceID
	if instanceID == "" {
		if instanceID, err = os.Hostname(); err != nil {
			instanceID = "breachsim"
		}
	}
	a.RunStats = runstats.NewClient(client, instanceID)
	collector := runstats.NewCollector(a.RunStats, cfg.RunStats.FlushInterval, logger)
	a.closers = append(a.closers, func() error {
		collector.Stop()
		return nil
	})
	return collector, nil
}

// redisClient connects once and shares the connection between the run lock
// and run statistics.
func (a *App) redisClient(ctx context.Context, url string) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.redis = client
	return client, nil
}

func (a *App) publisher(cfg *config.Config, logger *logging.Logger) (messaging.Publisher, error) {
	if !cfg.NATS.Enabled {
		return messaging.NopPublisher{}, nil
	}

	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	client, err := natsclient.NewClient(natsCfg, logger.Logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// newGeocoder resolves locations against the static index first, then the
// remote endpoint when one is configured, behind an LRU cache.
func newGeocoder(cfg config.GeocoderConfig, logger *logging.Logger) (geocode.Geocoder, error) {
	index := geocode.DefaultIndex()
	if cfg.IndexFile != "" {
		loaded, err := geocode.LoadIndex(cfg.IndexFile)
		if err != nil {
			return nil, err
		}
		index = loaded
	}

	chain := geocode.Chain{index}
	if cfg.URL != "" {
		chain = append(chain, geocode.NewHTTP(cfg.URL, cfg.Timeout, cfg.Breaker, logger))
	}
	cached, err := geocode.NewCached(chain, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
