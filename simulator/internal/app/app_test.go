package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/breachsim/simulator/internal/config"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/runstats"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuild_Defaults(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Social.Seed = 9

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Session.Run(context.Background(), scenario.RelayAttackWagahID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeBypassed, res.Log.Outcome)
}

func TestBuild_RedisRunLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t)
	cfg.RunLock.Backend = "redis"
	cfg.RunLock.Key = "wagah"
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Session.Run(context.Background(), scenario.RelayAttackWagahID)
	require.NoError(t, err)
	assert.False(t, mr.Exists("breachsim:runlock:wagah"), "lock must be released after the run")
}

func TestBuild_RunStats(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := loadConfig(t)
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"
	cfg.RunStats.Enabled = true
	cfg.RunStats.InstanceID = "sim-test"

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, a.RunStats)

	_, err = a.Session.Run(ctx, scenario.RelayAttackWagahID)
	require.NoError(t, err)
	// Close stops the collector, which flushes pending runs
	require.NoError(t, a.Close())

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	stats, err := runstats.NewClient(rdb, "reader").GetStats(ctx, scenario.RelayAttackWagahID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRuns)
	assert.Equal(t, models.OutcomeBypassed, stats.LastOutcome)
	assert.Contains(t, stats.Instances, "sim-test")
}

func TestBuild_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadConfig(t)
	cfg.RunLock.Backend = "redis"
	cfg.Redis.URL = "redis://" + addr + "/0"

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestBuild_InvalidRedisURL(t *testing.T) {
	cfg := loadConfig(t)
	cfg.RunLock.Backend = "redis"
	cfg.Redis.URL = "mysql://nope"

	_, err := Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestBuild_ScenarioAndIndexFiles(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.yaml")
	require.NoError(t, os.WriteFile(indexPath, []byte("gate three: [10.5, 20.5]\n"), 0o644))

	catalog := `scenarios:
  - id: gate_probe
    name: Gate Probe
    zone: Wagah Border
    signature: gate_probe_v1
    event_sequence:
      - entity_id: scout
        action: enter
        timestamp_offset_seconds: 0
        coords: [31.604, 74.572]
`
	catalogPath := filepath.Join(dir, "scenarios.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalog), 0o644))

	cfg := loadConfig(t)
	cfg.Scenarios.File = catalogPath
	cfg.Geocoder.IndexFile = indexPath

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Session.Scenarios(), 2)

	flag, err := a.Session.AddFlag(context.Background(), models.SocialFlag{Location: "Gate Three north"})
	require.NoError(t, err)
	require.NotNil(t, flag.Coords)
	assert.Equal(t, models.Coord{10.5, 20.5}, *flag.Coords)
}

func TestBuild_MissingScenarioFile(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Scenarios.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "failed to load scenarios")
}
