package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/geocode"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Zones     []geo.Zone      `mapstructure:"zones"`
	Scenarios ScenariosConfig `mapstructure:"scenarios"`
	RunLock   RunLockConfig   `mapstructure:"runlock"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RunStats  RunStatsConfig  `mapstructure:"runstats"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Social    SocialConfig    `mapstructure:"social"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EngineConfig struct {
	HandoffWindow time.Duration `mapstructure:"handoff_window"`
}

type ScenariosConfig struct {
	File string `mapstructure:"file"`
}

type RunLockConfig struct {
	Backend string        `mapstructure:"backend"` // local or redis
	Key     string        `mapstructure:"key"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// RunStatsConfig enables fleet-wide run statistics in Redis.
type RunStatsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	InstanceID    string        `mapstructure:"instance_id"` // defaults to the hostname
}

type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type SocialConfig struct {
	Seed      int64 `mapstructure:"seed"` // 0 picks a random seed
	SampleMax int   `mapstructure:"sample_max"`
}

type GeocoderConfig struct {
	IndexFile string                `mapstructure:"index_file"`
	URL       string                `mapstructure:"url"`
	CacheSize int                   `mapstructure:"cache_size"`
	Timeout   time.Duration         `mapstructure:"timeout"`
	Breaker   geocode.BreakerConfig `mapstructure:"breaker"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("engine.handoff_window", "60s")
	v.SetDefault("runlock.backend", "local")
	v.SetDefault("runlock.key", "default")
	v.SetDefault("runlock.ttl", "30s")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("runstats.enabled", false)
	v.SetDefault("runstats.flush_interval", "10s")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "breachsim")
	v.SetDefault("social.seed", 0)
	v.SetDefault("social.sample_max", 3)
	v.SetDefault("geocoder.cache_size", 256)
	v.SetDefault("geocoder.timeout", "2s")
	v.SetDefault("geocoder.breaker.max_requests", 1)
	v.SetDefault("geocoder.breaker.interval", "60s")
	v.SetDefault("geocoder.breaker.timeout", "30s")
	v.SetDefault("geocoder.breaker.failure_threshold", 5)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/breachsim")
	}

	// Environment variables override (BREACHSIM_SERVER_PORT, etc.)
	v.SetEnvPrefix("BREACHSIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Zones) == 0 {
		cfg.Zones = geo.DefaultZones()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints viper cannot express.
func (c *Config) Validate() error {
	if err := geo.ZoneSet(c.Zones).Validate(); err != nil {
		return fmt.Errorf("invalid zones: %w", err)
	}
	switch c.RunLock.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown runlock backend %q", c.RunLock.Backend)
	}
	if c.Engine.HandoffWindow <= 0 {
		return fmt.Errorf("engine.handoff_window must be positive")
	}
	return nil
}
