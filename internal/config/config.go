// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"prepaid-usage-lab/internal/domain"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

const (
	DefaultAddr              = ":8000"
	DefaultCollectInterval   = 60 * time.Minute
	DefaultPortalTimeout     = 30 * time.Second
	DefaultMaxGapMinutes     = 60
	DefaultToleranceMinutes  = 10
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultRecordFeedBacklog = 16

	MinSpreadGapMinutes = 1
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Collector CollectorConfig `yaml:"collector"`
	Portal    PortalConfig    `yaml:"portal"`
	Usage     UsageConfig     `yaml:"usage"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	FeedBacklog     int           `yaml:"feed_backlog"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // must name the database, e.g. clickhouse://host:9000/usage

	// Postgres pool tuning, zero keeps the pgx defaults.
	PostgresMaxConns    int32         `yaml:"postgres_max_conns"`
	PostgresMinConns    int32         `yaml:"postgres_min_conns"`
	PostgresMaxConnIdle time.Duration `yaml:"postgres_max_conn_idle"`
}

type CollectorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// PortalConfig describes how to reach the campus card portal.
// LightRoom and ACRoom are posted verbatim as form fields.
type PortalConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Timeout   time.Duration     `yaml:"timeout"`
	Token     string            `yaml:"token"`
	TokenURL  string            `yaml:"token_url"`
	Headers   map[string]string `yaml:"headers"`
	LightRoom map[string]string `yaml:"light_room"`
	ACRoom    map[string]string `yaml:"ac_room"`
}

type UsageConfig struct {
	Spreading SpreadingConfig `yaml:"spreading"`
}

type SpreadingConfig struct {
	MaxGapMinutes    float64 `yaml:"max_gap_minutes"`
	ToleranceMinutes float64 `yaml:"tolerance_minutes"`
}

// NewConfig returns a config populated with defaults. Values present in a
// loaded file override them.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
			FeedBacklog:     DefaultRecordFeedBacklog,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Collector: CollectorConfig{
			Interval: DefaultCollectInterval,
		},
		Portal: PortalConfig{
			Timeout: DefaultPortalTimeout,
		},
		Usage: UsageConfig{
			Spreading: SpreadingConfig{
				MaxGapMinutes:    DefaultMaxGapMinutes,
				ToleranceMinutes: DefaultToleranceMinutes,
			},
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	for _, origin := range c.Server.AllowedOrigins {
		// credentials are allowed, so browsers reject a wildcard origin
		if strings.TrimSpace(origin) == "*" {
			return fmt.Errorf("server.allowed_origins: wildcard origin is not allowed with credentials")
		}
	}
	if c.Server.FeedBacklog <= 0 {
		return fmt.Errorf("server.feed_backlog must be positive, got %d", c.Server.FeedBacklog)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for backend %q", c.Storage.Backend)
		}
		if c.Storage.PostgresMaxConns < 0 || c.Storage.PostgresMinConns < 0 {
			return fmt.Errorf("storage: postgres pool sizes must not be negative")
		}
		if c.Storage.PostgresMaxConns > 0 && c.Storage.PostgresMinConns > c.Storage.PostgresMaxConns {
			return fmt.Errorf("storage.postgres_min_conns %d exceeds postgres_max_conns %d",
				c.Storage.PostgresMinConns, c.Storage.PostgresMaxConns)
		}
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for backend %q", c.Storage.Backend)
		}
		u, err := url.Parse(c.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("storage.clickhouse_dsn: %w", err)
		}
		if strings.Trim(u.Path, "/") == "" {
			return fmt.Errorf("storage.clickhouse_dsn must name a database, e.g. clickhouse://localhost:9000/usage")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}

	if c.Collector.Enabled {
		if c.Collector.Interval <= 0 {
			return fmt.Errorf("collector.interval must be positive, got %v", c.Collector.Interval)
		}
		if len(c.Portal.LightRoom) == 0 || len(c.Portal.ACRoom) == 0 {
			return fmt.Errorf("portal.light_room and portal.ac_room are required when the collector is enabled")
		}
	}

	if c.Usage.Spreading.MaxGapMinutes < 0 || c.Usage.Spreading.ToleranceMinutes < 0 {
		return fmt.Errorf("usage.spreading: thresholds must not be negative")
	}
	// each spread step becomes one synthetic point; 0 turns spreading off
	if gap := c.Usage.Spreading.MaxGapMinutes; gap > 0 && gap < MinSpreadGapMinutes {
		return fmt.Errorf("usage.spreading.max_gap_minutes must be 0 or at least %d, got %v", MinSpreadGapMinutes, gap)
	}

	return nil
}

// SpreadConfig converts the configured spreading thresholds to seconds.
func (c *Config) SpreadConfig() domain.SpreadConfig {
	return domain.SpreadConfig{
		MaxGapSeconds:    c.Usage.Spreading.MaxGapMinutes * 60,
		ToleranceSeconds: c.Usage.Spreading.ToleranceMinutes * 60,
	}
}
