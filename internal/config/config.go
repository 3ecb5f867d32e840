// Package config loads the single YAML configuration file covering every
// operator-tunable in spec.md §6 (ports, DSNs, retention horizons, job
// cadences). Grounded in the teacher's internal/application's
// Load*Config family: os.ReadFile + yaml.Unmarshal, secrets overridden
// from the environment after parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of config.yaml.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	WriteDB    DatabaseConfig   `yaml:"write_db"`
	ReadDB     DatabaseConfig   `yaml:"read_db"`
	Retention  RetentionConfig  `yaml:"retention"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// HTTPConfig configures the query-surface server (spec.md §6).
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	CORSOrigins    []string `yaml:"cors_origins"`
	ReadTimeoutSec int      `yaml:"read_timeout_sec"`
}

func (h HTTPConfig) ReadTimeout() time.Duration {
	if h.ReadTimeoutSec == 0 {
		return 10 * time.Second
	}
	return time.Duration(h.ReadTimeoutSec) * time.Second
}

// DatabaseConfig configures one Postgres connection. DSN is read from the
// environment, never from the YAML file, so credentials never live in a
// checked-in config file (design note mirrors the teacher's secrets
// handling for exchange API keys).
type DatabaseConfig struct {
	DSNEnv         string `yaml:"dsn_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (d DatabaseConfig) DSN() string {
	return os.Getenv(d.DSNEnv)
}

func (d DatabaseConfig) Timeout() time.Duration {
	if d.TimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// RetentionConfig configures the aggregate engine's retention sweep
// (spec.md §4.5).
type RetentionConfig struct {
	MinuteTierDays int `yaml:"minute_tier_days"`
	HourTierDays   int `yaml:"hour_tier_days"`
}

func (r RetentionConfig) MinuteHorizon() time.Duration {
	days := r.MinuteTierDays
	if days == 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

func (r RetentionConfig) HourHorizon() time.Duration {
	days := r.HourTierDays
	if days == 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// JobsConfig configures every scheduled job's cadence (spec.md §4.5-§4.7).
type JobsConfig struct {
	RawToMinuteIntervalSec   int `yaml:"raw_to_minute_interval_sec"`
	MinuteToHourIntervalSec  int `yaml:"minute_to_hour_interval_sec"`
	RetentionIntervalSec     int `yaml:"retention_interval_sec"`
	LatestProjectionIntervalSec int `yaml:"latest_projection_interval_sec"`
	BackfillIntervalSec      int `yaml:"backfill_interval_sec"`
	FundingMAIntervalSec     int `yaml:"funding_ma_interval_sec"`
	ArbitrageIntervalSec     int `yaml:"arbitrage_interval_sec"`
}

func durOr(seconds, fallback int) time.Duration {
	if seconds == 0 {
		return time.Duration(fallback) * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func (j JobsConfig) RawToMinuteInterval() time.Duration  { return durOr(j.RawToMinuteIntervalSec, 300) }
func (j JobsConfig) MinuteToHourInterval() time.Duration { return durOr(j.MinuteToHourIntervalSec, 3600) }
func (j JobsConfig) RetentionInterval() time.Duration    { return durOr(j.RetentionIntervalSec, 86400) }
func (j JobsConfig) LatestProjectionInterval() time.Duration {
	return durOr(j.LatestProjectionIntervalSec, 300)
}
func (j JobsConfig) BackfillInterval() time.Duration { return durOr(j.BackfillIntervalSec, 86400) }
func (j JobsConfig) FundingMAInterval() time.Duration { return durOr(j.FundingMAIntervalSec, 3600) }
func (j JobsConfig) ArbitrageInterval() time.Duration { return durOr(j.ArbitrageIntervalSec, 3600) }

// LoggingConfig configures zerolog output (SPEC_FULL.md AMBIENT STACK).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Load reads and parses the YAML config file at path, applying defaults
// for any zero-valued fields used as tunables elsewhere in this package.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.WriteDB.DSNEnv == "" {
		c.WriteDB.DSNEnv = "PERPWATCH_WRITE_DSN"
	}
	if c.ReadDB.DSNEnv == "" {
		c.ReadDB.DSNEnv = "PERPWATCH_READ_DSN"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	return &c, nil
}
