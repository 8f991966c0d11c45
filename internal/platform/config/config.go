// Package config loads process configuration from a YAML file plus
// environment variable overrides, following the same
// Load/LoadFromEnv split used across the rest of this codebase.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the filtering and campaign-analytics
// service.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Dynamic   DynamicConfig   `yaml:"dynamic"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig holds relational store connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetimeDuration returns the configured connection lifetime as a duration.
func (c DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// RedisConfig holds distributed-lock backend settings. Addr empty means
// the distlock factory falls back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	LockTTL  int    `yaml:"lock_ttl_seconds"`
}

// LockTTLDuration returns the configured lock hold time as a duration.
func (c RedisConfig) LockTTLDuration() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

// DynamicConfig mirrors domain.DynamicConfig for YAML decoding; the
// loader converts it once at startup and thereafter the live value lives
// in app.DynamicConfigStore so admin changes take effect without a restart.
type DynamicConfig struct {
	Enabled                  bool    `yaml:"enabled"`
	TimeWindowMinutes        int     `yaml:"time_window_minutes"`
	ThresholdCount           int     `yaml:"threshold_count"`
	TimeSpanThresholdMinutes float64 `yaml:"time_span_threshold_minutes"`
	ExpirationHours          int     `yaml:"expiration_hours"`
	LastHitThresholdHours    int     `yaml:"last_hit_threshold_hours"`
}

// TasksConfig tunes the async task processor (C10).
type TasksConfig struct {
	QueueCapacity  int    `yaml:"queue_capacity"`
	BatchSize      int    `yaml:"batch_size"`
	DrainInterval  int    `yaml:"drain_interval_ms"`
	OverflowPolicy string `yaml:"overflow_policy"` // "block" or "drop"
	ShutdownWaitMs int    `yaml:"shutdown_wait_ms"`
}

// DrainIntervalDuration returns the configured drain tick as a duration.
func (c TasksConfig) DrainIntervalDuration() time.Duration {
	return time.Duration(c.DrainInterval) * time.Millisecond
}

// SchedulerConfig tunes the signal-state and ratio-monitor tick cadence
// (C9, C12).
type SchedulerConfig struct {
	StateTickSeconds    int `yaml:"state_tick_seconds"`
	CounterTickSeconds  int `yaml:"counter_tick_seconds"`
	CleanupTickMinutes  int `yaml:"cleanup_tick_minutes"`
	ReconcileTickHours  int `yaml:"reconcile_tick_hours"`
	BatchTimeoutSeconds int `yaml:"batch_timeout_seconds"`
}

func (c SchedulerConfig) StateTick() time.Duration {
	return time.Duration(c.StateTickSeconds) * time.Second
}

func (c SchedulerConfig) CounterTick() time.Duration {
	return time.Duration(c.CounterTickSeconds) * time.Second
}

func (c SchedulerConfig) CleanupTick() time.Duration {
	return time.Duration(c.CleanupTickMinutes) * time.Minute
}

func (c SchedulerConfig) ReconcileTick() time.Duration {
	return time.Duration(c.ReconcileTickHours) * time.Hour
}

func (c SchedulerConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSeconds) * time.Second
}

// RetentionConfig holds default lookback windows for cleanup jobs (C11).
type RetentionConfig struct {
	PendingDataDays int `yaml:"pending_data_days"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// dbPathSearchList is tried, in order, when neither DB_PATH nor
// DATABASE_PATH is set in the environment.
var dbPathSearchList = []string{
	"./config.yaml",
	"./config/config.yaml",
	"/etc/filterplane/config.yaml",
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 30
	}
	if cfg.Dynamic.TimeWindowMinutes == 0 {
		cfg.Dynamic.TimeWindowMinutes = 30
	}
	if cfg.Dynamic.ThresholdCount == 0 {
		cfg.Dynamic.ThresholdCount = 30
	}
	if cfg.Dynamic.TimeSpanThresholdMinutes == 0 {
		cfg.Dynamic.TimeSpanThresholdMinutes = 3.0
	}
	if cfg.Dynamic.ExpirationHours == 0 {
		cfg.Dynamic.ExpirationHours = 48
	}
	if cfg.Dynamic.LastHitThresholdHours == 0 {
		cfg.Dynamic.LastHitThresholdHours = 72
	}
	if cfg.Tasks.QueueCapacity == 0 {
		cfg.Tasks.QueueCapacity = 1000
	}
	if cfg.Tasks.BatchSize == 0 {
		cfg.Tasks.BatchSize = 50
	}
	if cfg.Tasks.DrainInterval == 0 {
		cfg.Tasks.DrainInterval = 200
	}
	if cfg.Tasks.OverflowPolicy == "" {
		cfg.Tasks.OverflowPolicy = "block"
	}
	if cfg.Tasks.ShutdownWaitMs == 0 {
		cfg.Tasks.ShutdownWaitMs = 5000
	}
	if cfg.Scheduler.StateTickSeconds == 0 {
		cfg.Scheduler.StateTickSeconds = 60
	}
	if cfg.Scheduler.CounterTickSeconds == 0 {
		cfg.Scheduler.CounterTickSeconds = 60
	}
	if cfg.Scheduler.CleanupTickMinutes == 0 {
		cfg.Scheduler.CleanupTickMinutes = 60
	}
	if cfg.Scheduler.ReconcileTickHours == 0 {
		cfg.Scheduler.ReconcileTickHours = 24
	}
	if cfg.Scheduler.BatchTimeoutSeconds == 0 {
		cfg.Scheduler.BatchTimeoutSeconds = 30
	}
	if cfg.Retention.PendingDataDays == 0 {
		cfg.Retention.PendingDataDays = 90
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv resolves the config file path per the DB_PATH/DATABASE_PATH
// contract, loads a .env file if present, parses YAML, then applies
// environment variable overrides on top.
//
// Path resolution: DB_PATH, then DATABASE_PATH, then each entry in
// dbPathSearchList in order. If none of those paths exist, the caller
// must treat the returned error as fatal and exit non-zero.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TASK_OVERFLOW_POLICY"); v != "" {
		cfg.Tasks.OverflowPolicy = v
	}

	return cfg, nil
}

func resolveConfigPath() (string, error) {
	if v := os.Getenv("DB_PATH"); v != "" {
		return v, nil
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		return v, nil
	}
	for _, candidate := range dbPathSearchList {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("config: no config file found; set DB_PATH or DATABASE_PATH, or place one of %v", dbPathSearchList)
}
