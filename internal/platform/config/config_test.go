package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  url: "postgres://localhost/filterplane?sslmode=disable"
  max_open_conns: 10

redis:
  addr: "localhost:6379"
  lock_ttl_seconds: 15

dynamic:
  enabled: true
  time_window_minutes: 45
  threshold_count: 20
  time_span_threshold_minutes: 2.5
  expiration_hours: 24
  last_hit_threshold_hours: 48

tasks:
  queue_capacity: 500
  batch_size: 25
  overflow_policy: "drop"

log:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/filterplane?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns) // default applied

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 15, cfg.Redis.LockTTL)

	assert.True(t, cfg.Dynamic.Enabled)
	assert.Equal(t, 45, cfg.Dynamic.TimeWindowMinutes)
	assert.Equal(t, 20, cfg.Dynamic.ThresholdCount)
	assert.Equal(t, 2.5, cfg.Dynamic.TimeSpanThresholdMinutes)
	assert.Equal(t, 24, cfg.Dynamic.ExpirationHours)
	assert.Equal(t, 48, cfg.Dynamic.LastHitThresholdHours)

	assert.Equal(t, 500, cfg.Tasks.QueueCapacity)
	assert.Equal(t, 25, cfg.Tasks.BatchSize)
	assert.Equal(t, "drop", cfg.Tasks.OverflowPolicy)
	assert.Equal(t, 200, cfg.Tasks.DrainInterval) // default applied

	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  url: \"x\"\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Dynamic.TimeWindowMinutes)
	assert.Equal(t, 30, cfg.Dynamic.ThresholdCount)
	assert.Equal(t, 3.0, cfg.Dynamic.TimeSpanThresholdMinutes)
	assert.Equal(t, 48, cfg.Dynamic.ExpirationHours)
	assert.Equal(t, 72, cfg.Dynamic.LastHitThresholdHours)
	assert.Equal(t, "block", cfg.Tasks.OverflowPolicy)
	assert.Equal(t, 60, cfg.Scheduler.StateTickSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestResolveConfigPathEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  url: \"x\"\n"), 0644))

	t.Setenv("DB_PATH", configPath)
	resolved, err := resolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, configPath, resolved)
}

func TestResolveConfigPathNoneFound(t *testing.T) {
	t.Setenv("DB_PATH", "")
	t.Setenv("DATABASE_PATH", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(t.TempDir()))

	_, err = resolveConfigPath()
	assert.Error(t, err)
}
