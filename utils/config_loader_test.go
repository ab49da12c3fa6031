package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, uint64(1000), cfg.Pipeline.PersistPeriodTicks)
	assert.Equal(t, uint64(1000), cfg.Pipeline.WatchdogPeriodTicks)
	assert.Equal(t, uint64(1), cfg.Pipeline.WatchdogWindowTicks)
	assert.Equal(t, RateWaitSpin, cfg.Pipeline.RateWait)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  rate_wait: sleep
  queue_capacity: 16
storage:
  backend: sqlite
  path: records.db
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, RateWaitSleep, cfg.Pipeline.RateWait)
	assert.Equal(t, 16, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, 100, cfg.Pipeline.SamplesPerAverage)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "records.db", cfg.Storage.Path)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  rate_wait: yield
sensor:
  source: serial
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_wait")
	assert.Contains(t, err.Error(), "serial_port")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDumpConfigRoundTrip(t *testing.T) {
	out, err := DumpConfig(DefaultConfig())
	require.NoError(t, err)
	cfg, err := LoadConfig(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
