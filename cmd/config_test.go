package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-logger/utils"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "run"}
	runCmdFlags(cmd)
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(newRunCmd())
	require.NoError(t, err)
	assert.Equal(t, utils.DefaultConfig(), cfg)
}

func TestResolveConfigLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: sqlite
  path: from-file.db
pipeline:
  persist_period_ticks: 250
`), 0o644))

	t.Setenv("TELEMETRY_STORAGE_PATH", "from-env.db")
	t.Setenv("TELEMETRY_PIPELINE_QUEUE_CAPACITY", "16")

	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("rate-wait", "sleep"))
	require.NoError(t, cmd.Flags().Set("status", "true"))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, uint64(250), cfg.Pipeline.PersistPeriodTicks)
	assert.Equal(t, "from-env.db", cfg.Storage.Path)
	assert.Equal(t, 16, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, utils.RateWaitSleep, cfg.Pipeline.RateWait)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, 100, cfg.Pipeline.SamplesPerAverage, "untouched keys keep defaults")
}

func TestResolveConfigRejectsInvalidOverride(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("rate-wait", "nap"))
	_, err := resolveConfig(cmd)
	assert.ErrorContains(t, err, "rate_wait")
}

func TestInitConfigPrint(t *testing.T) {
	cmd := &cobra.Command{Use: "init"}
	initCmdFlags(cmd)
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Flags().Set("print", "true"))

	require.NoError(t, initConfig(cmd, nil))
	assert.Contains(t, out.String(), "persist_period_ticks: 1000")
	assert.Contains(t, out.String(), "path: file3.txt")
}

func TestWriteConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipeline.yaml")

	require.NoError(t, writeConfig(path, []byte("a: 1\n"), false))
	assert.Error(t, writeConfig(path, []byte("a: 2\n"), false))
	require.NoError(t, writeConfig(path, []byte("a: 3\n"), true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: 3\n", string(data))
}
