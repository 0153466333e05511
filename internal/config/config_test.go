package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"process_data.xlsx", "quality_data.xlsx"}, cfg.Ingest.PresetFiles)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingest.PresetDelay)
	assert.Equal(t, int64(52428800), cfg.Ingest.MaxUploadSize)
	assert.Equal(t, 12, cfg.Jobs.ProgressIncrement)
}

func TestLoadFrom_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
ingest:
  preset_files:
    - custom.xlsx
jobs:
  tick_interval: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"custom.xlsx"}, cfg.Ingest.PresetFiles)
	assert.Equal(t, 50*time.Millisecond, cfg.Jobs.TickInterval)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFrom_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("DATALENS_SERVER_PORT", "7070")
	t.Setenv("DATALENS_JOBS_PROGRESS_INCREMENT", "25")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Jobs.ProgressIncrement)
}

func TestLoadFrom_MissingFileIsIgnored(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFrom_InvalidPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o644))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestLoadFrom_InvalidProgressIncrement(t *testing.T) {
	t.Setenv("DATALENS_JOBS_PROGRESS_INCREMENT", "101")

	_, err := LoadFrom("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "progress_increment")
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}}
	assert.Equal(t, ":8080", cfg.ListenAddr())
}
