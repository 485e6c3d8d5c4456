package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 256, cfg.Dispatcher.QueueSize)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MUNIFLOW_SERVER_PORT", "9090")
	t.Setenv("MUNIFLOW_RETRY_MAX_RETRIES", "5")
	t.Setenv("MUNIFLOW_LOGGING_LEVEL", "debug")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7070\nretry:\n  max_retries: 1\n  initial_delay: 250ms\n  max_delay: 10s\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0644))

	t.Setenv("MUNIFLOW_SERVER_PORT", "9999")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestValidateRejectsBadLevel(t *testing.T) {
	t.Setenv("MUNIFLOW_LOGGING_LEVEL", "loud")

	_, err := LoadFromFile("")
	assert.Error(t, err)
}

func TestValidateRejectsInvertedRetryDelays(t *testing.T) {
	t.Setenv("MUNIFLOW_RETRY_INITIAL_DELAY", "1m")
	t.Setenv("MUNIFLOW_RETRY_MAX_DELAY", "1s")

	_, err := LoadFromFile("")
	assert.Error(t, err)
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadFromFile("/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
