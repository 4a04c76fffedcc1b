package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "./jobs.db", cfg.DBPath)
	assert.Equal(t, "./.worker_pool.pid", cfg.PIDFile)
	assert.Empty(t, cfg.ProfilesPath)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.CheckInterval)
	assert.Equal(t, time.Hour, cfg.JobTimeout)
	assert.Equal(t, 30*time.Second, cfg.StopTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VIDEOQ_DATA_DIR", "/var/lib/videoq")
	t.Setenv("VIDEOQ_WORKERS", "4")
	t.Setenv("VIDEOQ_CHECK_INTERVAL", "500ms")
	t.Setenv("VIDEOQ_JOB_TIMEOUT", "2h")
	t.Setenv("VIDEOQ_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/videoq", cfg.DataDir)
	assert.Equal(t, "/var/lib/videoq/jobs.db", cfg.DBPath)
	assert.Equal(t, "/var/lib/videoq/.worker_pool.pid", cfg.PIDFile)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.CheckInterval)
	assert.Equal(t, 2*time.Hour, cfg.JobTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ExplicitPathsWin(t *testing.T) {
	t.Setenv("VIDEOQ_DATA_DIR", "/var/lib/videoq")
	t.Setenv("VIDEOQ_DB_PATH", "/elsewhere/jobs.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/jobs.db", cfg.DBPath)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad worker count", func(t *testing.T) {
		t.Setenv("VIDEOQ_WORKERS", "lots")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero workers", func(t *testing.T) {
		t.Setenv("VIDEOQ_WORKERS", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad interval", func(t *testing.T) {
		t.Setenv("VIDEOQ_CHECK_INTERVAL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}
