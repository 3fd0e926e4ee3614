package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "./data/telemetry.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5000.0, cfg.Telemetry.SlowScanThresholdMs)
	assert.Equal(t, 100.0, cfg.Telemetry.MetricThresholds["memory_usage"])
	assert.Equal(t, 3000.0, cfg.Telemetry.MetricThresholds["camera_init"])
	assert.True(t, cfg.Retention.Enabled)
	assert.Equal(t, 5*time.Second, cfg.PersistTimeoutDuration())
	assert.Equal(t, 720*time.Hour, cfg.RetentionMaxAge())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Port = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateRejectsBadDurations(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Telemetry.PersistTimeout = "soon"
	cfg.Retention.MaxAge = "a while"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist_timeout")
	assert.Contains(t, err.Error(), "max_age")
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 5*time.Second, cfg.PersistTimeoutDuration())
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionMaxAge())
}
