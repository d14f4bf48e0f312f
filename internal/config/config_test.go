package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 2*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
	assert.Equal(t, 10000, cfg.MaxSockets)
	assert.Equal(t, 16, cfg.SendBufferSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("STALE_AFTER", "90s")
	t.Setenv("MAX_SOCKETS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 90*time.Second, cfg.StaleAfter)
	assert.Equal(t, 250, cfg.MaxSockets)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		value   string
		wantErr string
	}{
		{"zero sweep interval", "SWEEP_INTERVAL", "0s", "SWEEP_INTERVAL must be positive"},
		{"negative stale after", "STALE_AFTER", "-1m", "STALE_AFTER must be positive"},
		{"zero max sockets", "MAX_SOCKETS", "0", "MAX_SOCKETS must be positive"},
		{"zero send buffer", "SEND_BUFFER_SIZE", "0", "SEND_BUFFER_SIZE must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
