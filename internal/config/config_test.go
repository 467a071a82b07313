package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every FIELDCLOCK_ env var that Load() reads.
var allConfigKeys = []string{
	"FIELDCLOCK_API_BASE_URL",
	"FIELDCLOCK_TENANT",
	"FIELDCLOCK_DEVICE_ID",
	"FIELDCLOCK_LISTEN_ADDR",
	"FIELDCLOCK_DB_PATH",
	"FIELDCLOCK_SECRET_KEY",
	"FIELDCLOCK_HTTP_TIMEOUT",
	"FIELDCLOCK_SYNC_INTERVAL",
	"FIELDCLOCK_PROBE_INTERVAL",
	"FIELDCLOCK_MAX_QUEUE_SIZE",
	"FIELDCLOCK_MAX_OFFLINE_PER_SHIFT",
}

// isolateConfigEnv saves and unsets all FIELDCLOCK_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1/")
	t.Setenv("FIELDCLOCK_TENANT", "acme")
	t.Setenv("FIELDCLOCK_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("FIELDCLOCK_DB_PATH", "/tmp/test.db")
	t.Setenv("FIELDCLOCK_SYNC_INTERVAL", "1m")
	t.Setenv("FIELDCLOCK_MAX_QUEUE_SIZE", "10")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/v1", cfg.APIBaseURL, "trailing slash trimmed")
	assert.Equal(t, "acme", cfg.Tenant)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 10, cfg.MaxQueueSize)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1")
	t.Setenv("FIELDCLOCK_TENANT", "acme")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
	assert.Equal(t, "fieldclock.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 10*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 50, cfg.MaxQueueSize)
	assert.Equal(t, 1, cfg.MaxOfflinePerShift)
	assert.Equal(t, "", cfg.SecretKey)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_TENANT", "acme")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIELDCLOCK_API_BASE_URL")
}

func TestLoad_MissingTenant(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIELDCLOCK_TENANT")
}

func TestLoad_InvalidDuration(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1")
	t.Setenv("FIELDCLOCK_TENANT", "acme")
	t.Setenv("FIELDCLOCK_SYNC_INTERVAL", "not-a-duration")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIELDCLOCK_SYNC_INTERVAL")
}

func TestLoad_InvalidDeviceID(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1")
	t.Setenv("FIELDCLOCK_TENANT", "acme")
	t.Setenv("FIELDCLOCK_DEVICE_ID", "not-a-uuid")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIELDCLOCK_DEVICE_ID")
}

func TestLoad_NonPositiveIntervalsRejected(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero sync interval", "FIELDCLOCK_SYNC_INTERVAL", "0s"},
		{"negative sync interval", "FIELDCLOCK_SYNC_INTERVAL", "-30s"},
		{"zero probe interval", "FIELDCLOCK_PROBE_INTERVAL", "0s"},
		{"negative probe interval", "FIELDCLOCK_PROBE_INTERVAL", "-10s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1")
			t.Setenv("FIELDCLOCK_TENANT", "acme")
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_ZeroQueueSizeRejected(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FIELDCLOCK_API_BASE_URL", "https://api.example.com/api/v1")
	t.Setenv("FIELDCLOCK_TENANT", "acme")
	t.Setenv("FIELDCLOCK_MAX_QUEUE_SIZE", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIELDCLOCK_MAX_QUEUE_SIZE")
}
