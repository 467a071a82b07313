// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the daemon configuration loaded from environment variables.
type Config struct {
	// APIBaseURL is the backend root, e.g. "https://api.example.com/api/v1".
	APIBaseURL string
	// Tenant is the tenant slug prepended to attendance routes.
	Tenant string
	// DeviceID identifies this device in attendance payloads. Optional.
	DeviceID string

	ListenAddr string
	DBPath     string
	// SecretKey is the operator secret the AES credential key is derived
	// from. Optional; without it tokens are held in memory only.
	SecretKey string

	HTTPTimeout   time.Duration
	SyncInterval  time.Duration
	ProbeInterval time.Duration

	MaxQueueSize int
	// MaxOfflinePerShift mirrors the backend's AttendancePolicy value. It is
	// surfaced on the status endpoint for the capture UI; enforcement is
	// server-side.
	MaxOfflinePerShift int
}

// Load reads configuration from environment variables and returns a validated
// Config. FIELDCLOCK_API_BASE_URL and FIELDCLOCK_TENANT are required.
// Optional variables with defaults: FIELDCLOCK_LISTEN_ADDR (127.0.0.1:8787),
// FIELDCLOCK_DB_PATH (fieldclock.db), FIELDCLOCK_HTTP_TIMEOUT (30s),
// FIELDCLOCK_SYNC_INTERVAL (30s), FIELDCLOCK_PROBE_INTERVAL (10s),
// FIELDCLOCK_MAX_QUEUE_SIZE (50), FIELDCLOCK_MAX_OFFLINE_PER_SHIFT (1).
func Load() (*Config, error) {
	baseURL := strings.TrimRight(os.Getenv("FIELDCLOCK_API_BASE_URL"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("FIELDCLOCK_API_BASE_URL is required")
	}

	tenant := os.Getenv("FIELDCLOCK_TENANT")
	if tenant == "" {
		return nil, fmt.Errorf("FIELDCLOCK_TENANT is required")
	}

	deviceID := os.Getenv("FIELDCLOCK_DEVICE_ID")
	if deviceID != "" {
		if _, err := uuid.Parse(deviceID); err != nil {
			return nil, fmt.Errorf("FIELDCLOCK_DEVICE_ID is not a valid UUID: %w", err)
		}
	}

	listenAddr := "127.0.0.1:8787"
	if v, ok := os.LookupEnv("FIELDCLOCK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "fieldclock.db"
	if v, ok := os.LookupEnv("FIELDCLOCK_DB_PATH"); ok {
		dbPath = v
	}

	httpTimeout, err := durationEnv("FIELDCLOCK_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	syncInterval, err := durationEnv("FIELDCLOCK_SYNC_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	if syncInterval <= 0 {
		return nil, fmt.Errorf("FIELDCLOCK_SYNC_INTERVAL must be positive, got %s", syncInterval)
	}

	probeInterval, err := durationEnv("FIELDCLOCK_PROBE_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	if probeInterval <= 0 {
		return nil, fmt.Errorf("FIELDCLOCK_PROBE_INTERVAL must be positive, got %s", probeInterval)
	}

	maxQueueSize, err := intEnv("FIELDCLOCK_MAX_QUEUE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	if maxQueueSize < 1 {
		return nil, fmt.Errorf("FIELDCLOCK_MAX_QUEUE_SIZE must be at least 1, got %d", maxQueueSize)
	}

	maxOfflinePerShift, err := intEnv("FIELDCLOCK_MAX_OFFLINE_PER_SHIFT", 1)
	if err != nil {
		return nil, err
	}

	return &Config{
		APIBaseURL:         baseURL,
		Tenant:             tenant,
		DeviceID:           deviceID,
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		SecretKey:          os.Getenv("FIELDCLOCK_SECRET_KEY"),
		HTTPTimeout:        httpTimeout,
		SyncInterval:       syncInterval,
		ProbeInterval:      probeInterval,
		MaxQueueSize:       maxQueueSize,
		MaxOfflinePerShift: maxOfflinePerShift,
	}, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return parsed, nil
}
