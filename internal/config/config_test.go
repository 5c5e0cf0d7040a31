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
	t.Setenv("CONFIG_FILE", "")
	cfg := Load()

	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 150.0, cfg.Library.GeofenceRadiusMeters)
	assert.Equal(t, 52, cfg.Library.TotalSeats)
	assert.False(t, cfg.Library.GeofenceEnabled)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.yaml")
	yml := `
http_port: "7000"
otp_ttl: 2m
library:
  name: Test Library
  geofence_enabled: true
  wifi_prefixes: ["10.0.0."]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LIBRARY_TOTAL_SEATS", "40")
	t.Setenv("GEOFENCE_RADIUS_METERS", "not-a-number")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")

	cfg := Load()
	assert.Equal(t, "9000", cfg.HTTPPort, "env wins over file")
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL)
	assert.Equal(t, "Test Library", cfg.Library.Name)
	assert.True(t, cfg.Library.GeofenceEnabled)
	assert.Equal(t, []string{"10.0.0."}, cfg.Library.WifiPrefixes)
	assert.Equal(t, 40, cfg.Library.TotalSeats)
	assert.Equal(t, 150.0, cfg.Library.GeofenceRadiusMeters, "invalid env keeps fallback")
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.TrustedProxies)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
