package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("TIMETABLE_FILE", "")
	t.Setenv("SITE_ADDRESS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 210*time.Second, cfg.PollInterval)
	assert.Equal(t, "sauna_data", cfg.LogPrefix)
	assert.True(t, cfg.TwoZone)
	assert.Equal(t, "Europe/Prague", cfg.Location.String())
	assert.NotNil(t, cfg.Timetable)
	assert.Equal(t, defaultSecondaryPath, cfg.Occupancy.SecondaryPath)
	assert.InDelta(t, 49.0204, cfg.Site.Lat, 1e-3)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("days:\n  monday: {status: closed}\n"), 0o644))

	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("TWO_ZONE", "false")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("TIMETABLE_FILE", path)
	t.Setenv("HOME_LAT", "50.1")
	t.Setenv("SITE_ADDRESS", "")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.False(t, cfg.TwoZone)
	assert.Empty(t, cfg.Occupancy.SecondaryPath)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.InDelta(t, 50.1, cfg.Home.Lat, 1e-9)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string][2]string{
		"bad interval":   {"POLL_INTERVAL", "soon"},
		"zero interval":  {"POLL_INTERVAL", "0s"},
		"bad timezone":   {"TIMEZONE", "Mars/Olympus"},
		"bad latitude":   {"HOME_LAT", "123"},
		"bad two zone":   {"TWO_ZONE", "maybe"},
		"missing file":   {"TIMETABLE_FILE", "/does/not/exist.yaml"},
		"bad port":       {"PORT", "http"},
		"bad log prefix": {"LOG_PREFIX", "a/b"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SITE_ADDRESS", "")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadGeocodesSiteAddress(t *testing.T) {
	orig := geocode
	t.Cleanup(func() { geocode = orig })

	var gotKey, gotAddress string
	geocode = func(apiKey, address string) (float64, float64, error) {
		gotKey, gotAddress = apiKey, address
		return 49.5, 17.5, nil
	}

	t.Setenv("SITE_ADDRESS", "Mariánská 1, Uherský Brod")
	t.Setenv("GEOCODER_API_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "Mariánská 1, Uherský Brod", gotAddress)
	assert.Equal(t, 49.5, cfg.Site.Lat)
	assert.Equal(t, 17.5, cfg.Site.Lon)

	geocode = func(string, string) (float64, float64, error) { return 0, 0, errors.New("quota") }
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("GEOCODER_API_KEY", "")
	_, err = Load()
	assert.Error(t, err)
}
