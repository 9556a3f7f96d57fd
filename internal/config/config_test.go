package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "RADAR_CODES", "UPDATE_INTERVAL", "UPDATE_CRON", "LOCAL_TIMEZONE",
	"RAINVIEWER_BASE_URL", "HTTP_TIMEOUT", "SELECT_BY_TIMESTAMP", "STORE_MAX_HISTORY",
	"STORE_MAX_AGE", "PORT", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"UKBB2"}, cfg.Radars)
	assert.Equal(t, 300*time.Second, cfg.UpdateInterval)
	assert.Empty(t, cfg.UpdateCron)
	assert.Equal(t, "Europe/Kyiv", cfg.Timezone)
	assert.Equal(t, "Europe/Kyiv", cfg.Location.String())
	assert.Equal(t, "https://data.rainviewer.com", cfg.RainViewerBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.SelectByTimestamp)
	assert.Equal(t, 288, cfg.StoreMaxHistory)
	assert.Equal(t, 24*time.Hour, cfg.StoreMaxAge)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RADAR_CODES", " UKBB2, UKDN1 ,,UKBB2")
	t.Setenv("UPDATE_INTERVAL", "2m")
	t.Setenv("UPDATE_CRON", "*/10 * * * *")
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("SELECT_BY_TIMESTAMP", "true")
	t.Setenv("STORE_MAX_HISTORY", "5")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"UKBB2", "UKDN1"}, cfg.Radars)
	assert.Equal(t, 2*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, "*/10 * * * *", cfg.UpdateCron)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.SelectByTimestamp)
	assert.Equal(t, 5, cfg.StoreMaxHistory)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_IntervalInSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPDATE_INTERVAL", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.UpdateInterval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "meteoradar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
radar: UKDN1
update_interval: 120
timezone: Europe/Warsaw
select_by_timestamp: true
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"UKDN1"}, cfg.Radars)
	assert.Equal(t, 2*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, "Europe/Warsaw", cfg.Timezone)
	assert.True(t, cfg.SelectByTimestamp)

	t.Setenv("RADAR_CODES", "UKBB2")
	t.Setenv("SELECT_BY_TIMESTAMP", "false")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"UKBB2"}, cfg.Radars)
	assert.False(t, cfg.SelectByTimestamp)
}

func TestLoad_FileRadarsList(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "meteoradar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("radars: [UKBB2, UKDN1]\nradar: IGNORED\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"UKBB2", "UKDN1"}, cfg.Radars)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"interval":     {"UPDATE_INTERVAL", "soon"},
		"zero":         {"UPDATE_INTERVAL", "0"},
		"cron":         {"UPDATE_CRON", "every day"},
		"timezone":     {"LOCAL_TIMEZONE", "Mars/Olympus"},
		"http timeout": {"HTTP_TIMEOUT", "fast"},
		"flag":         {"SELECT_BY_TIMESTAMP", "maybe"},
		"config file":  {"CONFIG_FILE", "/does/not/exist.yaml"},
		"radar dash":   {"RADAR_CODES", "UKBB2,UK-BB2"},
		"radar long":   {"RADAR_CODES", "ABCDEFGHIJKLMNOPQ"},
	}

	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
