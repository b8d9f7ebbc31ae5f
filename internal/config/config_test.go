package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/scheduler"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Weather.Query.Key = "test-key"
	cfg.Weather.Query.Location = "Singapore"
	return cfg
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.Hour, cfg.Scheduler.TimeSync.Duration())
	assert.Equal(t, 200*time.Millisecond, cfg.Scheduler.TimeSyncInitialDelay.Duration())
	assert.Equal(t, time.Minute, cfg.Scheduler.OutdoorWeather.Duration())
	assert.Equal(t, 16, cfg.Dispatch.QueueSize)

	assert.Equal(t, "https://api.seniverse.com/v3/weather/now.json", cfg.Weather.Query.BaseURL)
	assert.Equal(t, "en", cfg.Weather.Query.Language)
	assert.Equal(t, "c", cfg.Weather.Query.Unit)
	assert.False(t, cfg.Weather.ShowCity)

	assert.Equal(t, device.SourceHost, cfg.Device.Source)

	// The ledger is opt-in
	assert.False(t, cfg.Ledger.Stats.Enabled)
	assert.Equal(t, "sqlite3", cfg.Ledger.Database.Driver)
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "panelclock.toml", `
[logging]
level = "debug"
format = "json"

[scheduler]
wifi_status = "@every 10s"
outdoor_weather = "@hourly"

[dispatch]
queue_size = 4

[weather]
show_city = true

[weather.query]
key = "abc"
location = "beijing"

[device]
source = "sim"
time_zone = "UTC"

[ledger.stats]
enabled = true
period_duration = "1m"

[ledger.database]
dsn = "/tmp/ledger.db"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, scheduler.Interval(10*time.Second), cfg.Scheduler.WiFiStatus)
	assert.Equal(t, scheduler.Interval(time.Hour), cfg.Scheduler.OutdoorWeather)
	assert.Equal(t, 4, cfg.Dispatch.QueueSize)
	assert.True(t, cfg.Weather.ShowCity)
	assert.Equal(t, "abc", cfg.Weather.Query.Key)
	assert.Equal(t, "beijing", cfg.Weather.Query.Location)
	assert.Equal(t, device.SourceSim, cfg.Device.Source)
	assert.True(t, cfg.Ledger.Stats.Enabled)
	assert.Equal(t, time.Minute, cfg.Ledger.Stats.PeriodDuration)
	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.Database.DSN)

	// Unset keys keep their defaults
	assert.Equal(t, "en", cfg.Weather.Query.Language)
	assert.Equal(t, time.Second, cfg.Scheduler.ClockDisplay.Duration())

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.toml", "[scheduler\nwifi_status = ")
	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "typo.toml", "[scheduler]\nwifi_stauts = \"5s\"\n")
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wifi_stauts")
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(cfg, map[string]string{
		"PANELCLOCK_WEATHER_QUERY_KEY":       "from-env",
		"PANELCLOCK_WEATHER_QUERY_LOCATION":  "shanghai",
		"PANELCLOCK_WEATHER_SHOW_CITY":       "true",
		"PANELCLOCK_WEATHER_FETCH_TIMEOUT":   "3s",
		"PANELCLOCK_SCHEDULER_CLOCK_DISPLAY": "@every 2s",
		"PANELCLOCK_DISPATCH_QUEUE_SIZE":     "32",
		"PANELCLOCK_DEVICE_SOURCE":           "sim",
		"PANELCLOCK_LEDGER_STATS_ENABLED":    "true",
		"PANELCLOCK_LEDGER_DATABASE_DSN":     "env.db",
		"PANELCLOCK_LOGGING_LEVEL":           "warn",
		"WEATHER_QUERY_KEY":                  "ignored-without-prefix",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Weather.Query.Key)
	assert.Equal(t, "shanghai", cfg.Weather.Query.Location)
	assert.True(t, cfg.Weather.ShowCity)
	assert.Equal(t, 3*time.Second, cfg.Weather.Fetch.Timeout)
	assert.Equal(t, scheduler.Interval(2*time.Second), cfg.Scheduler.ClockDisplay)
	assert.Equal(t, 32, cfg.Dispatch.QueueSize)
	assert.Equal(t, device.SourceSim, cfg.Device.Source)
	assert.True(t, cfg.Ledger.Stats.Enabled)
	assert.Equal(t, "env.db", cfg.Ledger.Database.DSN)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Untouched values survive
	assert.Equal(t, "en", cfg.Weather.Query.Language)
}

func TestApplyEnv_BadValue(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(cfg, map[string]string{"PANELCLOCK_SCHEDULER_WIFI_STATUS": "often"})
	require.Error(t, err)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "panelclock.toml", `
[weather.query]
key = "file-key"
location = "file-location"
`)
	t.Setenv("PANELCLOCK_WEATHER_QUERY_LOCATION", "env-location")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Weather.Query.Key)
	assert.Equal(t, "env-location", cfg.Weather.Query.Location)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PANELCLOCK_WEATHER_QUERY_KEY=dotenv-key\n")
	chdir(t, dir)
	// godotenv writes straight into the process environment
	t.Cleanup(func() { os.Unsetenv("PANELCLOCK_WEATHER_QUERY_KEY") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Weather.Query.Key)
}

func TestLoadConfig_NoFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scheduler, cfg.Scheduler)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "missing key",
			modify: func(c *Config) { c.Weather.Query.Key = "" },
			errMsg: "weather key",
		},
		{
			name:   "missing location",
			modify: func(c *Config) { c.Weather.Query.Location = "" },
			errMsg: "weather location",
		},
		{
			name:   "missing base url",
			modify: func(c *Config) { c.Weather.Query.BaseURL = "" },
			errMsg: "base_url",
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Logging.Level = "loud" },
		},
		{
			name:   "retry not shorter than sync",
			modify: func(c *Config) { c.Scheduler.TimeSyncRetry = c.Scheduler.TimeSync },
			errMsg: "time_sync_retry",
		},
		{
			name:   "zero queue",
			modify: func(c *Config) { c.Dispatch.QueueSize = 0 },
		},
		{
			name:   "unknown device source",
			modify: func(c *Config) { c.Device.Source = "serial" },
		},
		{
			name:   "weather polled faster than rate limit",
			modify: func(c *Config) { c.Scheduler.OutdoorWeather = scheduler.Interval(time.Second) },
			errMsg: "fetch rate",
		},
		{
			name:   "zero fetch burst",
			modify: func(c *Config) { c.Weather.Fetch.Burst = 0 },
		},
		{
			name: "enabled ledger without dsn",
			modify: func(c *Config) {
				c.Ledger.Stats.Enabled = true
				c.Ledger.Database.DSN = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidate_DisabledLedgerSkipsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.Database.DSN = ""
	assert.NoError(t, cfg.Validate())
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "panelclock.example.toml"))
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Scheduler, cfg.Scheduler)
	assert.Equal(t, defaults.Dispatch, cfg.Dispatch)
	assert.Equal(t, defaults.Device, cfg.Device)
	assert.Equal(t, defaults.Ledger, cfg.Ledger)

	cfg.Weather.Query.Key = "k"
	cfg.Weather.Query.Location = "beijing"
	assert.NoError(t, cfg.Validate())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
