package config

import (
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/livinlefevreloca/panelclock/internal/db"
	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/device/web"
	"github.com/livinlefevreloca/panelclock/internal/dispatch"
	"github.com/livinlefevreloca/panelclock/internal/logging"
	"github.com/livinlefevreloca/panelclock/internal/scheduler"
	"github.com/livinlefevreloca/panelclock/internal/stats"
	"github.com/livinlefevreloca/panelclock/internal/weather"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "PANELCLOCK_"

// Config represents the application configuration
type Config struct {
	Logging   logging.Config   `toml:"logging" envPrefix:"LOGGING_"`
	Scheduler scheduler.Config `toml:"scheduler" envPrefix:"SCHEDULER_"`
	Dispatch  dispatch.Config  `toml:"dispatch" envPrefix:"DISPATCH_"`
	Weather   WeatherConfig    `toml:"weather" envPrefix:"WEATHER_"`
	Device    device.Config    `toml:"device" envPrefix:"DEVICE_"`
	Ledger    LedgerConfig     `toml:"ledger" envPrefix:"LEDGER_"`
}

// WeatherConfig holds the outdoor weather job settings
type WeatherConfig struct {
	Query    weather.Query     `toml:"query" envPrefix:"QUERY_"`
	ShowCity bool              `toml:"show_city" env:"SHOW_CITY"`
	Fetch    web.FetcherConfig `toml:"fetch" envPrefix:"FETCH_"`
}

// LedgerConfig holds the job run statistics ledger settings
type LedgerConfig struct {
	Stats    stats.Config `toml:"stats" envPrefix:"STATS_"`
	Database db.Config    `toml:"database" envPrefix:"DATABASE_"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	ledgerStats := stats.DefaultConfig()
	ledgerStats.Enabled = false

	return &Config{
		Logging:   logging.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		Dispatch:  dispatch.DefaultConfig(),
		Weather: WeatherConfig{
			Query: weather.Query{
				BaseURL:  "https://api.seniverse.com/v3/weather/now.json",
				Language: "en",
				Unit:     "c",
			},
			Fetch: web.DefaultFetcherConfig(),
		},
		Device: device.DefaultConfig(),
		Ledger: LedgerConfig{
			Stats:    ledgerStats,
			Database: db.DefaultConfig(),
		},
	}
}

// LoadFromFile loads configuration from a TOML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Newf("config file does not exist: %s", path)
	}

	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("unknown config keys: %v", undecoded)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. .env file in the working directory (if present)
// 4. PANELCLOCK_* environment variables
// 5. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	// Variables already set in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env file")
	}

	if err := ApplyEnv(config, nil); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config from PANELCLOCK_* variables. A nil environment
// reads the process environment.
func ApplyEnv(config *Config, environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return errors.Wrap(err, "parse environment")
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.Device.Validate(); err != nil {
		return err
	}

	// Weather validation
	if c.Weather.Query.BaseURL == "" {
		return errors.New("weather base_url must be specified")
	}
	if c.Weather.Query.Key == "" {
		return errors.New("weather key must be specified")
	}
	if c.Weather.Query.Location == "" {
		return errors.New("weather location must be specified")
	}
	if err := c.Weather.Fetch.Validate(); err != nil {
		return err
	}

	// The weather job must not be able to outrun its own rate limit
	minInterval := time.Duration(float64(time.Second) / c.Weather.Fetch.Rate)
	if c.Scheduler.OutdoorWeather.Duration() < minInterval {
		return errors.Newf("scheduler outdoor_weather (%v) is shorter than the fetch rate allows (%v)",
			c.Scheduler.OutdoorWeather, minInterval)
	}

	// Ledger validation
	if c.Ledger.Stats.Enabled {
		if err := c.Ledger.Stats.Validate(); err != nil {
			return err
		}
		if err := c.Ledger.Database.Validate(); err != nil {
			return err
		}
	}

	return nil
}
