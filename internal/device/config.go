package device

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Source selects which adapters back the collaborators
type Source string

const (
	// SourceHost reads the machine's own interfaces and sensors
	SourceHost Source = "host"
	// SourceSim uses simulated Wi-Fi and sensor readings
	SourceSim Source = "sim"
)

// Config selects and tunes the device adapters
type Config struct {
	Source Source `toml:"source" env:"SOURCE"`

	// Wireless interface to watch; empty picks the first "wl*" interface
	WiFiInterface string `toml:"wifi_interface" env:"WIFI_INTERFACE"`
	// Network name shown when the interface comes up
	SSID string `toml:"ssid" env:"SSID"`

	// Substring of the gopsutil sensor key used for indoor temperature
	TemperatureSensor string `toml:"temperature_sensor" env:"TEMPERATURE_SENSOR"`
	// Optional sysfs file holding relative humidity in milli-percent
	HumidityPath string `toml:"humidity_path" env:"HUMIDITY_PATH"`
	// How long WaitReady waits after Start before a reading is valid
	MeasurementDelay time.Duration `toml:"measurement_delay" env:"MEASUREMENT_DELAY"`

	// Zone the RTC keeps its wall-clock reading in
	TimeZone string `toml:"time_zone" env:"TIME_ZONE"`

	// Server whose Date header is used as network time
	NetworkTimeURL string        `toml:"network_time_url" env:"NETWORK_TIME_URL"`
	NetworkTimeout time.Duration `toml:"network_timeout" env:"NETWORK_TIMEOUT"`
}

// DefaultConfig returns host adapters in local time
func DefaultConfig() Config {
	return Config{
		Source:            SourceHost,
		SSID:              "panelclock",
		TemperatureSensor: "",
		MeasurementDelay:  80 * time.Millisecond,
		TimeZone:          "Local",
		NetworkTimeURL:    "https://www.google.com",
		NetworkTimeout:    5 * time.Second,
	}
}

// Validate checks the adapter settings
func (c Config) Validate() error {
	switch c.Source {
	case SourceHost, SourceSim:
	default:
		return errors.Newf("device source must be %q or %q, got %q", SourceHost, SourceSim, c.Source)
	}
	if c.MeasurementDelay < 0 {
		return errors.Newf("device measurement_delay must not be negative, got %v", c.MeasurementDelay)
	}
	if c.NetworkTimeURL == "" {
		return errors.New("device network_time_url is required")
	}
	if c.NetworkTimeout <= 0 {
		return errors.Newf("device network_timeout must be positive, got %v", c.NetworkTimeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "device time_zone %q", c.TimeZone)
	}
	return loc, nil
}
