package scheduler

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	cronlib "github.com/robfig/cron/v3"
)

// descriptorParser accepts "@every <duration>" and the fixed descriptors
// such as "@hourly"
var descriptorParser = cronlib.NewParser(cronlib.Descriptor)

// Interval is a duration that can be written either as a Go duration ("5s")
// or as a cron descriptor ("@every 5s", "@hourly")
type Interval time.Duration

// Duration returns the interval as a time.Duration
func (i Interval) Duration() time.Duration {
	return time.Duration(i)
}

// String formats the interval as a Go duration
func (i Interval) String() string {
	return time.Duration(i).String()
}

// MarshalText implements encoding.TextMarshaler
func (i Interval) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (i *Interval) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if !strings.HasPrefix(s, "@") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "invalid interval %q", s)
		}
		*i = Interval(d)
		return nil
	}

	if strings.HasPrefix(s, "@every") {
		sched, err := descriptorParser.Parse(s)
		if err != nil {
			return errors.Wrapf(err, "invalid interval %q", s)
		}
		every, ok := sched.(cronlib.ConstantDelaySchedule)
		if !ok {
			return errors.Newf("interval %q is not a constant delay", s)
		}
		*i = Interval(every.Delay)
		return nil
	}

	// Calendar descriptors fire on wall-clock boundaries, so use the
	// distance between two consecutive activations as the period
	sched, err := descriptorParser.Parse(s)
	if err != nil {
		return errors.Wrapf(err, "invalid interval %q", s)
	}
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	first := sched.Next(ref)
	*i = Interval(sched.Next(first).Sub(first))
	return nil
}

// Config holds the period of every job
type Config struct {
	// Steady-state interval between successful network time syncs
	TimeSync Interval `toml:"time_sync" env:"TIME_SYNC"`

	// Delay before retrying a failed network time sync
	TimeSyncRetry Interval `toml:"time_sync_retry" env:"TIME_SYNC_RETRY"`

	// Delay before the first time sync expiry
	TimeSyncInitialDelay Interval `toml:"time_sync_initial_delay" env:"TIME_SYNC_INITIAL_DELAY"`

	WiFiStatus     Interval `toml:"wifi_status" env:"WIFI_STATUS"`
	ClockDisplay   Interval `toml:"clock_display" env:"CLOCK_DISPLAY"`
	IndoorSensor   Interval `toml:"indoor_sensor" env:"INDOOR_SENSOR"`
	OutdoorWeather Interval `toml:"outdoor_weather" env:"OUTDOOR_WEATHER"`
}

// DefaultConfig returns the panel's standard job periods
func DefaultConfig() Config {
	return Config{
		TimeSync:             Interval(time.Hour),
		TimeSyncRetry:        Interval(time.Second),
		TimeSyncInitialDelay: Interval(200 * time.Millisecond),
		WiFiStatus:           Interval(5 * time.Second),
		ClockDisplay:         Interval(time.Second),
		IndoorSensor:         Interval(3 * time.Second),
		OutdoorWeather:       Interval(time.Minute),
	}
}

// RetrySchedule returns the time sync rescheduling policy
func (c Config) RetrySchedule() RetrySchedule {
	return RetrySchedule{
		FastRetry:   c.TimeSyncRetry.Duration(),
		SteadyState: c.TimeSync.Duration(),
	}
}

// Validate checks every period is positive and the retry is shorter than the
// steady-state interval
func (c Config) Validate() error {
	periods := []struct {
		name string
		v    Interval
	}{
		{"time_sync", c.TimeSync},
		{"time_sync_retry", c.TimeSyncRetry},
		{"time_sync_initial_delay", c.TimeSyncInitialDelay},
		{"wifi_status", c.WiFiStatus},
		{"clock_display", c.ClockDisplay},
		{"indoor_sensor", c.IndoorSensor},
		{"outdoor_weather", c.OutdoorWeather},
	}
	for _, p := range periods {
		if p.v <= 0 {
			return errors.Newf("scheduler %s must be positive, got %v", p.name, p.v)
		}
	}

	if c.TimeSyncRetry >= c.TimeSync {
		return errors.Newf("scheduler time_sync_retry (%v) must be less than time_sync (%v)",
			c.TimeSyncRetry, c.TimeSync)
	}

	return nil
}
