// Package device defines the hardware and network collaborators the panel
// jobs read from and draw to.
package device

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/livinlefevreloca/panelclock/internal/weather"
)

// DateTime is a calendar reading as the clock chips report it.
// Weekday runs 1 (Monday) through 7 (Sunday).
type DateTime struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Second  int
	Weekday int
}

// FromTime converts t to a DateTime in t's location
func FromTime(t time.Time) DateTime {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return DateTime{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Weekday: wd,
	}
}

// Time converts d to a time.Time in loc. Weekday is ignored.
func (d DateTime) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, loc)
}

// String formats d as "YYYY-MM-DD HH:MM:SS (weekday)"
func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (%d)",
		d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Weekday)
}

// WiFiInfo is the station status reported by the network module
type WiFiInfo struct {
	SSID      string
	BSSID     string
	Channel   int
	RSSI      int
	Connected bool
}

// Reading is one temperature/humidity measurement
type Reading struct {
	Temperature float64
	Humidity    float64
}

// Equal compares two readings field by field. Two NaNs are equal.
func (r Reading) Equal(o Reading) bool {
	return floatEqual(r.Temperature, o.Temperature) && floatEqual(r.Humidity, o.Humidity)
}

func floatEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

// RTC is the battery-backed real-time clock
type RTC interface {
	Now() DateTime
	Set(DateTime) error
}

// NetworkTime reads the current time from the network
type NetworkTime interface {
	Now(ctx context.Context) (DateTime, error)
}

// WiFi reports the station status
type WiFi interface {
	Status(ctx context.Context) (WiFiInfo, error)
}

// Sensor is a triggered temperature/humidity sensor. A measurement is
// started, waited on, then read.
type Sensor interface {
	Start(ctx context.Context) error
	WaitReady(ctx context.Context) error
	Read(ctx context.Context) (Reading, error)
}

// Fetcher performs an HTTP GET and returns the body text
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Display is the field-granular panel. Setters must not block.
type Display interface {
	SetSSID(text string)
	SetTime(d DateTime)
	SetDate(d DateTime)
	SetIndoorTemperature(celsius float64)
	SetIndoorHumidity(percent float64)
	SetOutdoorTemperature(celsius float64)
	SetOutdoorIcon(icon weather.Icon)
	SetOutdoorCity(city string)
}
