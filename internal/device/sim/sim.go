// Package sim provides simulated Wi-Fi and sensor collaborators for running
// the panel on machines without the hardware.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

// WiFi reports a connected station whose signal level drifts
type WiFi struct {
	SSID  string
	BSSID string

	mu    sync.Mutex
	polls int
}

// Status returns a connected status with a varying RSSI
func (w *WiFi) Status(ctx context.Context) (device.WiFiInfo, error) {
	w.mu.Lock()
	w.polls++
	n := w.polls
	w.mu.Unlock()

	return device.WiFiInfo{
		SSID:      w.SSID,
		BSSID:     w.BSSID,
		Channel:   6,
		RSSI:      -50 - n%7,
		Connected: true,
	}, nil
}

// Sensor produces a slow daily temperature and humidity curve, rounded to a
// tenth so consecutive reads usually repeat
type Sensor struct {
	now func() time.Time
}

// NewSensor creates a sensor following the wall clock
func NewSensor() *Sensor {
	return &Sensor{now: time.Now}
}

// Start is a no-op
func (s *Sensor) Start(ctx context.Context) error { return nil }

// WaitReady is a no-op
func (s *Sensor) WaitReady(ctx context.Context) error { return nil }

// Read returns the curve value for the current time of day
func (s *Sensor) Read(ctx context.Context) (device.Reading, error) {
	t := s.now()
	secs := float64(t.Hour()*3600 + t.Minute()*60 + t.Second())
	phase := 2 * math.Pi * secs / 86400

	return device.Reading{
		Temperature: round1(22 + 3*math.Sin(phase)),
		Humidity:    round1(45 - 10*math.Sin(phase)),
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
