package host

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

var (
	// ErrNotStarted is returned by WaitReady or Read without a prior Start
	ErrNotStarted = errors.New("host: measurement not started")
	// ErrNoSensor is returned when no temperature sensor matches
	ErrNoSensor = errors.New("host: no matching temperature sensor")
)

// Sensor reads indoor temperature from the host's thermal sensors and,
// optionally, humidity from a sysfs file
type Sensor struct {
	key          string
	humidityPath string
	delay        time.Duration

	temperatures func(ctx context.Context) ([]host.TemperatureStat, error)
	readFile     func(path string) ([]byte, error)

	mu        sync.Mutex
	startedAt time.Time
}

// NewSensor matches the first thermal sensor whose key contains key.
// An empty key takes the first sensor reported.
func NewSensor(key, humidityPath string, delay time.Duration) *Sensor {
	return &Sensor{
		key:          key,
		humidityPath: humidityPath,
		delay:        delay,
		temperatures: host.SensorsTemperaturesWithContext,
		readFile:     os.ReadFile,
	}
}

// Start begins a measurement
func (s *Sensor) Start(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// WaitReady blocks until the measurement delay since Start has passed
func (s *Sensor) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()

	if started.IsZero() {
		return ErrNotStarted
	}

	wait := time.Until(started.Add(s.delay))
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for measurement")
	}
}

// Read returns the measurement and clears the started state
func (s *Sensor) Read(ctx context.Context) (device.Reading, error) {
	s.mu.Lock()
	started := s.startedAt
	s.startedAt = time.Time{}
	s.mu.Unlock()

	if started.IsZero() {
		return device.Reading{}, ErrNotStarted
	}

	stats, err := s.temperatures(ctx)
	if err != nil && len(stats) == 0 {
		return device.Reading{}, errors.Wrap(err, "read thermal sensors")
	}

	var reading device.Reading
	found := false
	for _, st := range stats {
		if strings.Contains(st.SensorKey, s.key) {
			reading.Temperature = st.Temperature
			found = true
			break
		}
	}
	if !found {
		return device.Reading{}, errors.Wrapf(ErrNoSensor, "key %q", s.key)
	}

	if s.humidityPath != "" {
		raw, err := s.readFile(s.humidityPath)
		if err != nil {
			return device.Reading{}, errors.Wrap(err, "read humidity")
		}
		milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
		if err != nil {
			return device.Reading{}, errors.Wrapf(err, "parse humidity %q", strings.TrimSpace(string(raw)))
		}
		reading.Humidity = milli / 1000
	}

	return reading, nil
}
