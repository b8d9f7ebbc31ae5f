package jobs

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/change"
	"github.com/livinlefevreloca/panelclock/internal/device"
)

// IndoorSensor takes one temperature/humidity measurement per run
type IndoorSensor struct {
	sensor  device.Sensor
	display device.Display
	logger  *zap.SugaredLogger
	last    *change.Filter[device.Reading]
}

// NewIndoorSensor creates the indoor sensor body
func NewIndoorSensor(sensor device.Sensor, display device.Display, logger *zap.SugaredLogger) *IndoorSensor {
	return &IndoorSensor{
		sensor:  sensor,
		display: display,
		logger:  logger,
		last:    change.New(device.Reading.Equal),
	}
}

// Run measures once
func (j *IndoorSensor) Run(ctx context.Context) error {
	if err := j.sensor.Start(ctx); err != nil {
		j.logger.Warnw("start measurement failed", "error", err)
		return errors.Mark(errors.Wrap(err, "start measurement"), ErrFetch)
	}
	if err := j.sensor.WaitReady(ctx); err != nil {
		j.logger.Warnw("wait for measurement failed", "error", err)
		return errors.Mark(errors.Wrap(err, "wait for measurement"), ErrFetch)
	}
	reading, err := j.sensor.Read(ctx)
	if err != nil {
		j.logger.Warnw("read measurement failed", "error", err)
		return errors.Mark(errors.Wrap(err, "read measurement"), ErrFetch)
	}

	if _, changed := j.last.Offer(reading); !changed {
		return nil
	}

	j.logger.Infow("indoor reading",
		"temperature", reading.Temperature,
		"humidity", reading.Humidity)
	j.display.SetIndoorTemperature(reading.Temperature)
	j.display.SetIndoorHumidity(reading.Humidity)
	return nil
}

// Last returns the last forwarded reading
func (j *IndoorSensor) Last() device.Reading {
	return j.last.Last()
}
