package jobs

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/change"
	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/weather"
)

// OutdoorWeather fetches the current weather and shows its temperature and
// icon, plus the city when showCity is set
type OutdoorWeather struct {
	fetcher  device.Fetcher
	url      string
	fields   []weather.Field
	showCity bool
	display  device.Display
	logger   *zap.SugaredLogger
	last     *change.Filter[weather.Record]
}

// NewOutdoorWeather creates the outdoor weather body
func NewOutdoorWeather(fetcher device.Fetcher, url string, showCity bool, display device.Display, logger *zap.SugaredLogger) *OutdoorWeather {
	return &OutdoorWeather{
		fetcher:  fetcher,
		url:      url,
		fields:   weather.Fields(),
		showCity: showCity,
		display:  display,
		logger:   logger,
		last:     change.New(weather.Record.Equal),
	}
}

// Run fetches and decodes the weather once
func (j *OutdoorWeather) Run(ctx context.Context) error {
	body, err := j.fetcher.Get(ctx, j.url)
	if err != nil {
		j.logger.Warnw("weather http error", "error", err)
		return errors.Mark(errors.Wrap(err, "fetch weather"), ErrFetch)
	}

	record, err := weather.Extract(body, j.fields)
	if err != nil {
		j.logger.Warnw("weather parse failed", "error", err, "bytes", len(body))
		return errors.Mark(err, ErrFetch)
	}

	if _, changed := j.last.Offer(record); !changed {
		return nil
	}

	icon := weather.IconFor(record.Code)
	j.logger.Infow("outdoor weather",
		"city", record.City,
		"weather", record.Weather,
		"code", record.Code,
		"icon", icon.String(),
		"temperature", record.Temperature)
	j.display.SetOutdoorTemperature(record.Temperature)
	j.display.SetOutdoorIcon(icon)
	if j.showCity {
		j.display.SetOutdoorCity(record.City)
	}
	return nil
}

// Last returns the last forwarded record
func (j *OutdoorWeather) Last() weather.Record {
	return j.last.Last()
}
