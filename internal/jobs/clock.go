package jobs

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/change"
	"github.com/livinlefevreloca/panelclock/internal/device"
)

// ClockDisplay redraws the time and date from the RTC. It touches nothing
// but the RTC and display, so it may run inline.
type ClockDisplay struct {
	rtc     device.RTC
	display device.Display
	logger  *zap.SugaredLogger
	last    *change.Filter[device.DateTime]
}

// NewClockDisplay creates the clock body
func NewClockDisplay(rtc device.RTC, display device.Display, logger *zap.SugaredLogger) *ClockDisplay {
	return &ClockDisplay{
		rtc:     rtc,
		display: display,
		logger:  logger,
		last:    change.NewComparable[device.DateTime](),
	}
}

// Run reads the RTC once
func (j *ClockDisplay) Run(ctx context.Context) error {
	now := j.rtc.Now()
	if now.Year < MinClockYear {
		// RTC not set yet; keep whatever is on screen
		return errors.Wrapf(ErrValidation, "rtc year %d", now.Year)
	}

	if _, changed := j.last.Offer(now); !changed {
		return nil
	}

	j.logger.Debugw("clock updated", "time", now.String())
	j.display.SetTime(now)
	j.display.SetDate(now)
	return nil
}

// Last returns the last forwarded reading
func (j *ClockDisplay) Last() device.DateTime {
	return j.last.Last()
}
