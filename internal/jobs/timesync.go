package jobs

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

// TimeSync copies network time into the RTC. Any failure makes the
// scheduler retry quickly.
type TimeSync struct {
	network device.NetworkTime
	rtc     device.RTC
	logger  *zap.SugaredLogger
}

// NewTimeSync creates the time sync body
func NewTimeSync(network device.NetworkTime, rtc device.RTC, logger *zap.SugaredLogger) *TimeSync {
	return &TimeSync{network: network, rtc: rtc, logger: logger}
}

// Run performs one sync attempt
func (j *TimeSync) Run(ctx context.Context) error {
	now, err := j.network.Now(ctx)
	if err != nil {
		j.logger.Warnw("get network time failed", "error", err)
		return errors.Mark(errors.Wrap(err, "network time"), ErrFetch)
	}

	if now.Year < MinNetworkYear {
		j.logger.Warnw("invalid network date", "time", now.String())
		return errors.Wrapf(ErrValidation, "network year %d", now.Year)
	}

	if err := j.rtc.Set(now); err != nil {
		j.logger.Warnw("write rtc failed", "error", err)
		return errors.Wrap(err, "write rtc")
	}

	j.logger.Infow("synced time", "time", now.String())
	return nil
}
