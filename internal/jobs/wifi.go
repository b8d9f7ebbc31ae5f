package jobs

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/change"
	"github.com/livinlefevreloca/panelclock/internal/device"
)

// WiFiStatus shows the network name on connect and WiFiLostText on
// disconnect. Signal and channel changes alone are ignored.
type WiFiStatus struct {
	wifi    device.WiFi
	display device.Display
	logger  *zap.SugaredLogger
	last    *change.Filter[device.WiFiInfo]
}

// NewWiFiStatus creates the Wi-Fi body
func NewWiFiStatus(wifi device.WiFi, display device.Display, logger *zap.SugaredLogger) *WiFiStatus {
	return &WiFiStatus{
		wifi:    wifi,
		display: display,
		logger:  logger,
		last: change.New(func(a, b device.WiFiInfo) bool {
			return a.Connected == b.Connected
		}),
	}
}

// Run polls the status once
func (j *WiFiStatus) Run(ctx context.Context) error {
	info, err := j.wifi.Status(ctx)
	if err != nil {
		j.logger.Warnw("get wifi info failed", "error", err)
		return errors.Mark(errors.Wrap(err, "wifi status"), ErrFetch)
	}

	prev, changed := j.last.Offer(info)
	if !changed {
		return nil
	}

	if info.Connected {
		j.logger.Infow("wifi connected",
			"ssid", info.SSID,
			"bssid", info.BSSID,
			"channel", info.Channel,
			"rssi", info.RSSI)
		j.display.SetSSID(info.SSID)
		return nil
	}

	j.logger.Infow("wifi disconnected", "ssid", prev.SSID)
	j.display.SetSSID(WiFiLostText)
	return nil
}

// Last returns the last forwarded status
func (j *WiFiStatus) Last() device.WiFiInfo {
	return j.last.Last()
}
