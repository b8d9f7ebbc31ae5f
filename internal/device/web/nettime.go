package web

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

// ErrNoDate is returned when the time server sends no usable Date header
var ErrNoDate = errors.New("web: response has no Date header")

// NetworkTime reads the time from the Date header of a HEAD request
type NetworkTime struct {
	url    string
	client *http.Client
	loc    *time.Location
}

// NewNetworkTime queries url and reports the time in loc
func NewNetworkTime(url string, timeout time.Duration, loc *time.Location) *NetworkTime {
	return &NetworkTime{
		url:    url,
		client: &http.Client{Timeout: timeout},
		loc:    loc,
	}
}

// Now returns the server's current time
func (n *NetworkTime) Now(ctx context.Context) (device.DateTime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, n.url, nil)
	if err != nil {
		return device.DateTime{}, errors.Wrap(err, "build request")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return device.DateTime{}, errors.Wrap(err, "query time server")
	}
	resp.Body.Close()

	header := resp.Header.Get("Date")
	if header == "" {
		return device.DateTime{}, ErrNoDate
	}
	t, err := http.ParseTime(header)
	if err != nil {
		return device.DateTime{}, errors.Wrapf(ErrNoDate, "parse %q: %v", header, err)
	}
	return device.FromTime(t.In(n.loc)), nil
}
