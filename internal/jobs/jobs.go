// Package jobs holds the five panel job bodies. Each one reads a single
// collaborator, drops values equal to the last one it forwarded, and pushes
// changes to the display one field at a time.
//
// A body owns its snapshot and is never run concurrently with itself, so
// snapshots are not locked.
package jobs

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrFetch marks a run whose collaborator returned no data
	ErrFetch = errors.New("jobs: fetch failed")
	// ErrValidation marks a run whose data was implausible
	ErrValidation = errors.New("jobs: implausible value")
)

const (
	// MinNetworkYear is the earliest year accepted from network time
	MinNetworkYear = 2000
	// MinClockYear is the earliest RTC year worth displaying
	MinClockYear = 2020

	// WiFiLostText replaces the network name while disconnected
	WiFiLostText = "wifi lost"
)
