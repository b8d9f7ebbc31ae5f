// Package host backs the panel collaborators with the machine it runs on.
package host

import (
	"sync"
	"time"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

// RTC is a software clock that follows the system clock plus an offset.
// Set moves the offset so the next Now reads the written value.
type RTC struct {
	loc *time.Location
	now func() time.Time

	mu     sync.Mutex
	offset time.Duration
}

// NewRTC creates a clock reading wall time in loc
func NewRTC(loc *time.Location) *RTC {
	return &RTC{loc: loc, now: time.Now}
}

// Now returns the current reading
func (r *RTC) Now() device.DateTime {
	r.mu.Lock()
	offset := r.offset
	r.mu.Unlock()
	return device.FromTime(r.now().Add(offset).In(r.loc))
}

// Set makes d the current reading
func (r *RTC) Set(d device.DateTime) error {
	target := d.Time(r.loc)
	r.mu.Lock()
	r.offset = target.Sub(r.now().Truncate(time.Second))
	r.mu.Unlock()
	return nil
}

// Offset returns how far the clock is ahead of the system clock
func (r *RTC) Offset() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}
