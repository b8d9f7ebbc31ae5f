package scheduler

import (
	"context"
	"time"

	"github.com/livinlefevreloca/panelclock/internal/dispatch"
)

// Kind identifies one of the panel's jobs
type Kind int

const (
	TimeSync Kind = iota
	WiFiStatus
	ClockDisplay
	IndoorSensor
	OutdoorWeather

	numKinds
)

// Kinds lists every job kind in registration order
func Kinds() []Kind {
	return []Kind{TimeSync, WiFiStatus, ClockDisplay, IndoorSensor, OutdoorWeather}
}

// String returns a human-readable representation of the job kind
func (k Kind) String() string {
	switch k {
	case TimeSync:
		return "time_sync"
	case WiFiStatus:
		return "wifi_status"
	case ClockDisplay:
		return "clock_display"
	case IndoorSensor:
		return "indoor_sensor"
	case OutdoorWeather:
		return "outdoor_weather"
	default:
		return "unknown"
	}
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}

// Recurrence decides who computes a job's next expiry
type Recurrence int

const (
	// Periodic jobs re-arm themselves with a fixed period on every expiry
	Periodic Recurrence = iota
	// OneShotReschedule jobs stay disarmed after an expiry until the
	// invocation finishes and its Rescheduler supplies the next delay
	OneShotReschedule
)

// String returns a human-readable representation of the recurrence
func (r Recurrence) String() string {
	switch r {
	case Periodic:
		return "periodic"
	case OneShotReschedule:
		return "one_shot_reschedule"
	default:
		return "unknown"
	}
}

// Body is the work a job performs on every invocation.
// A non-nil error means the run failed; the body has already logged it.
type Body interface {
	Run(ctx context.Context) error
}

// BodyFunc adapts a function to Body
type BodyFunc func(ctx context.Context) error

// Run calls f(ctx)
func (f BodyFunc) Run(ctx context.Context) error { return f(ctx) }

// Rescheduler computes the next delay of a OneShotReschedule job from the
// outcome of the invocation that just finished
type Rescheduler interface {
	NextDelay(runErr error) time.Duration
}

// RetrySchedule oscillates between a short delay after failures and a long
// delay after successes. It never grows.
type RetrySchedule struct {
	FastRetry   time.Duration
	SteadyState time.Duration
}

// NextDelay returns FastRetry if runErr is non-nil, SteadyState otherwise
func (r RetrySchedule) NextDelay(runErr error) time.Duration {
	if runErr != nil {
		return r.FastRetry
	}
	return r.SteadyState
}

// Job binds a body to its timer
type Job struct {
	Kind Kind
	// Period is the fixed interval of a Periodic job, or the delay before the
	// first expiry of a OneShotReschedule job
	Period      time.Duration
	Mode        dispatch.Mode
	Recurrence  Recurrence
	Body        Body
	Rescheduler Rescheduler
}
