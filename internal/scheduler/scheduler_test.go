package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/dispatch"
	"github.com/livinlefevreloca/panelclock/internal/stats"
)

// =============================================================================
// Test Helpers
// =============================================================================

// recordingDispatcher records dispatch modes and optionally refuses deferred work
type recordingDispatcher struct {
	inner      Dispatcher
	rejectWith error

	mu    sync.Mutex
	modes []dispatch.Mode
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, mode dispatch.Mode, w dispatch.Work) error {
	d.mu.Lock()
	d.modes = append(d.modes, mode)
	d.mu.Unlock()

	if d.rejectWith != nil && mode == dispatch.Deferred {
		return d.rejectWith
	}
	return d.inner.Dispatch(ctx, mode, w)
}

func (d *recordingDispatcher) recorded() []dispatch.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatch.Mode(nil), d.modes...)
}

// recordingSink collects run stats
type recordingSink struct {
	mu   sync.Mutex
	msgs []stats.RunStats
}

func (s *recordingSink) Send(msg stats.RunStats) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return true
}

func (s *recordingSink) count(outcome stats.Outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.Outcome == outcome {
			n++
		}
	}
	return n
}

// recordingRescheduler wraps a RetrySchedule and records every delay it hands out
type recordingRescheduler struct {
	RetrySchedule

	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingRescheduler) NextDelay(runErr error) time.Duration {
	d := r.RetrySchedule.NextDelay(runErr)
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return d
}

func (r *recordingRescheduler) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func counterBody(n *atomic.Int32) Body {
	return BodyFunc(func(context.Context) error {
		n.Add(1)
		return nil
	})
}

// startHarness runs a dispatch worker and the scheduler loop until the test ends
func startHarness(t *testing.T, sub *dispatch.Substrate, s *Scheduler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = sub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = s.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func newHarness(t *testing.T, opts ...Option) (*dispatch.Substrate, *Scheduler) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	sub := dispatch.New(dispatch.DefaultConfig(), logger)
	return sub, NewScheduler(sub, logger, opts...)
}

// =============================================================================
// Registration Tests
// =============================================================================

func TestRegister_Validation(t *testing.T) {
	_, s := newHarness(t)
	body := BodyFunc(func(context.Context) error { return nil })

	tests := []struct {
		name string
		job  Job
		want error
	}{
		{"unknown kind", Job{Kind: Kind(99), Period: time.Second, Body: body}, ErrUnknownKind},
		{"negative kind", Job{Kind: Kind(-1), Period: time.Second, Body: body}, ErrUnknownKind},
		{"zero period", Job{Kind: WiFiStatus, Body: body}, ErrInvalidJob},
		{"missing body", Job{Kind: WiFiStatus, Period: time.Second}, ErrInvalidJob},
		{"bad mode", Job{Kind: WiFiStatus, Period: time.Second, Body: body, Mode: dispatch.Mode(7)}, ErrInvalidJob},
		{"one-shot without rescheduler", Job{Kind: TimeSync, Period: time.Second, Body: body, Recurrence: OneShotReschedule}, ErrInvalidJob},
		{"bad recurrence", Job{Kind: TimeSync, Period: time.Second, Body: body, Recurrence: Recurrence(5)}, ErrInvalidJob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Register(tt.job)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	_, s := newHarness(t)
	job := Job{Kind: ClockDisplay, Period: time.Second, Body: BodyFunc(func(context.Context) error { return nil })}

	require.NoError(t, s.Register(job))
	err := s.Register(job)
	assert.True(t, errors.Is(err, ErrDuplicateJob))
}

func TestRegister_AfterStart(t *testing.T) {
	_, s := newHarness(t)
	var n atomic.Int32
	require.NoError(t, s.Register(Job{Kind: ClockDisplay, Period: time.Hour, Body: counterBody(&n)}))
	require.NoError(t, s.StartAll(context.Background()))

	err := s.Register(Job{Kind: WiFiStatus, Period: time.Hour, Body: counterBody(&n)})
	assert.True(t, errors.Is(err, ErrAlreadyStarted))
}

func TestStartAll_Errors(t *testing.T) {
	_, s := newHarness(t)
	assert.True(t, errors.Is(s.StartAll(context.Background()), ErrNoJobs))

	var n atomic.Int32
	require.NoError(t, s.Register(Job{Kind: IndoorSensor, Period: time.Hour, Body: counterBody(&n)}))
	require.NoError(t, s.StartAll(context.Background()))
	assert.True(t, errors.Is(s.StartAll(context.Background()), ErrAlreadyStarted))
}

// =============================================================================
// Startup Tests
// =============================================================================

// TestStartAll_ImmediatePass verifies every job runs once on the deferred path
// before its first timer expiry
func TestStartAll_ImmediatePass(t *testing.T) {
	logger := zap.NewNop().Sugar()
	sub := dispatch.New(dispatch.DefaultConfig(), logger)
	rec := &recordingDispatcher{inner: sub}
	s := NewScheduler(rec, logger)

	var clock, wifi atomic.Int32
	require.NoError(t, s.Register(Job{Kind: ClockDisplay, Period: time.Hour, Mode: dispatch.Inline, Body: counterBody(&clock)}))
	require.NoError(t, s.Register(Job{Kind: WiFiStatus, Period: time.Hour, Mode: dispatch.Deferred, Body: counterBody(&wifi)}))

	require.NoError(t, s.StartAll(context.Background()))
	assert.Equal(t, []dispatch.Mode{dispatch.Deferred, dispatch.Deferred}, rec.recorded())
	assert.Equal(t, int32(0), clock.Load(), "immediate pass waits for the worker")

	startHarness(t, sub, s)
	require.Eventually(t, func() bool {
		return clock.Load() == 1 && wifi.Load() == 1
	}, time.Second, 5*time.Millisecond)

	next, ok := s.NextExpiry(ClockDisplay)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Second)
}

// =============================================================================
// Periodic Tests
// =============================================================================

func TestPeriodic_FiresRepeatedly(t *testing.T) {
	sub, s := newHarness(t)
	var n atomic.Int32
	require.NoError(t, s.Register(Job{Kind: ClockDisplay, Period: 20 * time.Millisecond, Mode: dispatch.Inline, Body: counterBody(&n)}))

	startHarness(t, sub, s)
	require.NoError(t, s.StartAll(context.Background()))

	require.Eventually(t, func() bool { return n.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)

	period, ok := s.Period(ClockDisplay)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, period)
}

func TestPeriodic_FailureDoesNotChangePeriod(t *testing.T) {
	sub, s := newHarness(t)
	var n atomic.Int32
	require.NoError(t, s.Register(Job{
		Kind:   IndoorSensor,
		Period: 15 * time.Millisecond,
		Mode:   dispatch.Deferred,
		Body: BodyFunc(func(context.Context) error {
			n.Add(1)
			return errors.New("sensor not ready")
		}),
	}))

	startHarness(t, sub, s)
	require.NoError(t, s.StartAll(context.Background()))

	require.Eventually(t, func() bool { return n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	period, _ := s.Period(IndoorSensor)
	assert.Equal(t, 15*time.Millisecond, period)
}

// TestPeriodic_CoalescesWhilePending verifies a slow job never runs twice at
// once and skipped expiries are reported
func TestPeriodic_CoalescesWhilePending(t *testing.T) {
	sink := &recordingSink{}
	sub, s := newHarness(t, WithStatsSink(sink))

	release := make(chan struct{})
	var running, maxRunning, calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Kind:   OutdoorWeather,
		Period: 5 * time.Millisecond,
		Mode:   dispatch.Deferred,
		Body: BodyFunc(func(ctx context.Context) error {
			cur := running.Add(1)
			defer running.Add(-1)
			if cur > maxRunning.Load() {
				maxRunning.Store(cur)
			}
			if calls.Add(1) == 1 {
				select {
				case <-release:
				case <-ctx.Done():
				}
			}
			return nil
		}),
	}))

	startHarness(t, sub, s)
	require.NoError(t, s.StartAll(context.Background()))

	require.Eventually(t, func() bool { return sink.count(stats.OutcomeCoalesced) >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	close(release)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Zero(t, sub.QueueStats().Timeouts)
}

// =============================================================================
// One-Shot Reschedule Tests
// =============================================================================

// TestOneShot_FastRetryThenSteadyState verifies the delay after a failure is
// the fast retry, the delay after a success is the steady state, and nothing
// in between ever appears
func TestOneShot_FastRetryThenSteadyState(t *testing.T) {
	sub, s := newHarness(t)
	const fast, steady = 10 * time.Millisecond, time.Hour

	resched := &recordingRescheduler{RetrySchedule: RetrySchedule{FastRetry: fast, SteadyState: steady}}
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Kind:        TimeSync,
		Period:      fast,
		Mode:        dispatch.Deferred,
		Recurrence:  OneShotReschedule,
		Rescheduler: resched,
		Body: BodyFunc(func(context.Context) error {
			if calls.Add(1) <= 2 {
				return errors.New("network time unavailable")
			}
			return nil
		}),
	}))

	startHarness(t, sub, s)
	require.NoError(t, s.StartAll(context.Background()))

	require.Eventually(t, func() bool {
		p, _ := s.Period(TimeSync)
		return p == steady
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []time.Duration{fast, fast, steady}, resched.recorded())

	// Steady state holds; no further run within the long delay
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())

	next, ok := s.NextExpiry(TimeSync)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(steady), next, time.Second)
}

func TestOneShot_PanicStillReschedules(t *testing.T) {
	sink := &recordingSink{}
	sub, s := newHarness(t, WithStatsSink(sink))

	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Kind:        TimeSync,
		Period:      time.Hour,
		Mode:        dispatch.Deferred,
		Recurrence:  OneShotReschedule,
		Rescheduler: RetrySchedule{FastRetry: 10 * time.Millisecond, SteadyState: time.Hour},
		Body: BodyFunc(func(context.Context) error {
			if calls.Add(1) == 1 {
				panic("rtc bus error")
			}
			return nil
		}),
	}))

	startHarness(t, sub, s)
	require.NoError(t, s.StartAll(context.Background()))

	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		p, _ := s.Period(TimeSync)
		return p == time.Hour
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, sink.count(stats.OutcomeFailure))
	assert.Equal(t, 1, sink.count(stats.OutcomeSuccess))
}

// TestOneShot_RejectedDispatchRetriesFast verifies a one-shot job is re-armed
// with the fast delay when its work cannot be queued
func TestOneShot_RejectedDispatchRetriesFast(t *testing.T) {
	logger := zap.NewNop().Sugar()
	sub := dispatch.New(dispatch.DefaultConfig(), logger)
	rec := &recordingDispatcher{inner: sub, rejectWith: dispatch.ErrQueueFull}
	sink := &recordingSink{}
	s := NewScheduler(rec, logger, WithStatsSink(sink))

	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Kind:        TimeSync,
		Period:      200 * time.Millisecond,
		Mode:        dispatch.Deferred,
		Recurrence:  OneShotReschedule,
		Rescheduler: RetrySchedule{FastRetry: time.Second, SteadyState: time.Hour},
		Body:        counterBody(&calls),
	}))

	require.NoError(t, s.StartAll(context.Background()))

	period, ok := s.Period(TimeSync)
	require.True(t, ok)
	assert.Equal(t, time.Second, period)
	assert.Equal(t, 1, sink.count(stats.OutcomeRejected))
	assert.Equal(t, int32(0), calls.Load())
}

func TestPeriod_Unregistered(t *testing.T) {
	_, s := newHarness(t)
	_, ok := s.Period(WiFiStatus)
	assert.False(t, ok)
	_, ok = s.NextExpiry(Kind(42))
	assert.False(t, ok)
}

func TestRetrySchedule_NextDelay(t *testing.T) {
	rs := RetrySchedule{FastRetry: time.Second, SteadyState: time.Hour}
	assert.Equal(t, time.Second, rs.NextDelay(errors.New("boom")))
	assert.Equal(t, time.Hour, rs.NextDelay(nil))
}

func TestKindString(t *testing.T) {
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, k.String())
	}
	assert.Equal(t, []string{"time_sync", "wifi_status", "clock_display", "indoor_sensor", "outdoor_weather"}, names)
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, "one_shot_reschedule", OneShotReschedule.String())
}
