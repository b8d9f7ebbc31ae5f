package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/dispatch"
	"github.com/livinlefevreloca/panelclock/internal/stats"
)

var (
	ErrUnknownKind    = errors.New("scheduler: unknown job kind")
	ErrDuplicateJob   = errors.New("scheduler: job already registered")
	ErrInvalidJob     = errors.New("scheduler: invalid job")
	ErrAlreadyStarted = errors.New("scheduler: already started")
	ErrNoJobs         = errors.New("scheduler: no jobs registered")
)

// Dispatcher executes job invocations inline or deferred
type Dispatcher interface {
	Dispatch(ctx context.Context, mode dispatch.Mode, w dispatch.Work) error
}

// StatsSink receives one message per job invocation
type StatsSink interface {
	Send(msg stats.RunStats) bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithStatsSink reports every invocation outcome to sink
func WithStatsSink(sink StatsSink) Option {
	return func(s *Scheduler) { s.stats = sink }
}

// entry is the live state of one registered job. Every field except job is
// guarded by Scheduler.mu.
type entry struct {
	job Job

	// period is the fixed period, or the delay most recently requested by
	// the job's Rescheduler
	period     time.Duration
	deadline   time.Time
	armed      bool
	generation uint64

	// pending is set from dispatch until the invocation finishes
	pending bool
}

// Scheduler owns the job table and the timers driving it. Expiries are raised
// one at a time by the goroutine running Run.
type Scheduler struct {
	dispatcher Dispatcher
	stats      StatsSink
	logger     *zap.SugaredLogger

	mu      sync.Mutex
	entries [numKinds]*entry
	timers  timerHeap
	started bool

	// wake interrupts Run's wait after a timer is re-armed
	wake chan struct{}
}

// NewScheduler creates a scheduler with an empty job table
func NewScheduler(dispatcher Dispatcher, logger *zap.SugaredLogger, opts ...Option) *Scheduler {
	s := &Scheduler{
		dispatcher: dispatcher,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds a job to the table. Jobs must be registered before StartAll.
func (s *Scheduler) Register(job Job) error {
	if !job.Kind.valid() {
		return errors.Wrapf(ErrUnknownKind, "kind %d", job.Kind)
	}
	if err := validateJob(job); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrapf(ErrAlreadyStarted, "register %s", job.Kind)
	}
	if s.entries[job.Kind] != nil {
		return errors.Wrapf(ErrDuplicateJob, "register %s", job.Kind)
	}

	s.entries[job.Kind] = &entry{job: job, period: job.Period}
	s.logger.Debugw("registered job",
		"job", job.Kind.String(),
		"period", job.Period,
		"mode", job.Mode.String(),
		"recurrence", job.Recurrence.String())
	return nil
}

func validateJob(job Job) error {
	if job.Period <= 0 {
		return errors.Wrapf(ErrInvalidJob, "%s: period must be positive, got %v", job.Kind, job.Period)
	}
	if job.Body == nil {
		return errors.Wrapf(ErrInvalidJob, "%s: body is required", job.Kind)
	}
	if job.Mode != dispatch.Inline && job.Mode != dispatch.Deferred {
		return errors.Wrapf(ErrInvalidJob, "%s: unknown dispatch mode %d", job.Kind, job.Mode)
	}
	switch job.Recurrence {
	case Periodic:
	case OneShotReschedule:
		if job.Rescheduler == nil {
			return errors.Wrapf(ErrInvalidJob, "%s: one-shot job needs a rescheduler", job.Kind)
		}
	default:
		return errors.Wrapf(ErrInvalidJob, "%s: unknown recurrence %d", job.Kind, job.Recurrence)
	}
	return nil
}

// StartAll arms every registered job's timer and queues one immediate
// invocation of each job on the deferred path
func (s *Scheduler) StartAll(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}

	var registered []*entry
	for _, e := range s.entries {
		if e != nil {
			registered = append(registered, e)
		}
	}
	if len(registered) == 0 {
		s.mu.Unlock()
		return ErrNoJobs
	}

	s.started = true
	now := time.Now()
	for _, e := range registered {
		s.armLocked(e, now.Add(e.period))
	}
	s.mu.Unlock()
	s.signal()

	s.logger.Infow("starting jobs", "count", len(registered))
	for _, e := range registered {
		s.invoke(ctx, e, dispatch.Deferred)
	}
	return nil
}

// Run raises timer expiries until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infow("scheduler loop started")
	defer s.logger.Infow("scheduler loop stopped")

	for {
		var timerC <-chan time.Time
		var timer *time.Timer
		if wait, ok := s.nextWait(time.Now()); ok {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-s.wake:
		case now := <-timerC:
			s.fireDue(ctx, now)
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

// Period returns the job's current period. For a OneShotReschedule job this is
// the delay most recently requested by its Rescheduler.
func (s *Scheduler) Period(kind Kind) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !kind.valid() || s.entries[kind] == nil {
		return 0, false
	}
	return s.entries[kind].period, true
}

// NextExpiry returns when the job's timer fires next, if it is armed
func (s *Scheduler) NextExpiry(kind Kind) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !kind.valid() || s.entries[kind] == nil || !s.entries[kind].armed {
		return time.Time{}, false
	}
	return s.entries[kind].deadline, true
}

// nextWait drops stale timer items and returns the time until the earliest
// live deadline
func (s *Scheduler) nextWait(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.timers.Len() > 0 {
		top := s.timers[0]
		if s.isStale(top) {
			heap.Pop(&s.timers)
			continue
		}
		wait := top.deadline.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

// fireDue pops every expired timer, re-arms periodic jobs, disarms one-shot
// jobs, then dispatches the expired jobs outside the lock
func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	var due []*entry

	s.mu.Lock()
	for s.timers.Len() > 0 {
		top := s.timers[0]
		if s.isStale(top) {
			heap.Pop(&s.timers)
			continue
		}
		if top.deadline.After(now) {
			break
		}
		heap.Pop(&s.timers)

		e := s.entries[top.kind]
		switch e.job.Recurrence {
		case Periodic:
			next := e.deadline.Add(e.period)
			if !next.After(now) {
				// Fell behind; skip the missed expiries instead of bursting
				next = now.Add(e.period)
			}
			s.armLocked(e, next)
		case OneShotReschedule:
			e.armed = false
		}
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.invoke(ctx, e, e.job.Mode)
	}
}

// invoke dispatches one run of e unless a previous run is still outstanding
func (s *Scheduler) invoke(ctx context.Context, e *entry, mode dispatch.Mode) {
	name := e.job.Kind.String()

	s.mu.Lock()
	if e.pending {
		s.mu.Unlock()
		s.logger.Debugw("previous invocation still pending, skipping expiry", "job", name)
		s.record(e, stats.OutcomeCoalesced, 0)
		return
	}
	e.pending = true
	s.mu.Unlock()

	err := s.dispatcher.Dispatch(ctx, mode, dispatch.Work{
		Name: name,
		Run:  func(ctx context.Context) { s.execute(ctx, e) },
	})
	if err != nil {
		s.logger.Warnw("failed to dispatch job", "job", name, "mode", mode.String(), "error", err)
		s.record(e, stats.OutcomeRejected, 0)
		s.finish(e, err)
	}
}

// execute runs the body and always completes the invocation, even if the
// body panics
func (s *Scheduler) execute(ctx context.Context, e *entry) {
	start := time.Now()
	err := s.call(ctx, e)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Debugw("job run failed", "job", e.job.Kind.String(), "duration", elapsed, "error", err)
		s.record(e, stats.OutcomeFailure, elapsed)
	} else {
		s.record(e, stats.OutcomeSuccess, elapsed)
	}

	s.finish(e, err)
}

func (s *Scheduler) call(ctx context.Context, e *entry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("%s panicked: %v", e.job.Kind, p)
			s.logger.Errorw("job panicked", "job", e.job.Kind.String(), "panic", p)
		}
	}()
	return e.job.Body.Run(ctx)
}

// finish clears the pending flag and, for one-shot jobs, re-arms the timer
// with the delay the Rescheduler picks for this outcome
func (s *Scheduler) finish(e *entry, runErr error) {
	s.mu.Lock()
	e.pending = false
	if e.job.Recurrence != OneShotReschedule {
		s.mu.Unlock()
		return
	}

	delay := e.job.Rescheduler.NextDelay(runErr)
	e.period = delay
	s.armLocked(e, time.Now().Add(delay))
	s.mu.Unlock()
	s.signal()

	s.logger.Debugw("rescheduled job",
		"job", e.job.Kind.String(),
		"delay", delay,
		"failed", runErr != nil)
}

// armLocked replaces e's live timer binding with one firing at deadline
func (s *Scheduler) armLocked(e *entry, deadline time.Time) {
	e.generation++
	e.deadline = deadline
	e.armed = true
	heap.Push(&s.timers, timerItem{
		kind:       e.job.Kind,
		deadline:   deadline,
		generation: e.generation,
	})
}

func (s *Scheduler) isStale(item timerItem) bool {
	e := s.entries[item.kind]
	return e == nil || !e.armed || e.generation != item.generation
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) record(e *entry, outcome stats.Outcome, elapsed time.Duration) {
	if s.stats == nil {
		return
	}
	s.stats.Send(stats.RunStats{
		Job:       e.job.Kind.String(),
		Outcome:   outcome,
		Duration:  elapsed,
		Timestamp: time.Now(),
	})
}
