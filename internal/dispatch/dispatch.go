// Package dispatch runs job invocations either directly in the caller or on a
// single worker goroutine that drains a FIFO queue.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/inbox"
)

// ErrQueueFull is returned when deferred work could not be enqueued in time
var ErrQueueFull = errors.New("dispatch: work queue full")

// Mode selects where a job body executes
type Mode int

const (
	// Inline runs the work synchronously in the caller's goroutine
	Inline Mode = iota
	// Deferred hands the work to the worker goroutine
	Deferred
)

// String returns a human-readable representation of the mode
func (m Mode) String() string {
	switch m {
	case Inline:
		return "inline"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Work is one unit of dispatched work
type Work struct {
	Name string
	Run  func(ctx context.Context)

	enqueuedAt time.Time
}

// Config controls the deferred work queue
type Config struct {
	QueueSize      int           `toml:"queue_size" env:"QUEUE_SIZE"`
	EnqueueTimeout time.Duration `toml:"enqueue_timeout" env:"ENQUEUE_TIMEOUT"`
}

// DefaultConfig returns the default queue settings
func DefaultConfig() Config {
	return Config{
		QueueSize:      16,
		EnqueueTimeout: 10 * time.Millisecond,
	}
}

// Validate checks the queue settings
func (c Config) Validate() error {
	if c.QueueSize <= 0 {
		return errors.Newf("dispatch queue_size must be positive, got %d", c.QueueSize)
	}
	if c.EnqueueTimeout <= 0 {
		return errors.Newf("dispatch enqueue_timeout must be positive, got %v", c.EnqueueTimeout)
	}
	return nil
}

// Substrate executes work inline or through its worker queue
type Substrate struct {
	queue  *inbox.Inbox[Work]
	logger *zap.SugaredLogger
}

// New creates a substrate. Deferred work only executes once Run is called.
func New(config Config, logger *zap.SugaredLogger) *Substrate {
	return &Substrate{
		queue:  inbox.New[Work](config.QueueSize, config.EnqueueTimeout, logger),
		logger: logger,
	}
}

// Dispatch executes w according to mode. For Deferred it returns as soon as w
// is queued, or ErrQueueFull if the queue stayed full for the enqueue timeout.
func (s *Substrate) Dispatch(ctx context.Context, mode Mode, w Work) error {
	switch mode {
	case Inline:
		s.execute(ctx, w)
		return nil
	case Deferred:
		w.enqueuedAt = time.Now()
		if !s.queue.Send(w) {
			return errors.Wrapf(ErrQueueFull, "enqueue %s", w.Name)
		}
		return nil
	default:
		return errors.Newf("dispatch: unknown mode %d", mode)
	}
}

// Run drains the work queue in enqueue order until ctx is done
func (s *Substrate) Run(ctx context.Context) error {
	s.logger.Infow("dispatch worker started")
	defer s.logger.Infow("dispatch worker stopped")

	for {
		w, ok := s.queue.Receive(ctx)
		if !ok {
			return nil
		}
		s.logger.Debugw("running deferred work",
			"work", w.Name,
			"queue_wait", time.Since(w.enqueuedAt),
			"queue_depth", s.queue.Len())
		s.execute(ctx, w)
	}
}

// QueueStats reports the work queue counters
func (s *Substrate) QueueStats() inbox.Stats {
	return s.queue.Stats()
}

// execute runs w, keeping a panicking body from taking the worker down
func (s *Substrate) execute(ctx context.Context, w Work) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Errorw("work panicked", "work", w.Name, "panic", fmt.Sprint(p))
		}
	}()
	w.Run(ctx)
}
