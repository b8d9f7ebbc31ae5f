// Package inbox is a bounded multi-producer, single-consumer queue whose
// producers give up after a timeout instead of blocking forever. It is never
// closed; consumers stop on context cancellation.
package inbox

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats is a point-in-time view of an inbox's counters
type Stats struct {
	Sent      int64
	Received  int64
	Timeouts  int64
	Depth     int
	PeakDepth int
}

// Inbox is a bounded FIFO of T. Senders wait at most the send timeout for
// room; a single consumer drains it with Receive or TryReceive.
type Inbox[T any] struct {
	ch          chan T
	sendTimeout time.Duration
	logger      *zap.SugaredLogger

	sent, received, timeouts atomic.Int64
	peak                     atomic.Int64
}

// New creates an inbox holding up to size items
func New[T any](size int, sendTimeout time.Duration, logger *zap.SugaredLogger) *Inbox[T] {
	return &Inbox[T]{
		ch:          make(chan T, size),
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Send enqueues item. It returns false if the inbox stayed full for the
// whole send timeout.
func (ib *Inbox[T]) Send(item T) bool {
	select {
	case ib.ch <- item:
		ib.accepted()
		return true
	default:
	}

	timer := time.NewTimer(ib.sendTimeout)
	defer timer.Stop()

	select {
	case ib.ch <- item:
		ib.accepted()
		return true
	case <-timer.C:
		ib.timeouts.Add(1)
		ib.logger.Warnw("inbox full, dropping item",
			"send_timeout", ib.sendTimeout,
			"depth", len(ib.ch),
			"capacity", cap(ib.ch))
		return false
	}
}

func (ib *Inbox[T]) accepted() {
	ib.sent.Add(1)
	depth := int64(len(ib.ch))
	for {
		peak := ib.peak.Load()
		if depth <= peak || ib.peak.CompareAndSwap(peak, depth) {
			return
		}
	}
}

// TryReceive returns the oldest item without blocking
func (ib *Inbox[T]) TryReceive() (item T, ok bool) {
	select {
	case item = <-ib.ch:
		ib.received.Add(1)
		return item, true
	default:
		return item, false
	}
}

// Receive waits for the oldest item. ok is false when ctx is done first.
func (ib *Inbox[T]) Receive(ctx context.Context) (item T, ok bool) {
	select {
	case item = <-ib.ch:
		ib.received.Add(1)
		return item, true
	case <-ctx.Done():
		return item, false
	}
}

// Stats returns the current counters
func (ib *Inbox[T]) Stats() Stats {
	return Stats{
		Sent:      ib.sent.Load(),
		Received:  ib.received.Load(),
		Timeouts:  ib.timeouts.Load(),
		Depth:     len(ib.ch),
		PeakDepth: int(ib.peak.Load()),
	}
}

// Len returns the number of queued items
func (ib *Inbox[T]) Len() int {
	return len(ib.ch)
}
