package scheduler

import "time"

// timerItem is one arming of a job's timer. Items whose generation no longer
// matches the job are stale and skipped when they reach the top.
type timerItem struct {
	kind       Kind
	deadline   time.Time
	generation uint64
}

// timerHeap is a min-heap of timer items ordered by deadline.
// Ties fire in Kind order.
type timerHeap []timerItem

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].kind < h[j].kind
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timerItem))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
