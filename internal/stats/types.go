package stats

import "time"

// Outcome is how one job invocation ended
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	// OutcomeCoalesced marks an expiry skipped because the previous
	// invocation of the same job was still pending
	OutcomeCoalesced
	// OutcomeRejected marks an invocation the dispatcher refused
	OutcomeRejected
)

// String returns a human-readable representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCoalesced:
		return "coalesced"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RunStats reports one job invocation
type RunStats struct {
	Job       string
	Outcome   Outcome
	Duration  time.Duration
	Timestamp time.Time
}

// JobAccumulator accumulates one job's statistics for a period
type JobAccumulator struct {
	Runs      int
	Succeeded int
	Failed    int
	Coalesced int
	Rejected  int

	// Durations of runs that reached the body
	Durations []time.Duration
}

// Add adds one invocation to the accumulator
func (acc *JobAccumulator) Add(msg RunStats) {
	switch msg.Outcome {
	case OutcomeSuccess:
		acc.Runs++
		acc.Succeeded++
		acc.Durations = append(acc.Durations, msg.Duration)
	case OutcomeFailure:
		acc.Runs++
		acc.Failed++
		acc.Durations = append(acc.Durations, msg.Duration)
	case OutcomeCoalesced:
		acc.Coalesced++
	case OutcomeRejected:
		acc.Rejected++
	}
}

// Empty reports whether nothing was recorded
func (acc *JobAccumulator) Empty() bool {
	return acc.Runs == 0 && acc.Coalesced == 0 && acc.Rejected == 0
}

func (acc *JobAccumulator) clone() *JobAccumulator {
	c := *acc
	c.Durations = append([]time.Duration(nil), acc.Durations...)
	return &c
}
