package stats

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/db"
	"github.com/livinlefevreloca/panelclock/internal/inbox"
)

// pollInterval bounds how long Run waits for a message before checking the
// period boundary
const pollInterval = 100 * time.Millisecond

// DatabaseWriter persists closed stats periods
type DatabaseWriter interface {
	WriteJobStats(ctx context.Context, periodID string, startTime, endTime time.Time, jobs map[string]*JobAccumulator) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DBAdapter adapts db.DB to the DatabaseWriter interface
type DBAdapter struct {
	db *db.DB
}

// NewDBAdapter creates a new database adapter
func NewDBAdapter(database *db.DB) *DBAdapter {
	return &DBAdapter{db: database}
}

// WriteJobStats writes one row per job for the period
func (a *DBAdapter) WriteJobStats(ctx context.Context, periodID string, startTime, endTime time.Time, jobs map[string]*JobAccumulator) error {
	rows := make([]db.JobStats, 0, len(jobs))
	for _, name := range sortedJobs(jobs) {
		acc := jobs[name]
		row := db.JobStats{
			StatsPeriodID: periodID,
			Job:           name,
			StartTime:     startTime,
			EndTime:       endTime,
			Runs:          acc.Runs,
			Succeeded:     acc.Succeeded,
			Failed:        acc.Failed,
			Coalesced:     acc.Coalesced,
			Rejected:      acc.Rejected,
		}
		if len(acc.Durations) > 0 {
			minD, maxD, avgD := calculateMinMaxAvgDuration(acc.Durations)
			row.MinDuration = intPtr(int(minD.Microseconds()))
			row.MaxDuration = intPtr(int(maxD.Microseconds()))
			row.AvgDuration = float64Ptr(float64(avgD.Microseconds()))
		}
		rows = append(rows, row)
	}

	return errors.Wrapf(a.db.CreateJobStats(ctx, rows), "write stats period %s", periodID)
}

// PruneBefore deletes periods that started before cutoff
func (a *DBAdapter) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.db.DeleteJobStatsBefore(ctx, cutoff)
}

// Collector accumulates job run statistics per period and writes each
// period to the database when it ends
type Collector struct {
	db     DatabaseWriter
	inbox  *inbox.Inbox[RunStats]
	config Config
	logger *zap.SugaredLogger

	// mu protects the current period and its accumulators
	mu              sync.Mutex
	currentPeriod   string
	periodStartTime time.Time
	jobs            map[string]*JobAccumulator
}

// NewCollector creates a new stats collector
func NewCollector(config Config, db DatabaseWriter, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		db:              db,
		inbox:           inbox.New[RunStats](config.InboxBufferSize, config.InboxSendTimeout, logger),
		config:          config,
		logger:          logger,
		currentPeriod:   generatePeriodID(),
		periodStartTime: time.Now().UTC(),
		jobs:            make(map[string]*JobAccumulator),
	}
}

// Send hands a run report to the collector. Returns false if the inbox
// stayed full for the send timeout.
func (c *Collector) Send(msg RunStats) bool {
	return c.inbox.Send(msg)
}

// Run consumes run reports until ctx is done, then writes the partial period
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Infow("stats collector started", "period_duration", c.config.PeriodDuration)

	ticker := time.NewTicker(c.config.PeriodDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.drain()
			// ctx is already done; the final write gets its own deadline
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.flush(flushCtx); err != nil {
				c.logger.Errorw("final stats flush failed", "error", err)
				return err
			}
			c.logger.Infow("stats collector stopped")
			return nil

		case <-ticker.C:
			if err := c.flush(ctx); err != nil {
				c.logger.Errorw("stats flush failed", "error", err)
			}

		default:
			recvCtx, cancel := context.WithTimeout(ctx, pollInterval)
			msg, ok := c.inbox.Receive(recvCtx)
			cancel()
			if ok {
				c.processMessage(msg)
			}
		}
	}
}

// Snapshot returns a copy of the current period's accumulators
func (c *Collector) Snapshot() map[string]JobAccumulator {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]JobAccumulator, len(c.jobs))
	for name, acc := range c.jobs {
		out[name] = *acc.clone()
	}
	return out
}

// CurrentPeriod returns the ID of the period being accumulated
func (c *Collector) CurrentPeriod() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPeriod
}

func (c *Collector) drain() {
	for {
		msg, ok := c.inbox.TryReceive()
		if !ok {
			return
		}
		c.processMessage(msg)
	}
}

func (c *Collector) processMessage(msg RunStats) {
	if msg.Job == "" {
		c.logger.Warnw("dropping run stats without a job name", "outcome", msg.Outcome.String())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	acc, ok := c.jobs[msg.Job]
	if !ok {
		acc = &JobAccumulator{}
		c.jobs[msg.Job] = acc
	}
	acc.Add(msg)
}

// flush closes the current period, writes it if anything was recorded, and
// starts a new one. A failed write drops the period.
func (c *Collector) flush(ctx context.Context) error {
	c.mu.Lock()
	periodID := c.currentPeriod
	start := c.periodStartTime
	jobs := make(map[string]*JobAccumulator, len(c.jobs))
	for name, acc := range c.jobs {
		if !acc.Empty() {
			jobs[name] = acc
		}
	}
	c.currentPeriod = generatePeriodID()
	c.periodStartTime = time.Now().UTC()
	c.jobs = make(map[string]*JobAccumulator)
	c.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	end := time.Now().UTC()
	c.logger.Debugw("flushing stats period", "period", periodID, "jobs", len(jobs))
	if err := c.db.WriteJobStats(ctx, periodID, start, end, jobs); err != nil {
		return err
	}

	if c.config.Retention > 0 {
		n, err := c.db.PruneBefore(ctx, end.Add(-c.config.Retention))
		if err != nil {
			return errors.Wrap(err, "prune stats periods")
		}
		if n > 0 {
			c.logger.Debugw("pruned stats periods", "rows", n)
		}
	}
	return nil
}

func generatePeriodID() string {
	return uuid.NewString()
}

func sortedJobs(jobs map[string]*JobAccumulator) []string {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intPtr(i int) *int {
	return &i
}

func float64Ptr(f float64) *float64 {
	return &f
}

func calculateMinMaxAvgDuration(values []time.Duration) (min, max, avg time.Duration) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	min = values[0]
	max = values[0]
	var sum time.Duration

	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	avg = sum / time.Duration(len(values))
	return min, max, avg
}
