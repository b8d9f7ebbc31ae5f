package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/pterm/pterm"

	"github.com/livinlefevreloca/panelclock/internal/db"
)

// JobSummary folds every stored period of one job
type JobSummary struct {
	Job       string
	Periods   int
	Runs      int
	Succeeded int
	Failed    int
	Coalesced int
	Rejected  int
	// Zero when no run completed
	MinDuration time.Duration
	MaxDuration time.Duration
	AvgDuration time.Duration
}

// Summarize folds ledger rows into one summary per job, sorted by job name.
// The average is weighted by each period's completed runs.
func Summarize(rows []db.JobStats) []JobSummary {
	byJob := make(map[string]*JobSummary)
	weighted := make(map[string]float64)
	completed := make(map[string]int)

	for _, row := range rows {
		s, ok := byJob[row.Job]
		if !ok {
			s = &JobSummary{Job: row.Job}
			byJob[row.Job] = s
		}
		s.Periods++
		s.Runs += row.Runs
		s.Succeeded += row.Succeeded
		s.Failed += row.Failed
		s.Coalesced += row.Coalesced
		s.Rejected += row.Rejected

		if row.MinDuration != nil {
			d := time.Duration(*row.MinDuration) * time.Microsecond
			if s.MinDuration == 0 || d < s.MinDuration {
				s.MinDuration = d
			}
		}
		if row.MaxDuration != nil {
			d := time.Duration(*row.MaxDuration) * time.Microsecond
			if d > s.MaxDuration {
				s.MaxDuration = d
			}
		}
		if row.AvgDuration != nil {
			n := row.Succeeded + row.Failed
			weighted[row.Job] += *row.AvgDuration * float64(n)
			completed[row.Job] += n
		}
	}

	out := make([]JobSummary, 0, len(byJob))
	for job, s := range byJob {
		if n := completed[job]; n > 0 {
			s.AvgDuration = time.Duration(weighted[job]/float64(n)) * time.Microsecond
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// RenderReport formats job summaries as a table
func RenderReport(summaries []JobSummary) (string, error) {
	data := pterm.TableData{
		{"job", "periods", "runs", "ok", "failed", "coalesced", "rejected", "min", "avg", "max"},
	}
	for _, s := range summaries {
		data = append(data, []string{
			s.Job,
			fmt.Sprint(s.Periods),
			fmt.Sprint(s.Runs),
			fmt.Sprint(s.Succeeded),
			fmt.Sprint(s.Failed),
			fmt.Sprint(s.Coalesced),
			fmt.Sprint(s.Rejected),
			s.MinDuration.String(),
			s.AvgDuration.String(),
			s.MaxDuration.String(),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}
