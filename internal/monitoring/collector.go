package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/store"
)

// MetricsSnapshot holds a point-in-time view of evaluation health.
type MetricsSnapshot struct {
	// Run counts within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsDegraded int     `json:"runs_degraded"`
	RunsRunning  int     `json:"runs_running"`
	DegradedRate float64 `json:"degraded_rate"`

	// Timing over finished runs with a result.
	AvgProcessingSecs float64 `json:"avg_processing_secs"`
	MaxProcessingSecs float64 `json:"max_processing_secs"`
	SlowRuns          int     `json:"slow_runs"`

	// Bid-level failures across finished runs.
	BidsTotal  int `json:"bids_total"`
	BidsFailed int `json:"bids_failed"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.EvaluationRun, error)
}

// Collector gathers a snapshot from recorded runs.
type Collector struct {
	runs     RunLister
	slowSecs float64
}

// NewCollector creates a new metrics collector. Runs slower than slowSecs
// are counted in SlowRuns; zero disables the count.
func NewCollector(runs RunLister, slowSecs float64) *Collector {
	return &Collector{runs: runs, slowSecs: slowSecs}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalSecs float64
	var timed int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusDegraded:
			snap.RunsDegraded++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Result == nil {
			continue
		}
		snap.BidsTotal += r.Result.Market.TotalContractors
		snap.BidsFailed += r.Result.Market.FailedAnalyses

		secs := r.Result.Metadata.ProcessingTimeSeconds
		totalSecs += secs
		timed++
		if secs > snap.MaxProcessingSecs {
			snap.MaxProcessingSecs = secs
		}
		if c.slowSecs > 0 && secs > c.slowSecs {
			snap.SlowRuns++
		}
	}

	if finished := snap.RunsComplete + snap.RunsDegraded; finished > 0 {
		snap.DegradedRate = float64(snap.RunsDegraded) / float64(finished)
	}
	if timed > 0 {
		snap.AvgProcessingSecs = totalSecs / float64(timed)
	}

	return snap, nil
}
