package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/store"
)

type fakeRuns struct {
	runs    []model.EvaluationRun
	listErr error
}

func (f *fakeRuns) ListRuns(_ context.Context, filter store.RunFilter) ([]model.EvaluationRun, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.EvaluationRun
	for _, r := range f.runs {
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func finishedRun(status model.RunStatus, secs float64, total, failed int) model.EvaluationRun {
	return model.EvaluationRun{
		Status:    status,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		Result: &model.EvaluationResult{
			Market:   model.MarketAnalysis{TotalContractors: total, FailedAnalyses: failed},
			Metadata: model.EvaluationMetadata{ProcessingTimeSeconds: secs},
		},
	}
}

func TestCollector_EmptyStore(t *testing.T) {
	c := NewCollector(&fakeRuns{}, 60)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.RunsTotal)
	assert.Zero(t, snap.DegradedRate)
	assert.Zero(t, snap.AvgProcessingSecs)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollector_RunMetrics(t *testing.T) {
	runs := &fakeRuns{runs: []model.EvaluationRun{
		finishedRun(model.RunStatusComplete, 10, 3, 0),
		finishedRun(model.RunStatusComplete, 70, 4, 1),
		finishedRun(model.RunStatusDegraded, 90, 2, 2),
		{Status: model.RunStatusRunning, CreatedAt: time.Now().UTC()},
		// Outside the window.
		{Status: model.RunStatusDegraded, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)},
	}}
	c := NewCollector(runs, 60)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsDegraded)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.InDelta(t, 1.0/3.0, snap.DegradedRate, 0.001)
	assert.InDelta(t, 170.0/3.0, snap.AvgProcessingSecs, 0.001)
	assert.InDelta(t, 90, snap.MaxProcessingSecs, 0.001)
	assert.Equal(t, 2, snap.SlowRuns)
	assert.Equal(t, 9, snap.BidsTotal)
	assert.Equal(t, 3, snap.BidsFailed)
}

func TestCollector_ListError(t *testing.T) {
	c := NewCollector(&fakeRuns{listErr: errors.New("db down")}, 0)

	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}
