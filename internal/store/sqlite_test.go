package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-evaluator/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRequest() model.EvaluationRequest {
	return model.EvaluationRequest{
		Project: model.ProjectDetails{Description: "Replace storm-damaged roof", ProjectType: "roofing", Location: "Tampa, FL"},
		Bids: []model.ContractorBid{
			{ID: "c1", Name: "Jo Smith", CompanyName: "Acme Roofing", BidAmount: 12000},
		},
	}
}

func TestSQLite_CreateGetFinish(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, "run-1", sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Result)
	assert.Equal(t, "Acme Roofing", got.Request.Bids[0].CompanyName)

	result := &model.EvaluationResult{
		Recommendation: "Acme Roofing is the strongest bid.",
		Market:         model.MarketAnalysis{TotalContractors: 1, AnalyzedContractors: 1},
		Metadata:       model.EvaluationMetadata{RequestID: "run-1"},
	}
	require.NoError(t, s.FinishRun(ctx, "run-1", model.RunStatusComplete, result))

	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Acme Roofing is the strongest bid.", got.Result.Recommendation)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSQLite_CreateRun_GeneratesID(t *testing.T) {
	s := newTestSQLite(t)

	run, err := s.CreateRun(context.Background(), "", sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}

func TestSQLite_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.FinishRun(ctx, "missing", model.RunStatusComplete, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.CreateRun(ctx, id, sampleRequest())
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, s.FinishRun(ctx, "b", model.RunStatusDegraded, nil))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	degraded, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusDegraded})
	require.NoError(t, err)
	require.Len(t, degraded, 1)
	assert.Equal(t, "b", degraded[0].ID)

	page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	none, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(ctx, Config{Driver: "mysql"})
	assert.Error(t, err)

	s, err = Open(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close() //nolint:errcheck
	assert.NoError(t, s.Ping(ctx))
}
