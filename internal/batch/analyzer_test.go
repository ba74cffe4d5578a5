package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-evaluator/internal/evidence"
	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/profile"
)

type evalFunc func(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails) (*model.ContractorProfile, error)

func (f evalFunc) Evaluate(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails) (*model.ContractorProfile, error) {
	return f(ctx, bid, project)
}

func scored(score float64) evalFunc {
	return func(_ context.Context, bid model.ContractorBid, _ model.ProjectDetails) (*model.ContractorProfile, error) {
		p := model.NewContractorProfile(bid)
		p.OverallScore = score
		return p, nil
	}
}

var project = model.ProjectDetails{Description: "Kitchen remodel"}

func bidsOf(amounts ...float64) []model.ContractorBid {
	out := make([]model.ContractorBid, len(amounts))
	for i, a := range amounts {
		out[i] = model.ContractorBid{ID: string(rune('a' + i)), Name: "Contractor", BidAmount: a}
	}
	return out
}

// Two bids with no evidence: equal baseline scores, equal pricing, bid order kept.
func TestAnalyzeAll_NoEvidenceBaseline(t *testing.T) {
	noEvidence := evidence.Adapter{Name: "website", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		f.Skip("no website")
	}}
	a := NewAnalyzer(profile.NewBuilder([]evidence.Adapter{noEvidence}, nil), 0, nil)

	profiles, market := a.AnalyzeAll(context.Background(), project, bidsOf(10000, 20000))

	require.Len(t, profiles, 2)
	assert.Equal(t, "a", profiles[0].ContractorID)
	assert.Equal(t, "b", profiles[1].ContractorID)
	for _, p := range profiles {
		assert.InDelta(t, 0.335, p.OverallScore, 1e-9)
		assert.Zero(t, p.ConfidenceScore)
		assert.InDelta(t, 0.667, p.PricingCompetitiveness, 0.001)
	}

	assert.InDelta(t, 15000, market.AverageBid, 0.001)
	assert.InDelta(t, 10000, market.MinBid, 0.001)
	assert.InDelta(t, 20000, market.MaxBid, 0.001)
	assert.Equal(t, 2, market.TotalContractors)
	assert.Equal(t, 2, market.AnalyzedContractors)
	assert.Equal(t, 0, market.FailedAnalyses)
}

func TestAnalyzeAll_EmptyBids(t *testing.T) {
	a := NewAnalyzer(scored(0.5), 0, nil)

	profiles, market := a.AnalyzeAll(context.Background(), project, nil)

	assert.Empty(t, profiles)
	assert.Equal(t, model.MarketAnalysis{}, market)
}

func TestAnalyzeAll_SortsDescendingStable(t *testing.T) {
	scores := map[string]float64{"a": 0.4, "b": 0.9, "c": 0.4, "d": 0.7}
	eval := evalFunc(func(_ context.Context, bid model.ContractorBid, _ model.ProjectDetails) (*model.ContractorProfile, error) {
		p := model.NewContractorProfile(bid)
		p.OverallScore = scores[bid.ID]
		return p, nil
	})

	profiles, _ := NewAnalyzer(eval, 0, nil).AnalyzeAll(context.Background(), project, bidsOf(1, 1, 1, 1))

	var ids []string
	for _, p := range profiles {
		ids = append(ids, p.ContractorID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestAnalyzeAll_FailuresAndPanicsCounted(t *testing.T) {
	eval := evalFunc(func(_ context.Context, bid model.ContractorBid, _ model.ProjectDetails) (*model.ContractorProfile, error) {
		switch bid.ID {
		case "b":
			return nil, errors.New("evaluation blew up")
		case "c":
			panic("unexpected")
		}
		return model.NewContractorProfile(bid), nil
	})

	profiles, market := NewAnalyzer(eval, 0, nil).AnalyzeAll(context.Background(), project, bidsOf(100, 200, 300))

	require.Len(t, profiles, 1)
	assert.Equal(t, "a", profiles[0].ContractorID)
	assert.Equal(t, 3, market.TotalContractors)
	assert.Equal(t, 1, market.AnalyzedContractors)
	assert.Equal(t, 2, market.FailedAnalyses)
	// Stats cover every input bid, including failed ones.
	assert.InDelta(t, 200, market.AverageBid, 0.001)
	assert.InDelta(t, 300, market.MaxBid, 0.001)
	// Pricing against the mean of all bids: 100/200 = 0.5.
	assert.InDelta(t, 0.5, profiles[0].PricingCompetitiveness, 0.001)
}

func TestAnalyzeAll_ZeroMeanPricing(t *testing.T) {
	profiles, _ := NewAnalyzer(scored(0.5), 0, nil).AnalyzeAll(context.Background(), project, bidsOf(0, 0))

	require.Len(t, profiles, 2)
	for _, p := range profiles {
		assert.InDelta(t, 0.5, p.PricingCompetitiveness, 1e-9)
	}
}

func TestAnalyzeAll_RunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(3)
	eval := evalFunc(func(_ context.Context, bid model.ContractorBid, _ model.ProjectDetails) (*model.ContractorProfile, error) {
		wg.Done()
		wg.Wait() // deadlocks unless all three run at once
		return model.NewContractorProfile(bid), nil
	})

	done := make(chan struct{})
	go func() {
		NewAnalyzer(eval, 0, nil).AnalyzeAll(context.Background(), project, bidsOf(1, 2, 3))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bids were not evaluated concurrently")
	}
}

func TestAnalyzeAll_MaxConcurrent(t *testing.T) {
	var active, peak atomic.Int32
	eval := evalFunc(func(_ context.Context, bid model.ContractorBid, _ model.ProjectDetails) (*model.ContractorProfile, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return model.NewContractorProfile(bid), nil
	})

	profiles, _ := NewAnalyzer(eval, 2, nil).AnalyzeAll(context.Background(), project, bidsOf(1, 2, 3, 4, 5))

	assert.Len(t, profiles, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMean(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 2, Mean([]float64{1, 2, 3}), 1e-9)
}
