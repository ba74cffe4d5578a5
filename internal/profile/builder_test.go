package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-evaluator/internal/evidence"
	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/monitoring"
	"github.com/sells-group/bid-evaluator/pkg/google"
)

var (
	bid = model.ContractorBid{ID: "c-1", Name: "Jo Smith", CompanyName: "Acme Roofing", BidAmount: 12000}

	roofing = model.ProjectDetails{Description: "Replace roof", ProjectType: "roofing"}
)

func ratingAdapter(rating float64, reviews int) evidence.Adapter {
	return evidence.Adapter{Name: "directory", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		f.Rating = &rating
		f.ReviewCount = &reviews
		f.AddGreenFlag("Highly rated")
		f.AddSource(model.SourcePlaces)
	}}
}

func websiteAdapter() evidence.Adapter {
	return evidence.Adapter{Name: "website", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		years := 12
		f.YearsInBusiness = &years
		f.AddSpecialty("Roofing")
		f.AddSource(model.SourceWebsite)
	}}
}

func failingAdapter() evidence.Adapter {
	return evidence.Adapter{Name: "broken", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		f.Fail(errors.New("upstream 503"))
	}}
}

func panickingAdapter() evidence.Adapter {
	return evidence.Adapter{Name: "panicky", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		f.AddRedFlag("should not survive")
		panic("nil map write")
	}}
}

func TestEvaluate_MergesAllAdapters(t *testing.T) {
	b := NewBuilder([]evidence.Adapter{websiteAdapter(), ratingAdapter(4.8, 120)}, nil)

	p, err := b.Evaluate(context.Background(), bid, roofing)
	require.NoError(t, err)

	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.8, *p.Rating, 0.001)
	require.NotNil(t, p.YearsInBusiness)
	assert.Equal(t, 12, *p.YearsInBusiness)
	assert.Equal(t, []string{"Roofing"}, p.Specialties)
	// Registration order, not completion order.
	assert.Equal(t, []string{model.SourceWebsite, model.SourcePlaces}, p.DataSources)
	assert.InDelta(t, 0.40, p.ConfidenceScore, 0.001)
	assert.Greater(t, p.OverallScore, 0.5)
	assert.Equal(t, "c-1", p.ContractorID)
	assert.InDelta(t, 12000, p.BidAmount, 0.001)
}

func TestEvaluate_AdapterFailureIsolated(t *testing.T) {
	withFailure := NewBuilder([]evidence.Adapter{websiteAdapter(), failingAdapter(), ratingAdapter(4.8, 120)}, nil)
	without := NewBuilder([]evidence.Adapter{websiteAdapter(), ratingAdapter(4.8, 120)}, nil)

	got, err := withFailure.Evaluate(context.Background(), bid, roofing)
	require.NoError(t, err)
	want, err := without.Evaluate(context.Background(), bid, roofing)
	require.NoError(t, err)

	assert.Equal(t, want.DataSources, got.DataSources)
	assert.InDelta(t, want.OverallScore, got.OverallScore, 1e-9)
	assert.InDelta(t, want.ConfidenceScore, got.ConfidenceScore, 1e-9)
}

func TestEvaluate_PanicRecoveredAndDiscarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	b := NewBuilder([]evidence.Adapter{panickingAdapter(), websiteAdapter()}, metrics)

	p, err := b.Evaluate(context.Background(), bid, roofing)
	require.NoError(t, err)

	assert.Empty(t, p.RedFlags)
	assert.Equal(t, []string{model.SourceWebsite}, p.DataSources)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AdapterRuns.WithLabelValues("panicky", evidence.OutcomePanic)), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AdapterRuns.WithLabelValues("website", evidence.OutcomeOK)), 0.001)
}

func TestEvaluate_NoEvidence(t *testing.T) {
	skip := evidence.Adapter{Name: "bbb", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		f.Skip("disabled")
	}}
	b := NewBuilder([]evidence.Adapter{skip}, nil)

	p, err := b.Evaluate(context.Background(), bid, model.ProjectDetails{Description: "Paint"})
	require.NoError(t, err)

	assert.Empty(t, p.DataSources)
	assert.Zero(t, p.ConfidenceScore)
	// 0.25*0.5 + 0.20*0.3 + 0.25*0.3 + 0.15*0 + 0.15*0.5
	assert.InDelta(t, 0.335, p.OverallScore, 0.001)
}

func TestEvaluate_DeadlineDropsPendingAdapters(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := evidence.Adapter{Name: "slow", Enrich: func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *evidence.Findings) {
		<-release
		f.AddSource(model.SourceBBB)
	}}
	b := NewBuilder([]evidence.Adapter{websiteAdapter(), slow}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	p, err := b.Evaluate(ctx, bid, roofing)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{model.SourceWebsite}, p.DataSources)
}

func TestEvaluate_ContextDoneOnEntry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder([]evidence.Adapter{websiteAdapter()}, nil).Evaluate(ctx, bid, roofing)
	assert.ErrorIs(t, err, context.Canceled)
}

type placesByName struct{ calls int }

func (p *placesByName) TextSearch(_ context.Context, query string) (*google.TextSearchResponse, error) {
	p.calls++
	if strings.Contains(query, "Bad Co") {
		return nil, errors.New("google: unexpected status 500")
	}
	return &google.TextSearchResponse{Places: []google.Place{{Rating: 4.8, UserRatingCount: 50}}}, nil
}

func TestEvaluate_EarlierFailuresDoNotChangeLaterProfiles(t *testing.T) {
	places := &placesByName{}
	b := NewBuilder(evidence.DefaultAdapters(evidence.Deps{Places: places}), nil)
	good := model.ContractorBid{ID: "good", Name: "Good Co", BidAmount: 15000}
	bad := model.ContractorBid{ID: "bad", Name: "Bad Co", BidAmount: 15000}

	before, err := b.Evaluate(context.Background(), good, roofing)
	require.NoError(t, err)
	for range 5 {
		p, err := b.Evaluate(context.Background(), bad, roofing)
		require.NoError(t, err)
		assert.Nil(t, p.Rating)
	}
	after, err := b.Evaluate(context.Background(), good, roofing)
	require.NoError(t, err)

	assert.Equal(t, 7, places.calls)
	require.NotNil(t, after.Rating)
	assert.InDelta(t, 4.8, *after.Rating, 1e-9)
	assert.Equal(t, []string{model.SourcePlaces}, after.DataSources)
	assert.Equal(t, before.DataSources, after.DataSources)
	assert.InDelta(t, before.OverallScore, after.OverallScore, 1e-9)
}

func TestAdapters(t *testing.T) {
	b := NewBuilder([]evidence.Adapter{websiteAdapter(), failingAdapter()}, nil)
	assert.Equal(t, []string{"website", "broken"}, b.Adapters())
}
