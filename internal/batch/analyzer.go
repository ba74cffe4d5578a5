// Package batch evaluates every bid of a request concurrently and derives the
// market statistics of the bid set.
package batch

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/monitoring"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/internal/scorer"
)

// Evaluator produces one contractor's profile. *profile.Builder implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails) (*model.ContractorProfile, error)
}

// Analyzer runs one evaluation per bid.
type Analyzer struct {
	eval          Evaluator
	maxConcurrent int
	metrics       *monitoring.Metrics
}

// NewAnalyzer returns an Analyzer. maxConcurrent <= 0 runs every bid at once.
// metrics may be nil.
func NewAnalyzer(eval Evaluator, maxConcurrent int, metrics *monitoring.Metrics) *Analyzer {
	return &Analyzer{eval: eval, maxConcurrent: maxConcurrent, metrics: metrics}
}

type outcome struct {
	profile *model.ContractorProfile
	err     error
}

// AnalyzeAll evaluates every bid and returns the successful profiles ranked by
// overall score (ties keep bid order) with market statistics over all bids.
// A bid whose evaluation errors or panics is dropped and counted as failed.
func (a *Analyzer) AnalyzeAll(ctx context.Context, project model.ProjectDetails, bids []model.ContractorBid) ([]model.ContractorProfile, model.MarketAnalysis) {
	outcomes := make([]outcome, len(bids))

	g := new(errgroup.Group)
	if a.maxConcurrent > 0 {
		g.SetLimit(a.maxConcurrent)
	}
	for i, bid := range bids {
		g.Go(func() error {
			outcomes[i] = a.evaluate(ctx, bid, project)
			return nil
		})
	}
	_ = g.Wait()

	mean := Mean(amounts(bids))
	profiles := make([]model.ContractorProfile, 0, len(bids))
	failed := 0
	for i, o := range outcomes {
		if o.err != nil || o.profile == nil {
			failed++
			zap.L().Warn("batch: contractor analysis failed",
				zap.String("contractor_id", bids[i].ID),
				zap.String("contractor", bids[i].DisplayName()),
				zap.String("error_class", resilience.Classify(o.err)),
				zap.Error(o.err),
			)
			continue
		}
		p := *o.profile
		p.PricingCompetitiveness = scorer.PricingCompetitiveness(p.BidAmount, mean)
		profiles = append(profiles, p)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].OverallScore > profiles[j].OverallScore
	})

	market := Market(bids, len(profiles), failed)
	a.metrics.ObserveBids(market.AnalyzedContractors, market.FailedAnalyses)
	return profiles, market
}

func (a *Analyzer) evaluate(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: eris.Errorf("batch: evaluation of %s panicked: %v", bid.ID, r)}
		}
	}()
	p, err := a.eval.Evaluate(ctx, bid, project)
	return outcome{profile: p, err: err}
}

// Market summarizes the full bid list. An empty list reports zero for the
// mean, min and max.
func Market(bids []model.ContractorBid, analyzed, failed int) model.MarketAnalysis {
	m := model.MarketAnalysis{
		TotalContractors:    len(bids),
		AnalyzedContractors: analyzed,
		FailedAnalyses:      failed,
	}
	if len(bids) == 0 {
		return m
	}
	values := amounts(bids)
	m.AverageBid = Mean(values)
	m.MinBid, m.MaxBid = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		m.MinBid = math.Min(m.MinBid, v)
		m.MaxBid = math.Max(m.MaxBid, v)
	}
	return m
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func amounts(bids []model.ContractorBid) []float64 {
	return model.EvaluationRequest{Bids: bids}.BidAmounts()
}
