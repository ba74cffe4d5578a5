// Package pipeline is the entry point of one evaluation request: it ranks the
// bids, composes the recommendation and records the run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/monitoring"
	"github.com/sells-group/bid-evaluator/internal/store"
)

// DefaultTimeout bounds one evaluation when no timeout is configured.
const DefaultTimeout = 90 * time.Second

// DefaultAnalysisDepth is reported when the request names none.
const DefaultAnalysisDepth = "standard"

const storeWriteTimeout = 5 * time.Second

// Analyzer ranks the bids of a request. *batch.Analyzer implements it.
type Analyzer interface {
	AnalyzeAll(ctx context.Context, project model.ProjectDetails, bids []model.ContractorBid) ([]model.ContractorProfile, model.MarketAnalysis)
}

// Composer phrases the ranking. *recommend.Composer implements it.
type Composer interface {
	Compose(ctx context.Context, project model.ProjectDetails, market model.MarketAnalysis, ranked []model.ContractorProfile) string
}

// Pipeline runs evaluation requests.
type Pipeline struct {
	analyzer Analyzer
	composer Composer
	store    store.Store
	metrics  *monitoring.Metrics
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore records every run in st. Store failures are logged only.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithMetrics records evaluation metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTimeout sets the evidence-gathering deadline of one evaluation.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a Pipeline.
func New(analyzer Analyzer, composer Composer, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer: analyzer,
		composer: composer,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run evaluates req. It always returns a well-formed result: any unexpected
// failure yields a degraded result with no contractors and every bid counted
// as failed.
func (p *Pipeline) Run(ctx context.Context, req model.EvaluationRequest) *model.EvaluationResult {
	start := p.now()
	requestID := uuid.New().String()
	log := zap.L().With(zap.String("request_id", requestID), zap.Int("bids", len(req.Bids)))
	log.Info("pipeline: evaluation started")

	p.recordStart(ctx, requestID, req, log)

	result, err := p.evaluate(ctx, req)
	status := model.RunStatusComplete
	if err != nil {
		log.Error("pipeline: evaluation degraded", zap.Error(err))
		result = Degraded(req)
		status = model.RunStatusDegraded
	}

	elapsed := p.now().Sub(start)
	result.Metadata.RequestID = requestID
	result.Metadata.ProcessingTimeSeconds = elapsed.Seconds()
	result.Metadata.AnalysisDepth = analysisDepth(req)
	result.Metadata.CompletedAt = p.now().UTC()

	p.recordFinish(ctx, requestID, status, result, log)
	p.metrics.ObserveEvaluation(string(status), elapsed)

	log.Info("pipeline: evaluation finished",
		zap.String("status", string(status)),
		zap.Int("analyzed", result.Market.AnalyzedContractors),
		zap.Int("failed", result.Market.FailedAnalyses),
		zap.Duration("elapsed", elapsed),
	)
	return result
}

func (p *Pipeline) evaluate(ctx context.Context, req model.EvaluationRequest) (result *model.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, eris.Errorf("pipeline: recovered panic: %v", r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	profiles, market := p.analyzer.AnalyzeAll(runCtx, req.Project, req.Bids)
	cancel()

	if profiles == nil {
		profiles = []model.ContractorProfile{}
	}
	recommendation := p.composer.Compose(ctx, req.Project, market, profiles)

	return &model.EvaluationResult{
		Recommendation: recommendation,
		Contractors:    profiles,
		Market:         market,
	}, nil
}

// Degraded is the result reported when an evaluation could not complete.
func Degraded(req model.EvaluationRequest) *model.EvaluationResult {
	return &model.EvaluationResult{
		Recommendation: "",
		Contractors:    []model.ContractorProfile{},
		Market: model.MarketAnalysis{
			TotalContractors: len(req.Bids),
			FailedAnalyses:   len(req.Bids),
		},
		Metadata: model.EvaluationMetadata{Degraded: true},
	}
}

func analysisDepth(req model.EvaluationRequest) string {
	if req.AnalysisDepth == "" {
		return DefaultAnalysisDepth
	}
	return req.AnalysisDepth
}

// storeContext detaches store writes from request cancellation so a run that
// hit its deadline is still recorded.
func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
}

func (p *Pipeline) recordStart(ctx context.Context, id string, req model.EvaluationRequest, log *zap.Logger) {
	if p.store == nil {
		return
	}
	sctx, cancel := storeContext(ctx)
	defer cancel()
	if _, err := p.store.CreateRun(sctx, id, req); err != nil {
		log.Warn("pipeline: failed to record run", zap.Error(err))
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, id string, status model.RunStatus, result *model.EvaluationResult, log *zap.Logger) {
	if p.store == nil {
		return
	}
	sctx, cancel := storeContext(ctx)
	defer cancel()
	if err := p.store.FinishRun(sctx, id, status, result); err != nil {
		log.Warn("pipeline: failed to finish run", zap.Error(err))
	}
}
