// Package profile builds one contractor's profile by running every evidence
// adapter concurrently and scoring the merged result.
package profile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bid-evaluator/internal/evidence"
	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/monitoring"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/internal/scorer"
)

// Builder evaluates a single bid against the registered adapters.
type Builder struct {
	adapters []evidence.Adapter
	metrics  *monitoring.Metrics
}

// NewBuilder returns a Builder over adapters, merged in the given order.
// metrics may be nil.
func NewBuilder(adapters []evidence.Adapter, metrics *monitoring.Metrics) *Builder {
	return &Builder{adapters: adapters, metrics: metrics}
}

// Adapters returns the registered adapter names in merge order.
func (b *Builder) Adapters() []string {
	names := make([]string, len(b.adapters))
	for i, a := range b.adapters {
		names[i] = a.Name
	}
	return names
}

// Evaluate gathers evidence for bid and returns its scored profile. Adapter
// failures, skips and panics never fail the evaluation. When ctx ends while
// adapters are still running, those adapters contribute nothing and the
// profile is scored on what has settled. An error is returned only when ctx
// is already done on entry.
func (b *Builder) Evaluate(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails) (*model.ContractorProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "profile: evaluate %s", bid.ID)
	}

	log := zap.L().With(
		zap.String("contractor_id", bid.ID),
		zap.String("contractor", bid.DisplayName()),
	)

	findings := make([]*evidence.Findings, len(b.adapters))
	finished := make(chan int, len(b.adapters))

	g := new(errgroup.Group)
	for i, a := range b.adapters {
		g.Go(func() error {
			findings[i] = b.runAdapter(ctx, a, bid, project, log)
			finished <- i
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(finished)
	}()

	settled := make([]bool, len(b.adapters))
collect:
	for {
		select {
		case i, ok := <-finished:
			if !ok {
				break collect
			}
			settled[i] = true
		case <-ctx.Done():
			log.Warn("profile: deadline reached with adapters still running",
				zap.Strings("pending", b.pending(settled)),
				zap.Error(ctx.Err()),
			)
			break collect
		}
	}

	p := model.NewContractorProfile(bid)
	for i := range b.adapters {
		if settled[i] {
			findings[i].ApplyTo(p)
		}
	}
	scorer.Finalize(p, project.ProjectType)

	log.Debug("profile: evaluated",
		zap.Float64("overall_score", p.OverallScore),
		zap.Float64("confidence", p.ConfidenceScore),
		zap.Strings("sources", p.DataSources),
	)
	return p, nil
}

// runAdapter runs one adapter on a private Findings. A panic is recovered and
// reported as a failure with none of the adapter's fields kept.
func (b *Builder) runAdapter(ctx context.Context, a evidence.Adapter, bid model.ContractorBid, project model.ProjectDetails, log *zap.Logger) (f *evidence.Findings) {
	start := time.Now()
	f = &evidence.Findings{}
	outcome := evidence.OutcomeOK

	defer func() {
		if r := recover(); r != nil {
			f = &evidence.Findings{}
			f.Fail(eris.Errorf("adapter %s panicked: %v", a.Name, r))
			outcome = evidence.OutcomePanic
		}
		b.metrics.ObserveAdapter(a.Name, outcome, time.Since(start))
		logOutcome(log, a.Name, outcome, f, time.Since(start))
	}()

	a.Enrich(ctx, bid, project, f)
	outcome = f.Outcome()
	return f
}

func logOutcome(log *zap.Logger, adapter, outcome string, f *evidence.Findings, d time.Duration) {
	fields := []zap.Field{
		zap.String("adapter", adapter),
		zap.String("outcome", outcome),
		zap.Duration("duration", d),
	}
	switch outcome {
	case evidence.OutcomeFailed, evidence.OutcomePanic:
		log.Warn("profile: adapter failed", append(fields,
			zap.String("error_class", resilience.Classify(f.Err())),
			zap.Error(f.Err()),
		)...)
	case evidence.OutcomeSkipped:
		log.Debug("profile: adapter skipped", append(fields, zap.String("reason", f.SkipReason()))...)
	default:
		log.Debug("profile: adapter finished", append(fields, zap.Strings("sources", f.Sources))...)
	}
}

func (b *Builder) pending(settled []bool) []string {
	var out []string
	for i, ok := range settled {
		if !ok {
			out = append(out, b.adapters[i].Name)
		}
	}
	return out
}
