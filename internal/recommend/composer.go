// Package recommend phrases the ranked contractors as a short recommendation.
package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/llm"
	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/monitoring"
	"github.com/sells-group/bid-evaluator/internal/resilience"
)

// NoContractorsMessage is returned when no contractor could be analyzed.
const NoContractorsMessage = "I'm sorry, but I was unable to analyze any of the contractor bids. " +
	"Please check the bid details and try again."

// SystemPrompt frames every recommendation request.
const SystemPrompt = "You are a construction advisor helping a homeowner choose between contractor bids " +
	"for an insurance-funded repair. Be concise, concrete and conversational."

// Sources recorded in metrics.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
	SourceEmpty     = "empty"
)

const topN = 3

// Composer builds the recommendation text.
type Composer struct {
	gen     llm.Generator
	timeout time.Duration
	metrics *monitoring.Metrics
	breaker *resilience.CircuitBreaker
}

// Option configures a Composer.
type Option func(*Composer)

// WithBreaker guards generator calls with cb. While the circuit is open the
// composer answers with the fallback without calling the generator.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Composer) { c.breaker = cb }
}

// NewComposer returns a Composer. gen may be nil, in which case every
// recommendation is the deterministic fallback. timeout bounds the generator
// call; zero leaves only the caller's deadline.
func NewComposer(gen llm.Generator, timeout time.Duration, metrics *monitoring.Metrics, opts ...Option) *Composer {
	c := &Composer{gen: gen, timeout: timeout, metrics: metrics}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose returns the recommendation for ranked, which must already be sorted
// best first. It never fails: generator errors or empty output fall back to a
// one-line summary of the top contractor.
func (c *Composer) Compose(ctx context.Context, project model.ProjectDetails, market model.MarketAnalysis, ranked []model.ContractorProfile) string {
	if len(ranked) == 0 {
		c.metrics.ObserveRecommendation(SourceEmpty)
		return NoContractorsMessage
	}
	if c.gen == nil {
		c.metrics.ObserveRecommendation(SourceFallback)
		return Fallback(ranked[0])
	}

	genCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.guarded(genCtx, BuildPrompt(project, market, ranked))
	if err != nil {
		fields := []zap.Field{
			zap.String("generator", c.gen.Name()),
			zap.String("error_class", resilience.Classify(err)),
			zap.Error(err),
		}
		if c.breaker != nil {
			failures, state := c.breaker.Counters()
			fields = append(fields, zap.Int("consecutive_failures", failures), zap.Stringer("circuit", state))
		}
		zap.L().Warn("recommend: generator failed, using fallback", fields...)
		c.metrics.ObserveRecommendation(SourceFallback)
		return Fallback(ranked[0])
	}
	c.metrics.ObserveRecommendation(SourceGenerated)
	return text
}

func (c *Composer) guarded(ctx context.Context, prompt string) (string, error) {
	if c.breaker == nil {
		return c.generate(ctx, prompt)
	}
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (string, error) {
		return c.generate(ctx, prompt)
	})
}

func (c *Composer) generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("recommend: generator panicked: %v", r)
		}
	}()
	text, err = c.gen.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyOutput
	}
	return strings.TrimSpace(text), err
}

// Fallback is the deterministic recommendation naming the top contractor.
func Fallback(top model.ContractorProfile) string {
	return fmt.Sprintf("Based on our analysis, %s appears to be the strongest choice with an overall score of %.2f.",
		top.DisplayName(), top.OverallScore)
}

// BuildPrompt assembles the project, market and top contractor briefs.
func BuildPrompt(project model.ProjectDetails, market model.MarketAnalysis, ranked []model.ContractorProfile) string {
	var sb strings.Builder

	sb.WriteString("PROJECT\n")
	fmt.Fprintf(&sb, "Description: %s\n", project.Description)
	writeOptional(&sb, "Type", project.ProjectType)
	writeOptional(&sb, "Location", project.Location)
	writeOptional(&sb, "Timeline", project.Timeline)
	writeOptional(&sb, "Size", project.Size)
	writeOptional(&sb, "Urgency", project.Urgency)
	if project.TargetPrice != nil {
		fmt.Fprintf(&sb, "Target price: $%.0f\n", *project.TargetPrice)
	}

	sb.WriteString("\nMARKET\n")
	fmt.Fprintf(&sb, "Bids: %d (analyzed %d)\n", market.TotalContractors, market.AnalyzedContractors)
	fmt.Fprintf(&sb, "Average: $%.0f, range $%.0f to $%.0f\n", market.AverageBid, market.MinBid, market.MaxBid)

	n := min(topN, len(ranked))
	fmt.Fprintf(&sb, "\nTOP %d CONTRACTORS\n", n)
	for i, p := range ranked[:n] {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, brief(p))
	}

	sb.WriteString("\nWrite a recommendation under 150 words. Name your top pick and why, ")
	sb.WriteString("flag any risks you see, and suggest two or three questions the homeowner should ask before signing.")
	return sb.String()
}

func brief(p model.ContractorProfile) string {
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	add("%s", p.DisplayName())
	add("Bid: $%.0f (pricing competitiveness %.2f)", p.BidAmount, p.PricingCompetitiveness)
	add("Overall score: %.2f (confidence %.2f)", p.OverallScore, p.ConfidenceScore)
	if p.Rating != nil {
		reviews := 0
		if p.ReviewCount != nil {
			reviews = *p.ReviewCount
		}
		add("Rating: %.1f from %d reviews", *p.Rating, reviews)
	}
	if p.YearsInBusiness != nil {
		add("Years in business: %d", *p.YearsInBusiness)
	}
	if len(p.Specialties) > 0 {
		add("Specialties: %s", strings.Join(p.Specialties, ", "))
	}
	add("License verified: %s, insurance verified: %s", yesNo(p.LicenseVerified), yesNo(p.InsuranceVerified))
	if p.AccreditationGrade != "" {
		add("BBB grade: %s", p.AccreditationGrade)
	}
	if len(p.GreenFlags) > 0 {
		add("Strengths: %s", strings.Join(p.GreenFlags, "; "))
	}
	if len(p.RedFlags) > 0 {
		add("Concerns: %s", strings.Join(p.RedFlags, "; "))
	}
	return strings.Join(lines, "\n   ")
}

func writeOptional(sb *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(sb, "%s: %s\n", label, value)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
