package evidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/pkg/perplexity"
)

const maxRecentReviews = 3

const reviewsPrompt = `Find up to %d recent customer reviews of the contractor %s%s on public review platforms (Yelp, Angi, HomeAdvisor, Houzz, Google).
Reply with one review per line, each line starting with "- " and containing a short quote or paraphrase followed by the platform in parentheses.
If you cannot find reviews for this specific business, reply with exactly NONE.`

// ReviewsAdapter collects recent review snippets through an online-search
// LLM. Without a client it is a no-op.
type ReviewsAdapter struct {
	client perplexity.Client
}

// NewReviewsAdapter creates a ReviewsAdapter; client may be nil.
func NewReviewsAdapter(client perplexity.Client) *ReviewsAdapter {
	return &ReviewsAdapter{client: client}
}

// Adapter exposes the review source for registration.
func (r *ReviewsAdapter) Adapter() Adapter {
	if r.client == nil {
		return Adapter{Name: model.SourceReviewSites, Enrich: noop("review lookup disabled")}
	}
	return Adapter{Name: model.SourceReviewSites, Enrich: r.Enrich}
}

// Enrich implements EnrichFunc.
func (r *ReviewsAdapter) Enrich(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings) {
	where := ""
	if project.Location != "" {
		where = " in " + project.Location
	}
	maxTokens := 400
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(reviewsPrompt, maxRecentReviews, quoted(bid.DisplayName()), where)},
		},
		MaxTokens: &maxTokens,
	}

	resp, err := r.client.ChatCompletion(ctx, req)
	if err != nil {
		zap.L().Debug("evidence: review lookup failed",
			zap.String("contractor_id", bid.ID),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		f.Fail(eris.Wrap(err, "reviews: chat completion"))
		return
	}

	snippets := ParseReviewSnippets(resp.Content(), maxRecentReviews)
	if len(snippets) == 0 {
		f.Skip("no reviews found")
		return
	}
	f.RecentReviews = snippets
	f.AddSource(model.SourceReviewSites)
}

// ParseReviewSnippets reads "- " prefixed lines, up to limit. A reply of
// NONE yields nothing.
func ParseReviewSnippets(text string, limit int) []string {
	if strings.EqualFold(strings.TrimSpace(text), "none") {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
			continue
		}
		snippet := strings.TrimSpace(line[2:])
		if snippet == "" {
			continue
		}
		out = append(out, snippet)
		if len(out) == limit {
			break
		}
	}
	return out
}
