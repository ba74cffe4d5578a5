package evidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/pkg/google"
	"github.com/sells-group/bid-evaluator/pkg/jina"
)

// Rating thresholds for directory flags.
const (
	HighRatingThreshold = 4.5
	LowRatingThreshold  = 3.5

	maxComplaintFlags = 2
)

// DirectoryConfig wires the business-directory adapter. Places takes
// precedence; Search is the fallback when no Places key is configured.
type DirectoryConfig struct {
	Places   google.Client
	Search   jina.Client
	Limiter  *rate.Limiter
	Keywords *Keywords
}

// DirectoryAdapter looks a contractor up in a business directory.
type DirectoryAdapter struct {
	cfg DirectoryConfig
}

// NewDirectoryAdapter creates a DirectoryAdapter.
func NewDirectoryAdapter(cfg DirectoryConfig) *DirectoryAdapter {
	if cfg.Keywords == nil {
		cfg.Keywords = DefaultKeywords()
	}
	return &DirectoryAdapter{cfg: cfg}
}

// Adapter exposes the directory source for registration.
func (d *DirectoryAdapter) Adapter() Adapter {
	return Adapter{Name: "business_directory", Enrich: d.Enrich}
}

// Enrich implements EnrichFunc.
func (d *DirectoryAdapter) Enrich(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings) {
	switch {
	case d.cfg.Places != nil:
		d.enrichFromPlaces(ctx, bid, project, f)
	case d.cfg.Search != nil:
		d.enrichFromSearch(ctx, bid, project, f)
	default:
		zap.L().Debug("evidence: no directory credentials configured", zap.String("contractor_id", bid.ID))
		f.Skip("no directory credentials")
	}
}

func (d *DirectoryAdapter) wait(ctx context.Context) error {
	if d.cfg.Limiter == nil {
		return nil
	}
	return d.cfg.Limiter.Wait(ctx)
}

func (d *DirectoryAdapter) enrichFromPlaces(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings) {
	query := joinNonEmpty(bid.Name, bid.CompanyName, project.Location)
	if err := d.wait(ctx); err != nil {
		f.Fail(eris.Wrap(err, "directory: rate limit wait"))
		return
	}

	resp, err := d.cfg.Places.TextSearch(ctx, query)
	if err != nil {
		zap.L().Warn("evidence: places lookup failed",
			zap.String("contractor_id", bid.ID),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		f.Fail(eris.Wrap(err, "directory: places text search"))
		return
	}
	if len(resp.Places) == 0 {
		f.Skip("no places match")
		return
	}

	top := resp.Places[0]
	if top.HasRating() {
		rating := top.Rating
		count := top.UserRatingCount
		f.Rating = &rating
		f.ReviewCount = &count
		switch {
		case rating >= HighRatingThreshold:
			f.AddGreenFlag(fmt.Sprintf("High Google rating (%.1f from %d reviews)", rating, count))
		case rating < LowRatingThreshold:
			f.AddRedFlag(fmt.Sprintf("Low Google rating (%.1f from %d reviews)", rating, count))
		}
	}
	f.AddSource(model.SourcePlaces)
}

// enrichFromSearch is the keyless path: a plain web search that can only
// surface complaint mentions. It never sets rating or review count.
func (d *DirectoryAdapter) enrichFromSearch(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings) {
	query := joinNonEmpty(quoted(bid.DisplayName()), project.Location, "contractor reviews")
	if err := d.wait(ctx); err != nil {
		f.Fail(eris.Wrap(err, "directory: rate limit wait"))
		return
	}

	resp, err := d.cfg.Search.Search(ctx, query)
	if err != nil {
		zap.L().Warn("evidence: web search failed",
			zap.String("contractor_id", bid.ID),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		f.Fail(eris.Wrap(err, "directory: web search"))
		return
	}
	if len(resp.Data) == 0 {
		f.Skip("no search results")
		return
	}

	name := strings.ToLower(bid.DisplayName())
	var seen []string
	for _, r := range resp.Data {
		text := r.Title + " " + r.Description + " " + r.Content
		if name != "" && !strings.Contains(strings.ToLower(text), name) {
			continue
		}
		for _, word := range d.cfg.Keywords.MatchComplaints(text) {
			if len(seen) >= maxComplaintFlags {
				break
			}
			before := len(seen)
			seen = appendUnique(seen, word)
			if len(seen) > before {
				f.AddRedFlag(fmt.Sprintf("Web search mentions %q alongside the company name", word))
			}
		}
	}
	f.AddSource(model.SourceWebSearch)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return `"` + s + `"`
}
