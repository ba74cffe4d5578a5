package evidence

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/pkg/jina"
)

var (
	bbbGradeRe      = regexp.MustCompile(`(?i)BBB\s+Rating:?\s*(A\+|A-|A|B\+|B-|B|C\+|C-|C|D\+|D-|D|F)(?:[^A-Za-z+-]|$)`)
	notAccreditedRe = regexp.MustCompile(`(?i)not\s+(?:a\s+)?BBB\s+accredited`)
	accreditedRe    = regexp.MustCompile(`(?i)BBB\s+accredited`)
)

// AccreditationAdapter looks up a contractor's Better Business Bureau
// profile through a site-restricted web search. Without a search client it
// is a no-op.
type AccreditationAdapter struct {
	search jina.Client
}

// NewAccreditationAdapter creates an AccreditationAdapter; search may be nil.
func NewAccreditationAdapter(search jina.Client) *AccreditationAdapter {
	return &AccreditationAdapter{search: search}
}

// Adapter exposes the accreditation source for registration.
func (a *AccreditationAdapter) Adapter() Adapter {
	if a.search == nil {
		return Adapter{Name: model.SourceBBB, Enrich: noop("accreditation lookup disabled")}
	}
	return Adapter{Name: model.SourceBBB, Enrich: a.Enrich}
}

// Enrich implements EnrichFunc.
func (a *AccreditationAdapter) Enrich(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings) {
	query := joinNonEmpty(quoted(bid.DisplayName()), project.Location)
	resp, err := a.search.Search(ctx, query, jina.WithSiteFilter("bbb.org"))
	if err != nil {
		zap.L().Debug("evidence: bbb search failed",
			zap.String("contractor_id", bid.ID),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		f.Fail(eris.Wrap(err, "accreditation: bbb search"))
		return
	}

	name := strings.ToLower(bid.DisplayName())
	for _, r := range resp.Data {
		if !strings.Contains(strings.ToLower(r.URL), "bbb.org") {
			continue
		}
		text := r.Title + " " + r.Description + " " + r.Content
		if name != "" && !strings.Contains(strings.ToLower(text), name) {
			continue
		}

		grade, accredited := ParseBBBProfile(text)
		if grade == "" && !accredited {
			continue
		}
		f.AccreditationGrade = grade
		if accredited {
			f.AddGreenFlag("BBB accredited business")
		}
		if grade != "" && (strings.HasPrefix(grade, "D") || grade == "F") {
			f.AddRedFlag("Low BBB rating (" + grade + ")")
		}
		f.AddSource(model.SourceBBB)
		return
	}
	f.Skip("no bbb profile")
}

// ParseBBBProfile extracts the letter grade and accreditation status from
// BBB profile text.
func ParseBBBProfile(text string) (grade string, accredited bool) {
	if m := bbbGradeRe.FindStringSubmatch(text); m != nil {
		grade = strings.ToUpper(m[1])
	}
	accredited = accreditedRe.MatchString(text) && !notAccreditedRe.MatchString(text)
	return grade, accredited
}
