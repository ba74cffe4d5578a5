package evidence

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/scrape"
)

// yearsPatterns are tried in order; the first pattern that matches wins.
var yearsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,4})\+?\s*years?\s+(?:of\s+)?experience`),
	regexp.MustCompile(`(?i)(\d{1,4})\+?\s*years?\s+in\s+business`),
	regexp.MustCompile(`(?i)established\s+(?:in\s+)?(\d{4})`),
	regexp.MustCompile(`(?i)since\s+(\d{4})`),
	regexp.MustCompile(`(?i)founded\s+(?:in\s+)?(\d{4})`),
}

// calendarYearFloor separates a calendar year from a literal year count.
const calendarYearFloor = 1900

// ParseYearsInBusiness extracts a years-in-business figure from page text.
// A captured number above 1900 is a calendar year and is converted to an age
// relative to now.
func ParseYearsInBusiness(text string, now time.Time) (int, bool) {
	for _, re := range yearsPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > calendarYearFloor {
			n = now.Year() - n
			if n < 0 {
				n = 0
			}
		}
		return n, true
	}
	return 0, false
}

// WebsiteAdapter fetches the contractor's own site once and mines it for
// tenure, specialties and self-reported credentials.
type WebsiteAdapter struct {
	scraper  scrape.Scraper
	keywords *Keywords
	timeout  time.Duration
	now      func() time.Time
}

// NewWebsiteAdapter creates a WebsiteAdapter. A zero timeout means 30s.
func NewWebsiteAdapter(s scrape.Scraper, kw *Keywords, timeout time.Duration) *WebsiteAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if kw == nil {
		kw = DefaultKeywords()
	}
	return &WebsiteAdapter{scraper: s, keywords: kw, timeout: timeout, now: time.Now}
}

// Adapter exposes the website source for registration.
func (w *WebsiteAdapter) Adapter() Adapter {
	return Adapter{Name: model.SourceWebsite, Enrich: w.Enrich}
}

// Enrich implements EnrichFunc.
func (w *WebsiteAdapter) Enrich(ctx context.Context, bid model.ContractorBid, _ model.ProjectDetails, f *Findings) {
	if bid.CompanyWebsite == "" {
		f.Skip("no website")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	res, err := w.scraper.Scrape(ctx, bid.CompanyWebsite)
	if err != nil {
		zap.L().Debug("evidence: website fetch failed",
			zap.String("contractor_id", bid.ID),
			zap.String("url", bid.CompanyWebsite),
			zap.String("scraper", w.scraper.Name()),
			zap.Error(err),
		)
		f.Fail(eris.Wrapf(err, "website: fetch %s", bid.CompanyWebsite))
		return
	}

	text := res.Page.Title + "\n" + res.Page.Content

	if years, ok := ParseYearsInBusiness(text, w.now()); ok {
		f.YearsInBusiness = &years
	}
	for _, label := range w.keywords.MatchSpecialties(text) {
		f.AddSpecialty(label)
	}
	for _, flag := range w.keywords.MatchCredentials(text) {
		f.AddGreenFlag(flag)
	}
	f.AddSource(model.SourceWebsite)
}
