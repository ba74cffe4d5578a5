package evidence

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/bid-evaluator/internal/scrape"
	"github.com/sells-group/bid-evaluator/pkg/google"
	"github.com/sells-group/bid-evaluator/pkg/jina"
	"github.com/sells-group/bid-evaluator/pkg/perplexity"
)

// Deps are the clients and shared guards the adapters draw on. Any client
// may be nil; the adapter that needs it then degrades to its fallback or to
// a no-op.
type Deps struct {
	Scraper        scrape.Scraper
	WebsiteTimeout time.Duration
	Keywords       *Keywords

	Places     google.Client
	Jina       jina.Client
	Perplexity perplexity.Client

	// Limiter paces directory lookups across all concurrent evaluations. It
	// only delays calls; every lookup is still attempted.
	Limiter *rate.Limiter

	// ExtendedSources turns on the accreditation, review and license
	// adapters. When false they stay registered as no-ops.
	ExtendedSources bool
}

// DefaultAdapters returns the registered evidence sources in merge order:
// website, business directory, accreditation, review platforms, license.
func DefaultAdapters(d Deps) []Adapter {
	if d.Keywords == nil {
		d.Keywords = DefaultKeywords()
	}
	if d.Scraper == nil {
		d.Scraper = scrape.NewLocalScraper()
	}

	var (
		bbbSearch     jina.Client
		licenseSearch jina.Client
		reviews       perplexity.Client
	)
	if d.ExtendedSources {
		bbbSearch, licenseSearch, reviews = d.Jina, d.Jina, d.Perplexity
	}

	return []Adapter{
		NewWebsiteAdapter(d.Scraper, d.Keywords, d.WebsiteTimeout).Adapter(),
		NewDirectoryAdapter(DirectoryConfig{
			Places:   d.Places,
			Search:   d.Jina,
			Limiter:  d.Limiter,
			Keywords: d.Keywords,
		}).Adapter(),
		NewAccreditationAdapter(bbbSearch).Adapter(),
		NewReviewsAdapter(reviews).Adapter(),
		NewCredentialsAdapter(licenseSearch).Adapter(),
	}
}
