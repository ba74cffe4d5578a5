// Package scrape fetches a single contractor web page as plain text, either
// directly over HTTP or through a hosted reader (Jina, Firecrawl).
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/pkg/firecrawl"
	"github.com/sells-group/bid-evaluator/pkg/jina"
)

// Page is the text content of one fetched URL.
type Page struct {
	URL        string
	Title      string
	Content    string
	StatusCode int
}

// Result holds a scraped page with the name of the scraper that produced it.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content. One call is one
// attempt.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
}

// Fetcher kinds accepted by New.
const (
	KindLocal     = "local"
	KindJina      = "jina"
	KindFirecrawl = "firecrawl"
)

// Deps carries the optional hosted-reader clients New may select.
type Deps struct {
	Jina      jina.Client
	Firecrawl firecrawl.Client
}

// New returns the scraper for kind. A hosted kind without its client falls
// back to the local scraper with a warning; an unknown kind is an error.
func New(kind string, deps Deps) (Scraper, error) {
	switch kind {
	case "", KindLocal:
		return NewLocalScraper(), nil
	case KindJina:
		if deps.Jina == nil {
			zap.L().Warn("scrape: jina fetcher selected without api key, using local")
			return NewLocalScraper(), nil
		}
		return NewJinaAdapter(deps.Jina), nil
	case KindFirecrawl:
		if deps.Firecrawl == nil {
			zap.L().Warn("scrape: firecrawl fetcher selected without api key, using local")
			return NewLocalScraper(), nil
		}
		return NewFirecrawlAdapter(deps.Firecrawl), nil
	default:
		return nil, eris.Errorf("scrape: unknown fetcher %q", kind)
	}
}
