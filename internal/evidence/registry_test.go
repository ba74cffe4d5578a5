package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/pkg/jina"
)

func adapterNames(adapters []Adapter) []string {
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name
	}
	return names
}

func TestDefaultAdapters_Order(t *testing.T) {
	adapters := DefaultAdapters(Deps{Scraper: &fakeScraper{}})

	assert.Equal(t, []string{
		model.SourceWebsite,
		"business_directory",
		model.SourceBBB,
		model.SourceReviewSites,
		model.SourceLicense,
	}, adapterNames(adapters))
}

func TestDefaultAdapters_ExtendedSourcesGate(t *testing.T) {
	search := &fakeSearch{results: []jina.SearchResult{
		{URL: "https://www.bbb.org/us/fl/tampa/profile/acme", Content: "Acme Roofing BBB Rating: A CCC1331234 active"},
	}}
	deps := Deps{Scraper: &fakeScraper{}, Jina: search, Perplexity: &fakePerplexity{reply: "- Solid work (Yelp)"}}

	run := func(adapters []Adapter) []string {
		var sources []string
		for _, a := range adapters[2:] {
			var f Findings
			a.Enrich(context.Background(), acmeBid, roofProject, &f)
			sources = append(sources, f.Sources...)
		}
		return sources
	}

	assert.Empty(t, run(DefaultAdapters(deps)))

	deps.ExtendedSources = true
	assert.Equal(t, []string{model.SourceBBB, model.SourceReviewSites, model.SourceLicense}, run(DefaultAdapters(deps)))
}
