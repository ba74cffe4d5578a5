package evidence

import (
	"context"
	"errors"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/scrape"
	"github.com/sells-group/bid-evaluator/pkg/jina"
	"github.com/sells-group/bid-evaluator/pkg/perplexity"
)

type fakeScraper struct {
	page  scrape.Page
	err   error
	calls int
}

func (f *fakeScraper) Name() string { return "fake" }

func (f *fakeScraper) Scrape(_ context.Context, url string) (*scrape.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := f.page
	p.URL = url
	return &scrape.Result{Page: p, Source: "fake"}, nil
}

type fakeSearch struct {
	results []jina.SearchResult
	err     error
	queries []string
}

func (f *fakeSearch) Read(_ context.Context, _ string) (*jina.ReadResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeSearch) Search(_ context.Context, query string, _ ...jina.SearchOption) (*jina.SearchResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &jina.SearchResponse{Code: 200, Data: f.results}, nil
}

type fakePerplexity struct {
	reply string
	err   error
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, _ perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: f.reply}}},
	}, nil
}

var (
	acmeBid = model.ContractorBid{
		ID:             "c-1",
		Name:           "Jo Smith",
		CompanyName:    "Acme Roofing",
		BidAmount:      12000,
		CompanyWebsite: "https://acme-roofing.example",
		LicenseNumber:  "CCC1331234",
	}
	roofProject = model.ProjectDetails{
		Description: "Replace hail-damaged shingle roof",
		ProjectType: "roofing",
		Location:    "Tampa, FL",
	}
)
