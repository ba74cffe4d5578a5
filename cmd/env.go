package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bid-evaluator/internal/batch"
	"github.com/sells-group/bid-evaluator/internal/config"
	"github.com/sells-group/bid-evaluator/internal/evidence"
	"github.com/sells-group/bid-evaluator/internal/llm"
	"github.com/sells-group/bid-evaluator/internal/monitoring"
	"github.com/sells-group/bid-evaluator/internal/pipeline"
	"github.com/sells-group/bid-evaluator/internal/profile"
	"github.com/sells-group/bid-evaluator/internal/recommend"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/internal/scrape"
	"github.com/sells-group/bid-evaluator/internal/store"
	"github.com/sells-group/bid-evaluator/pkg/firecrawl"
	"github.com/sells-group/bid-evaluator/pkg/google"
	"github.com/sells-group/bid-evaluator/pkg/jina"
	"github.com/sells-group/bid-evaluator/pkg/perplexity"
)

// evalEnv holds everything the evaluate and serve commands need.
type evalEnv struct {
	Store    store.Store // nil when run history is disabled
	Pipeline *pipeline.Pipeline
	Metrics  *monitoring.Metrics
	Builder  *profile.Builder
	Breakers *resilience.ServiceBreakers
}

// Close releases resources held by the environment.
func (e *evalEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured run store. It returns nil when the driver
// is none.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver: c.Store.Driver,
		DSN:    c.Store.DatabaseURL,
		Pool:   &store.PoolConfig{MaxConns: c.Store.MaxConns, MinConns: c.Store.MinConns},
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// buildEnv wires clients, adapters and the pipeline from c. Metrics register
// on reg. Callers should defer env.Close().
func buildEnv(ctx context.Context, c *config.Config, reg prometheus.Registerer) (*evalEnv, error) {
	keywords, err := loadKeywords(c.Evidence.KeywordsFile)
	if err != nil {
		return nil, err
	}

	breakers := resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold:  c.Resilience.FailureThreshold,
		ResetTimeout:      time.Duration(c.Resilience.ResetTimeoutSecs) * time.Second,
		HalfOpenMaxProbes: 1,
	})

	var (
		placesClient     google.Client
		jinaClient       jina.Client
		firecrawlClient  firecrawl.Client
		perplexityClient perplexity.Client
	)
	if c.Google.Key != "" {
		placesClient = google.NewClient(c.Google.Key, google.WithBaseURL(c.Google.BaseURL))
	} else {
		zap.L().Debug("BIDEVAL_GOOGLE_KEY not set, directory lookups use web search")
	}
	if c.Jina.Key != "" {
		jinaOpts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL)}
		if c.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
		}
		jinaClient = jina.NewClient(c.Jina.Key, jinaOpts...)
	}
	if c.Firecrawl.Key != "" {
		firecrawlClient = firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
	}
	if c.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
	}

	scraper, err := scrape.New(c.Website.Fetcher, scrape.Deps{
		Jina:      jinaClient,
		Firecrawl: firecrawlClient,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if c.Evidence.DirectoryRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.Evidence.DirectoryRPS), max(c.Evidence.DirectoryBurst, 1))
	}

	metrics := monitoring.NewMetrics(reg)

	builder := profile.NewBuilder(evidence.DefaultAdapters(evidence.Deps{
		Scraper:         scraper,
		WebsiteTimeout:  time.Duration(c.Website.TimeoutSecs) * time.Second,
		Keywords:        keywords,
		Places:          placesClient,
		Jina:            jinaClient,
		Perplexity:      perplexityClient,
		Limiter:         limiter,
		ExtendedSources: c.Evidence.ExtendedSources,
	}), metrics)
	analyzer := batch.NewAnalyzer(builder, c.Batch.MaxConcurrent, metrics)

	gen, err := llm.New(ctx, llm.Settings{
		Provider: c.LLM.Provider,
		Options: llm.Options{
			System:      recommend.SystemPrompt,
			MaxTokens:   c.LLM.MaxTokens,
			Temperature: c.LLM.Temperature,
		},
		AnthropicKey:     c.Anthropic.Key,
		AnthropicModel:   c.Anthropic.Model,
		AnthropicBaseURL: c.Anthropic.BaseURL,
		GeminiKey:        c.Gemini.Key,
		GeminiModel:      c.Gemini.Model,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init recommendation generator")
	}
	composer := recommend.NewComposer(gen, time.Duration(c.LLM.TimeoutSecs)*time.Second, metrics,
		recommend.WithBreaker(breakers.Get("llm")))

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithMetrics(metrics),
		pipeline.WithTimeout(time.Duration(c.Evaluation.TimeoutSecs) * time.Second),
	}
	if st != nil {
		opts = append(opts, pipeline.WithStore(st))
	}

	zap.L().Info("evaluation environment ready",
		zap.Strings("adapters", builder.Adapters()),
		zap.String("fetcher", scraper.Name()),
		zap.Bool("extended_sources", c.Evidence.ExtendedSources),
		zap.Bool("generator", gen != nil),
		zap.String("store", c.Store.Driver),
	)

	return &evalEnv{
		Store:    st,
		Pipeline: pipeline.New(analyzer, composer, opts...),
		Metrics:  metrics,
		Builder:  builder,
		Breakers: breakers,
	}, nil
}

// loadKeywords reads the specialty table from path, or returns the built-in
// table when path is empty.
func loadKeywords(path string) (*evidence.Keywords, error) {
	if path == "" {
		return evidence.DefaultKeywords(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read keywords file %s", path)
	}
	kw, err := evidence.ParseKeywords(data)
	if err != nil {
		return nil, eris.Wrapf(err, "parse keywords file %s", path)
	}
	return kw, nil
}
