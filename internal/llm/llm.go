// Package llm provides the text generators behind the recommendation
// composer.
package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/pkg/anthropic"
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider and model in logs.
	Name() string
}

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// ErrEmptyOutput is returned when a provider answers with no text.
var ErrEmptyOutput = eris.New("llm: empty output")

// Options tune a single generation.
type Options struct {
	System      string
	MaxTokens   int
	Temperature float64
}

// Settings selects a provider and carries its credentials.
type Settings struct {
	Provider string
	Options  Options

	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string
}

// New returns the generator for s.Provider. It returns nil, without error,
// when the provider is none or its key is missing; callers then use their
// deterministic fallback.
func New(ctx context.Context, s Settings) (Generator, error) {
	switch s.Provider {
	case "", ProviderNone:
		return nil, nil
	case ProviderAnthropic:
		if s.AnthropicKey == "" {
			zap.L().Warn("llm: anthropic selected without api key, recommendations use the fallback")
			return nil, nil
		}
		return NewAnthropic(anthropic.NewClient(s.AnthropicKey, anthropicOptions(s.AnthropicBaseURL)...), s.AnthropicModel, s.Options), nil
	case ProviderGemini:
		if s.GeminiKey == "" {
			zap.L().Warn("llm: gemini selected without api key, recommendations use the fallback")
			return nil, nil
		}
		g, err := NewGemini(ctx, s.GeminiKey, s.GeminiModel, s.GeminiBaseURL, s.Options)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", s.Provider)
	}
}
