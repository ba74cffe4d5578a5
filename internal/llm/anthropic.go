package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-evaluator/pkg/anthropic"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicGenerator generates text with the Anthropic Messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	opts   Options
}

// NewAnthropic returns a generator over client. An empty model uses Haiku.
func NewAnthropic(client anthropic.Client, model string, opts Options) *AnthropicGenerator {
	if model == "" {
		model = defaultAnthropicModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	return &AnthropicGenerator{client: client, model: model, opts: opts}
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string { return ProviderAnthropic + "/" + g.model }

// Generate implements Generator and logs the token cost of the call.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temp := g.opts.Temperature
	req := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   int64(g.opts.MaxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}
	if g.opts.System != "" {
		req.System = []anthropic.SystemBlock{{Text: g.opts.System}}
	}

	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic generate")
	}
	resp.Usage.LogCost(g.model, "recommendation")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

func anthropicOptions(baseURL string) []option.RequestOption {
	if baseURL == "" {
		return nil
	}
	return []option.RequestOption{option.WithBaseURL(baseURL)}
}
