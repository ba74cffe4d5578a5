package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator generates text with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	opts   Options
}

// NewGemini creates a Gemini-backed generator. baseURL overrides the API
// endpoint and is empty in production.
func NewGemini(ctx context.Context, apiKey, model, baseURL string, opts Options) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, eris.New("llm: gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create genai client")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	return &GeminiGenerator{client: client, model: model, opts: opts}, nil
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string { return ProviderGemini + "/" + g.model }

// Generate implements Generator and returns the joined text parts of every
// candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.opts.MaxTokens),
		Temperature:     genai.Ptr(float32(g.opts.Temperature)),
	}
	if g.opts.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.opts.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", eris.Wrap(err, "llm: gemini generate")
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text)
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}
