package llm

import (
	"context"
	"encoding/json"
	"fmt"

	genai "google.golang.org/genai"
)

// DefaultModel is the reasoning model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini-backed client. The genai SDK reads
// GEMINI_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

// GenerateJSON asks for an application/json response and returns the model's
// text as raw JSON, with any stray markdown fences stripped.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	txt := StripFences(resp.Candidates[0].Content.Parts[0].Text)
	if !json.Valid([]byte(txt)) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(txt), nil
}

func (g *GeminiClient) Model() string { return g.model }
func (g *GeminiClient) Close() error  { return nil }
