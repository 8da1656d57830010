package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Common errors
var (
	ErrEmptyResponse = errors.New("llm: model returned an empty response")
	ErrInvalidJSON   = errors.New("llm: model response is not valid JSON")
)

// Client is the minimal reasoning-model surface the engine depends on. Both
// the structure extractor and the query agent prompt for JSON and parse the
// raw message themselves.
type Client interface {
	// GenerateJSON sends the prompt and returns the model's response as raw
	// JSON. Implementations request a JSON response MIME type but must not
	// assume the model honored it; callers validate.
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)

	// Model returns the model identifier in use.
	Model() string

	// Close releases any resources held by the client.
	Close() error
}

// StripFences removes a surrounding markdown code fence from a model
// response. Models occasionally wrap JSON in ```json ... ``` despite being
// asked for a bare JSON body.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
