package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/codequery-mcp/internal/llm"
	"github.com/dshills/codequery-mcp/internal/retry"
	"github.com/dshills/codequery-mcp/pkg/types"
)

// callTimeout bounds one boundary-extraction round trip so a stalled model
// call cannot hang an indexing worker.
const callTimeout = 60 * time.Second

// Extractor asks the reasoning model for function boundaries in a file.
type Extractor struct {
	client llm.Client
	policy retry.Policy
}

// New creates an Extractor. One failed model round trip is retried once;
// after that the file degrades to file-only chunking.
func New(client llm.Client) *Extractor {
	return &Extractor{
		client: client,
		policy: retry.Attempts(2),
	}
}

// ExtractFunctions returns the ordered function boundaries for a file,
// clipped to [1, lineCount]. It never fails the indexing run: on unusable
// model output it returns no boundaries and a nil error so the caller still
// indexes the file chunk. The returned error is non-nil only for context
// cancellation.
func (e *Extractor) ExtractFunctions(ctx context.Context, path, content string) ([]types.FunctionBoundary, error) {
	if content == "" {
		return nil, nil
	}

	prompt := buildPrompt(path, content)
	boundaries, err := retry.Do(ctx, e.policy, func() ([]types.FunctionBoundary, error) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		raw, err := e.client.GenerateJSON(callCtx, prompt)
		if err != nil {
			return nil, err
		}
		return parseBoundaries(raw)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Degraded mode: the file still gets its file-level chunk.
		return nil, nil
	}

	lineCount := len(types.SplitLines(content))
	kept := boundaries[:0]
	for _, b := range boundaries {
		if b.Clip(lineCount) {
			kept = append(kept, b)
		}
	}
	return kept, nil
}

// parseBoundaries decodes the model's JSON array of function descriptors.
// Descriptors with an empty name are dropped; range checks happen later
// against the actual file length.
func parseBoundaries(raw json.RawMessage) ([]types.FunctionBoundary, error) {
	var boundaries []types.FunctionBoundary
	if err := json.Unmarshal(raw, &boundaries); err != nil {
		return nil, fmt.Errorf("decode function boundaries: %w", err)
	}
	kept := boundaries[:0]
	for _, b := range boundaries {
		if b.Name == "" {
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}
