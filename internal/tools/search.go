package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dshills/codequery-mcp/internal/embedder"
	"github.com/dshills/codequery-mcp/internal/storage"
	"github.com/dshills/codequery-mcp/pkg/types"
)

// Search result count bounds.
const (
	DefaultTopK = 5
	MaxTopK     = 20
)

// ErrNoIndex indicates no index has been published yet.
var ErrNoIndex = errors.New("no index published; run an index build first")

// SearchInput are the arguments of the search tool.
type SearchInput struct {
	Question string `json:"question"`
	Tier     string `json:"index_type"`
	TopK     int    `json:"top_k,omitempty"`
}

// SearchOutput wraps the ordered search results.
type SearchOutput struct {
	Results []types.SearchResult `json:"results"`
}

// Searcher embeds a question with the index-time model and performs exact
// nearest-neighbor search on one tier of a pinned snapshot. The snapshot is
// captured when the session starts and never changes underneath it: a
// rebuild publishing mid-session does not alter this session's results.
type Searcher struct {
	snap *storage.Snapshot
	emb  embedder.Embedder
}

// NewSearcher creates a Searcher over one pinned snapshot. A nil snapshot
// means nothing is published; every search reports ErrNoIndex.
func NewSearcher(snap *storage.Snapshot, emb embedder.Embedder) *Searcher {
	return &Searcher{snap: snap, emb: emb}
}

// Search runs one retrieval. The tier selector must be "file" or
// "function"; anything else is an invalid-argument error for the agent to
// observe. k is clamped to [1, MaxTopK], defaulting to DefaultTopK.
func (s *Searcher) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	if in.Question == "" {
		return nil, fmt.Errorf("%w: question cannot be empty", ErrInvalidArgument)
	}
	tier := types.Tier(in.Tier)
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: index_type must be %q or %q, got %q",
			ErrInvalidArgument, types.TierFile, types.TierFunction, in.Tier)
	}

	snap := s.snap
	if snap == nil {
		return nil, ErrNoIndex
	}
	if s.emb.Model() != snap.Manifest.Model {
		return nil, fmt.Errorf("query embedder %q does not match index model %q",
			s.emb.Model(), snap.Manifest.Model)
	}

	k := in.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	queryEmb, err := s.emb.Embed(ctx, in.Question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	index, err := snap.Index(tier)
	if err != nil {
		return nil, err
	}
	hits, err := index.Search(queryEmb.Vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := snap.Metadata().Get(ctx, tier, hit.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve hit %d: %w", hit.ID, err)
		}
		results = append(results, types.SearchResult{
			Path:         chunk.Path,
			Tier:         tier,
			FunctionName: chunk.FunctionName,
			StartLine:    chunk.StartLine,
			EndLine:      chunk.EndLine,
			Content:      chunk.Content,
			Distance:     hit.Distance,
		})
	}
	return &SearchOutput{Results: results}, nil
}

// SearchSpec describes the search tool to the model.
func SearchSpec() Spec {
	return Spec{
		Name:        NameSearch,
		Description: "Search the indexed codebase with semantic search. Use this to find relevant code from a natural language query.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query describing what code to find",
				},
				"index_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"file", "function"},
					"description": "Which tier to search: 'file' for whole-file overviews, 'function' for function-level detail",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return (1-20, default 5)",
					"default":     DefaultTopK,
				},
			},
			"required": []string{"question", "index_type"},
		},
	}
}

// RegisterSearch wires the searcher into a registry.
func RegisterSearch(r *Registry, s *Searcher) {
	r.Register(SearchSpec(), func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		var in SearchInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		out, err := s.Search(ctx, in)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
}
