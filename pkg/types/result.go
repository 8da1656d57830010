package types

// SearchResult is one nearest-neighbor hit mapped back through the metadata
// store, ordered by ascending distance within a response.
type SearchResult struct {
	Path         string  `json:"file_path"`
	Tier         Tier    `json:"type"`
	FunctionName string  `json:"function_name,omitempty"`
	StartLine    int     `json:"start_line"`
	EndLine      int     `json:"end_line"`
	Content      string  `json:"content"`
	Distance     float64 `json:"distance"`
}

// Validate checks the result's structural invariants.
func (sr *SearchResult) Validate() error {
	if !sr.Tier.Valid() {
		return ErrInvalidTier
	}
	if sr.Path == "" {
		return ErrMissingFileInfo
	}
	if sr.Distance < 0 {
		return ErrInvalidDistance
	}
	return nil
}
