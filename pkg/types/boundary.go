package types

// FunctionBoundary is one function location reported by the structure
// extractor. Boundaries are transient: produced once per file per indexing
// run and consumed by the chunker, never persisted themselves.
//
// Overlapping or duplicate boundaries are tolerated on purpose; each one
// still yields an independent function chunk.
type FunctionBoundary struct {
	Name      string `json:"function_name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Clip constrains the boundary to [1, maxLine]. It returns false when the
// boundary cannot be salvaged: an inverted range, a range entirely past the
// end of the file, or a file with no lines at all. Partially out-of-range
// boundaries are clipped rather than discarded.
func (b *FunctionBoundary) Clip(maxLine int) bool {
	if maxLine < 1 || b.StartLine > b.EndLine {
		return false
	}
	if b.StartLine > maxLine || b.EndLine < 1 {
		return false
	}
	if b.StartLine < 1 {
		b.StartLine = 1
	}
	if b.EndLine > maxLine {
		b.EndLine = maxLine
	}
	return true
}
