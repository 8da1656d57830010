package types

import (
	"errors"
	"strings"
)

// Tier identifies which of the two retrieval scopes a chunk belongs to.
type Tier string

const (
	TierFile     Tier = "file"
	TierFunction Tier = "function"
)

// Valid reports whether the tier is one of the two known tiers.
func (t Tier) Valid() bool {
	return t == TierFile || t == TierFunction
}

// Chunk is a stored, retrievable unit of source text: either a whole file or
// one function body. ID is a per-tier monotone sequence number assigned when
// the chunk is appended to the metadata store; it is never reused. Chunks are
// immutable once created.
type Chunk struct {
	ID           int64
	Tier         Tier
	Path         string
	StartLine    int // 1-indexed, inclusive
	EndLine      int // 1-indexed, inclusive
	Content      string
	FunctionName string // empty for file-tier chunks
}

// Validate checks the chunk's structural invariants.
func (c *Chunk) Validate() error {
	if !c.Tier.Valid() {
		return ErrInvalidTier
	}
	if c.Path == "" {
		return errors.New("chunk path cannot be empty")
	}
	if c.StartLine < 1 || c.EndLine < 1 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	if c.Tier == TierFunction && c.FunctionName == "" {
		return errors.New("function chunk requires a function name")
	}
	return nil
}

// SplitLines splits source text into lines without dropping a trailing
// newline's empty final line, matching how line numbers are counted
// everywhere else in the engine.
func SplitLines(content string) []string {
	return strings.Split(content, "\n")
}

// SliceLines returns the inclusive 1-indexed line range [start, end] of
// content, joined with newlines. The range is assumed valid for the content.
func SliceLines(content string, start, end int) string {
	lines := SplitLines(content)
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
