package chunker

import (
	"github.com/dshills/codequery-mcp/pkg/types"
)

// Build creates the file chunk and function chunks for one source file.
// Boundaries are assumed already clipped to the file's line range by the
// extractor. Chunk IDs are zero here; the metadata store assigns per-tier
// sequence numbers at append time.
func Build(path, content string, boundaries []types.FunctionBoundary) []types.Chunk {
	lineCount := len(types.SplitLines(content))

	chunks := make([]types.Chunk, 0, 1+len(boundaries))
	chunks = append(chunks, types.Chunk{
		Tier:      types.TierFile,
		Path:      path,
		StartLine: 1,
		EndLine:   lineCount,
		Content:   content,
	})

	for _, b := range boundaries {
		chunks = append(chunks, types.Chunk{
			Tier:         types.TierFunction,
			Path:         path,
			StartLine:    b.StartLine,
			EndLine:      b.EndLine,
			Content:      types.SliceLines(content, b.StartLine, b.EndLine),
			FunctionName: b.Name,
		})
	}

	return chunks
}
