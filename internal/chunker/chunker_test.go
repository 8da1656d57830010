package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codequery-mcp/pkg/types"
)

const sample = `package greet

import "fmt"

func Hello(name string) {
	fmt.Println("hello", name)
}

func Bye() {
	fmt.Println("bye")
}
`

func TestBuildFileAndFunctionChunks(t *testing.T) {
	boundaries := []types.FunctionBoundary{
		{Name: "Hello", StartLine: 5, EndLine: 7},
		{Name: "Bye", StartLine: 9, EndLine: 11},
	}

	chunks := Build("greet.go", sample, boundaries)
	require.Len(t, chunks, 3)

	file := chunks[0]
	assert.Equal(t, types.TierFile, file.Tier)
	assert.Equal(t, sample, file.Content)
	assert.Equal(t, 1, file.StartLine)
	assert.Equal(t, len(types.SplitLines(sample)), file.EndLine)

	hello := chunks[1]
	assert.Equal(t, types.TierFunction, hello.Tier)
	assert.Equal(t, "Hello", hello.FunctionName)
	assert.Equal(t, "func Hello(name string) {\n\tfmt.Println(\"hello\", name)\n}", hello.Content)
}

func TestBuildRoundTrip(t *testing.T) {
	// Function chunk content must equal the exact source line slice, so the
	// chunk is reconstructible from (path, start_line, end_line).
	boundaries := []types.FunctionBoundary{
		{Name: "Hello", StartLine: 5, EndLine: 7},
		{Name: "Bye", StartLine: 9, EndLine: 11},
	}

	chunks := Build("greet.go", sample, boundaries)
	lines := strings.Split(sample, "\n")
	for _, c := range chunks[1:] {
		want := strings.Join(lines[c.StartLine-1:c.EndLine], "\n")
		assert.Equal(t, want, c.Content, "chunk %s", c.FunctionName)
	}
}

func TestBuildEmptyFile(t *testing.T) {
	chunks := Build("empty.go", "", nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, types.TierFile, chunks[0].Tier)
	assert.Equal(t, "", chunks[0].Content)
}

func TestBuildOverlappingBoundariesYieldIndependentChunks(t *testing.T) {
	boundaries := []types.FunctionBoundary{
		{Name: "Hello", StartLine: 5, EndLine: 7},
		{Name: "Hello", StartLine: 5, EndLine: 7},
	}
	chunks := Build("greet.go", sample, boundaries)
	require.Len(t, chunks, 3)
	assert.Equal(t, chunks[1].Content, chunks[2].Content)
}
