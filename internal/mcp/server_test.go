package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codequery-mcp/internal/embedder"
)

// stubModel answers extraction prompts with an empty boundary list, tool
// rounds with a search call, and summary rounds with a fixed final answer.
// Prompts are told apart by their fixed phrasing.
type stubModel struct{}

func (stubModel) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	switch {
	case strings.Contains(prompt, "Available tools"):
		return json.RawMessage(`{"action":"search","tool_input":{"question":"greeting","index_type":"file"}}`), nil
	case strings.Contains(prompt, "final answer"):
		return json.RawMessage(`{"answer":"greet prints a greeting","confidence":"medium","sources":["hello.go"],"reasoning":"found it via search"}`), nil
	default:
		// Extraction: every file is boundary-free, file tier only.
		return json.RawMessage(`[]`), nil
	}
}

func (stubModel) Model() string { return "stub" }
func (stubModel) Close() error  { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	return newServer(emb, stubModel{}, filepath.Join(t.TempDir(), "index"))
}

func writeFixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.go"),
		[]byte("package main\n\nfunc greet() string { return \"hi\" }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "util.py"),
		[]byte("def twice(x):\n    return x * 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"),
		[]byte("not code\n"), 0o644))
	return root
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool results are text content")
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func TestIndexThenStatusThenAsk(t *testing.T) {
	s := testServer(t)
	root := writeFixtureTree(t)
	ctx := context.Background()

	res, err := s.handleIndexCodebase(ctx, callTool("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	indexed := resultJSON(t, res)
	assert.Equal(t, true, indexed["indexed"])
	assert.EqualValues(t, 2, indexed["total_files"], "only recognized extensions are indexed")
	assert.EqualValues(t, 2, indexed["file_chunks"])
	assert.EqualValues(t, 0, indexed["dropped_chunks"])

	res, err = s.handleGetStatus(ctx, callTool("get_status", map[string]interface{}{}))
	require.NoError(t, err)
	status := resultJSON(t, res)
	assert.Equal(t, true, status["indexed"])
	index := status["index"].(map[string]interface{})
	assert.Equal(t, root, index["root_path"])
	assert.EqualValues(t, 2, index["file_chunks"])

	res, err = s.handleAskCodebase(ctx, callTool("ask_codebase", map[string]interface{}{
		"question":       "What does greet do?",
		"max_iterations": float64(3),
	}))
	require.NoError(t, err)
	answer := resultJSON(t, res)
	assert.Equal(t, "greet prints a greeting", answer["answer"])
	assert.Equal(t, "medium", answer["confidence"])
	assert.Equal(t, []interface{}{"hello.go"}, answer["sources"])
}

func TestIndexCodebaseRejectsBadPaths(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	for _, args := range []map[string]interface{}{
		{},
		{"path": ""},
		{"path": "relative/path"},
		{"path": filepath.Join(t.TempDir(), "missing")},
	} {
		_, err := s.handleIndexCodebase(ctx, callTool("index_codebase", args))
		var me *MCPError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, ErrorCodeInvalidParams, me.Code)
	}
}

func TestIndexCodebaseRefusesConcurrentBuilds(t *testing.T) {
	s := testServer(t)
	s.indexing.Store(true)

	_, err := s.handleIndexCodebase(context.Background(),
		callTool("index_codebase", map[string]interface{}{"path": t.TempDir()}))
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrorCodeIndexingInProgress, me.Code)
}

func TestAskCodebaseRequiresIndex(t *testing.T) {
	s := testServer(t)

	_, err := s.handleAskCodebase(context.Background(),
		callTool("ask_codebase", map[string]interface{}{"question": "anything"}))
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrorCodeNotIndexed, me.Code)
}

func TestAskCodebaseValidatesParams(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	cases := []map[string]interface{}{
		{},
		{"question": ""},
		{"question": "q", "max_iterations": float64(0)},
		{"question": "q", "max_iterations": float64(13)},
		{"question": "q", "top_k": float64(0)},
		{"question": "q", "top_k": float64(99)},
	}
	for _, args := range cases {
		_, err := s.handleAskCodebase(ctx, callTool("ask_codebase", args))
		var me *MCPError
		require.ErrorAs(t, err, &me, "%v", args)
		assert.Equal(t, ErrorCodeInvalidParams, me.Code, "%v", args)
	}
}

func TestGetStatusBeforeIndexing(t *testing.T) {
	s := testServer(t)

	res, err := s.handleGetStatus(context.Background(), callTool("get_status", map[string]interface{}{}))
	require.NoError(t, err)
	status := resultJSON(t, res)
	assert.Equal(t, false, status["indexed"])
	assert.Equal(t, false, status["indexing"])

	emb := status["embedder"].(map[string]interface{})
	assert.Equal(t, "local", emb["provider"])
}

func TestReindexSwapsSnapshot(t *testing.T) {
	s := testServer(t)
	root := writeFixtureTree(t)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, callTool("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	first := s.ref.Load()
	require.NotNil(t, first)

	// Add a file and rebuild; the served snapshot must be replaced.
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.rs"),
		[]byte("fn extra() {}\n"), 0o644))
	res, err := s.handleIndexCodebase(ctx, callTool("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	indexed := resultJSON(t, res)
	assert.EqualValues(t, 3, indexed["total_files"])

	second := s.ref.Load()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
}
