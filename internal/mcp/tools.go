package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codequery-mcp/internal/agent"
	"github.com/dshills/codequery-mcp/internal/indexer"
	"github.com/dshills/codequery-mcp/internal/storage"
	"github.com/dshills/codequery-mcp/internal/tools"
	"github.com/dshills/codequery-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // No index has been published yet
	ErrorCodeQueryFailed        = -32004 // Agent session ended without a valid answer
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	config := &indexer.Config{
		Workers:   getIntDefault(args, "workers", 0),
		BatchSize: getIntDefault(args, "batch_size", 0),
	}
	if v, ok := args["failure_threshold"].(float64); ok {
		config.FailureThreshold = v
	}

	// One build at a time; queries keep serving the current snapshot.
	if !s.indexing.CompareAndSwap(false, true) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing operation is already running", nil)
	}
	defer s.indexing.Store(false)

	stats, err := s.indexer.Build(ctx, path, s.dataDir, config)
	if err != nil {
		if errors.Is(err, indexer.ErrTooManyFailures) {
			return nil, newMCPError(ErrorCodeInternalError, "indexing aborted", map[string]interface{}{
				"error":          err.Error(),
				"dropped_chunks": stats.DroppedChunks,
				"total_chunks":   stats.TotalChunks,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	snap, err := storage.Open(s.dataDir)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "published index failed verification", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if old := s.ref.Swap(snap); old != nil {
		_ = old.Close()
	}

	response := map[string]interface{}{
		"indexed":         true,
		"path":            path,
		"output":          stats.OutputDir,
		"total_files":     stats.TotalFiles,
		"failed_files":    stats.FailedFiles,
		"file_chunks":     stats.FileChunks,
		"function_chunks": stats.FunctionChunks,
		"dropped_chunks":  stats.DroppedChunks,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.Errors) > 0 {
		errorCount := len(stats.Errors)
		if errorCount > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAskCodebase handles the ask_codebase tool invocation
func (s *Server) handleAskCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "question parameter is required", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	maxIterations := getIntDefault(args, "max_iterations", agent.DefaultMaxIterations)
	if maxIterations < 1 || maxIterations > agent.MaxMaxIterations {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("max_iterations must be between 1 and %d", agent.MaxMaxIterations),
			map[string]interface{}{"param": "max_iterations", "value": maxIterations})
	}
	topK := getIntDefault(args, "top_k", tools.DefaultTopK)
	if topK < 1 || topK > tools.MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("top_k must be between 1 and %d", tools.MaxTopK),
			map[string]interface{}{"param": "top_k", "value": topK})
	}

	// Pin the snapshot for the whole session: a rebuild publishing while the
	// agent runs must not change what this session reads.
	snap := s.ref.Acquire()
	if snap == nil {
		return nil, newMCPError(ErrorCodeNotIndexed, "no index published; run index_codebase first", nil)
	}
	defer func() { _ = snap.Close() }()

	a := agent.New(s.llm, s.sessionRegistry(snap, topK), agent.Config{MaxIterations: maxIterations})
	answer, err := a.Ask(ctx, question)
	if err != nil {
		var qe *agent.QueryError
		if errors.As(err, &qe) {
			return nil, newMCPError(ErrorCodeQueryFailed, "query failed", map[string]interface{}{
				"kind":  qe.Kind,
				"error": qe.Message,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"answer":     answer.Answer,
		"confidence": answer.Confidence,
		"sources":    answer.Sources,
		"reasoning":  answer.Reasoning,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// sessionRegistry builds the tool registry for one query session: retrieval
// over the pinned snapshot and live file reads rooted at the indexed tree.
// The session's top_k applies when the model omits one.
func (s *Server) sessionRegistry(snap *storage.Snapshot, topK int) *tools.Registry {
	reg := tools.NewRegistry()
	searcher := tools.NewSearcher(snap, s.emb)
	reg.Register(tools.SearchSpec(), func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		var in tools.SearchInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", tools.ErrInvalidArgument, err)
		}
		if in.TopK == 0 {
			in.TopK = topK
		}
		out, err := searcher.Search(ctx, in)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
	tools.RegisterFileContent(reg, tools.NewFileReader(snap.Manifest.RootPath))
	return reg
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"server":   ServerName,
		"version":  ServerVersion,
		"indexing": s.indexing.Load(),
		"embedder": map[string]interface{}{
			"provider":  s.emb.Provider(),
			"model":     s.emb.Model(),
			"dimension": s.emb.Dimension(),
		},
		"model": s.llm.Model(),
		"build": map[string]interface{}{
			"mode":   storage.BuildMode,
			"driver": storage.DriverName,
		},
	}

	snap := s.ref.Load()
	if snap == nil {
		response["indexed"] = false
		response["message"] = "No index published. Use index_codebase to build one."
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response["indexed"] = true
	response["index"] = map[string]interface{}{
		"root_path":       snap.Manifest.RootPath,
		"provider":        snap.Manifest.Provider,
		"model":           snap.Manifest.Model,
		"dimension":       snap.Manifest.Dimension,
		"created_at":      snap.Manifest.CreatedAt,
		"file_chunks":     tierCount(snap, types.TierFile),
		"function_chunks": tierCount(snap, types.TierFunction),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// tierCount returns one tier's vector count, zero if the tier is absent.
func tierCount(snap *storage.Snapshot, tier types.Tier) int {
	idx, err := snap.Index(tier)
	if err != nil {
		return 0
	}
	return idx.Count()
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
