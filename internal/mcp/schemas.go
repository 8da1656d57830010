package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a codebase for question answering. Builds file-level and function-level semantic indices.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the codebase root directory",
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Concurrent extraction workers (default: number of CPUs)",
				},
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Chunks per embedding batch (default 50, max 100)",
				},
				"failure_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Abort when the ratio of dropped chunks exceeds this (0-1). Omit to always complete.",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"path"},
		},
	}
}

// askCodebaseTool returns the tool definition for ask_codebase
func askCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_codebase",
		Description: "Ask a natural language question about the indexed codebase. An agent explores the index and returns a grounded answer with sources and a confidence level.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question about the codebase",
				},
				"max_iterations": map[string]interface{}{
					"type":        "integer",
					"description": "Total agent rounds including the final summary (1-12)",
					"default":     6,
					"minimum":     1,
					"maximum":     12,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Search results per retrieval when the agent does not choose (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"question"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report the published index, embedding configuration, and server build information",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
