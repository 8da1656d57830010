// Package mcp implements the Model Context Protocol (MCP) server for CodeQuery.
//
// The MCP server exposes three tools to AI coding assistants:
//   - index_codebase: Build the dual-tier semantic index for a codebase
//   - ask_codebase: Answer a natural language question with an exploring agent
//   - get_status: Report the published index and server configuration
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol; all logging goes to stderr.
//
// # Tool: index_codebase
//
//	Request:
//	{
//	  "name": "index_codebase",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "workers": 8
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "total_files": 124,
//	  "file_chunks": 124,
//	  "function_chunks": 861,
//	  "dropped_chunks": 0,
//	  "duration_ms": 41250
//	}
//
// Indexing publishes atomically: queries keep serving the previous index
// until the new one is complete and verified, then switch in one step.
//
// # Tool: ask_codebase
//
//	Request:
//	{
//	  "name": "ask_codebase",
//	  "arguments": {
//	    "question": "How does authentication work?",
//	    "max_iterations": 6
//	  }
//	}
//
//	Response:
//	{
//	  "answer": "Authentication is handled by ...",
//	  "confidence": "high",
//	  "sources": ["internal/auth/service.go"],
//	  "reasoning": "Read the login flow in service.go"
//	}
//
// # Tool: get_status
//
//	Response:
//	{
//	  "indexed": true,
//	  "index": {
//	    "root_path": "/path/to/project",
//	    "model": "text-embedding-004",
//	    "file_chunks": 124,
//	    "function_chunks": 861
//	  }
//	}
//
// # Error Handling
//
// The server returns standard JSON-RPC error responses. Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (indexing failure, storage, filesystem)
//   - -32002: Indexing already in progress
//   - -32003: No index published
//   - -32004: Query session failed (schema, timeout, model failure)
package mcp
