package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codequery-mcp/internal/embedder"
	"github.com/dshills/codequery-mcp/internal/extractor"
	"github.com/dshills/codequery-mcp/internal/indexer"
	"github.com/dshills/codequery-mcp/internal/llm"
	"github.com/dshills/codequery-mcp/internal/storage"
	"github.com/dshills/codequery-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "codequery-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDataDir is the default location for the published index
	DefaultDataDir = "~/.codequery/index"
	// EnvModel selects the reasoning model for extraction and answering
	EnvModel = "CODEQUERY_MODEL"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	emb     embedder.Embedder
	llm     llm.Client
	indexer *indexer.Indexer
	ref     *storage.Ref
	dataDir string

	indexing atomic.Bool
}

// NewServer creates a new MCP server instance. dataDir is where built
// indices are published; a previously published index found there is
// served immediately.
func NewServer(ctx context.Context, dataDir string) (*Server, error) {
	if dataDir == "" || dataDir == DefaultDataDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".codequery", "index")
	}
	if err := os.MkdirAll(filepath.Dir(dataDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	cli, err := llm.NewGeminiClient(ctx, os.Getenv(EnvModel))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model client: %w", err)
	}

	s := newServer(emb, cli, dataDir)

	// Serve an index published by a previous run, if any.
	if _, statErr := os.Stat(filepath.Join(dataDir, storage.MetadataFile)); statErr == nil {
		snap, openErr := storage.Open(dataDir)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open published index at %s: %w", dataDir, openErr)
		}
		s.ref.Swap(snap)
		log.Printf("Serving existing index for %s (%d file / %d function chunks)",
			snap.Manifest.RootPath, tierCount(snap, types.TierFile), tierCount(snap, types.TierFunction))
	}

	return s, nil
}

// newServer wires dependencies; split out so tests can inject fakes.
func newServer(emb embedder.Embedder, cli llm.Client, dataDir string) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		emb:     emb,
		llm:     cli,
		indexer: indexer.New(extractor.New(cli), emb),
		ref:     &storage.Ref{},
		dataDir: dataDir,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.close()
	return server.ServeStdio(s.mcp)
}

func (s *Server) close() {
	if snap := s.ref.Swap(nil); snap != nil {
		_ = snap.Close()
	}
	_ = s.emb.Close()
	_ = s.llm.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(askCodebaseTool(), s.handleAskCodebase)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
