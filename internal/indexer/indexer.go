package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codequery-mcp/internal/chunker"
	"github.com/dshills/codequery-mcp/internal/embedder"
	"github.com/dshills/codequery-mcp/internal/extractor"
	"github.com/dshills/codequery-mcp/internal/storage"
	"github.com/dshills/codequery-mcp/pkg/types"
)

// ErrTooManyFailures aborts a run whose embedding failure ratio exceeds the
// configured threshold.
var ErrTooManyFailures = errors.New("embedding failure ratio exceeds threshold")

// DefaultExtensions are the file extensions indexed when none are
// configured.
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".go", ".java", ".cpp", ".c", ".rs", ".rb", ".php",
}

// Directories never descended into during discovery.
var skipDirs = map[string]struct{}{
	".git":         {},
	".venv":        {},
	"node_modules": {},
	"vendor":       {},
	"__pycache__":  {},
}

// Config contains configuration for an indexing run.
type Config struct {
	Workers          int      // Concurrent extraction workers (default: runtime.NumCPU())
	BatchSize        int      // Chunks per embedding batch (default: embedder.DefaultBatchSize)
	Extensions       []string // Recognized file extensions (default: DefaultExtensions)
	FailureThreshold float64  // Abort when dropped/total exceeds this; <=0 means never abort
}

// Statistics summarizes one indexing run. Per-file failures are collected
// here, not raised.
type Statistics struct {
	TotalFiles     int
	FailedFiles    int
	FileChunks     int
	FunctionChunks int
	DroppedChunks  int
	TotalChunks    int
	Errors         []string
	Duration       time.Duration
	OutputDir      string
}

// Indexer coordinates the pipeline: extract -> chunk -> embed -> store ->
// publish.
type Indexer struct {
	extractor *extractor.Extractor
	embedder  embedder.Embedder
}

// New creates an Indexer.
func New(ext *extractor.Extractor, emb embedder.Embedder) *Indexer {
	return &Indexer{extractor: ext, embedder: emb}
}

// Build indexes the codebase rooted at rootPath and publishes the result
// into outDir. The index is staged in a temporary sibling directory and
// swapped in atomically, so a query service reading outDir never observes a
// partial index.
func (idx *Indexer) Build(ctx context.Context, rootPath, outDir string, cfg *Config) (*Statistics, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > embedder.MaxBatchSize {
		batchSize = embedder.DefaultBatchSize
	}
	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	start := time.Now()
	stats := &Statistics{OutputDir: outDir}

	files, err := discoverFiles(rootPath, extensions)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	stats.TotalFiles = len(files)

	chunksByFile := idx.extractAndChunk(ctx, rootPath, files, workers, stats)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Everything below runs on this goroutine: the single writer.
	staged := outDir + ".tmp"
	if err := os.RemoveAll(staged); err != nil {
		return nil, fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staged, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staged) }()

	if err := idx.writeIndex(ctx, staged, rootPath, chunksByFile, batchSize, stats); err != nil {
		return stats, err
	}

	if cfg.FailureThreshold > 0 && stats.TotalChunks > 0 {
		ratio := float64(stats.DroppedChunks) / float64(stats.TotalChunks)
		if ratio > cfg.FailureThreshold {
			return stats, fmt.Errorf("%w: %.0f%% of %d chunks dropped",
				ErrTooManyFailures, ratio*100, stats.TotalChunks)
		}
	}

	if err := storage.Publish(staged, outDir); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// extractAndChunk runs boundary extraction and chunking for every file
// across a bounded worker pool. Workers share no mutable index state; each
// writes only its own slot of the results slice. Per-file failures land in
// stats and never fail the run.
func (idx *Indexer) extractAndChunk(ctx context.Context, rootPath string, files []string, workers int, stats *Statistics) [][]types.Chunk {
	results := make([][]types.Chunk, len(files))
	var mu sync.Mutex // protects stats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, relPath := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			content, err := os.ReadFile(filepath.Join(rootPath, relPath))
			if err != nil {
				mu.Lock()
				stats.FailedFiles++
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil
			}

			boundaries, err := idx.extractor.ExtractFunctions(gctx, relPath, string(content))
			if err != nil {
				// Only context errors escape the extractor.
				return err
			}
			results[i] = chunker.Build(relPath, string(content), boundaries)
			return nil
		})
	}
	// The only propagated error is context cancellation, which the caller
	// re-checks via ctx.Err().
	_ = g.Wait()
	return results
}

// writeIndex embeds all chunks and appends vectors and metadata in lockstep,
// then persists both tiers' artifacts into the staged directory.
func (idx *Indexer) writeIndex(ctx context.Context, staged, rootPath string, chunksByFile [][]types.Chunk, batchSize int, stats *Statistics) error {
	meta, err := storage.OpenMetadata(filepath.Join(staged, storage.MetadataFile))
	if err != nil {
		return err
	}
	defer func() { _ = meta.Close() }()

	manifest := map[string]string{
		storage.ManifestProvider:  idx.embedder.Provider(),
		storage.ManifestModel:     idx.embedder.Model(),
		storage.ManifestDimension: strconv.Itoa(idx.embedder.Dimension()),
		storage.ManifestRootPath:  rootPath,
		storage.ManifestCreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range manifest {
		if err := meta.SetManifest(ctx, k, v); err != nil {
			return err
		}
	}

	// Split into per-tier lists in deterministic per-file order.
	byTier := map[types.Tier][]types.Chunk{}
	for _, chunks := range chunksByFile {
		for _, c := range chunks {
			byTier[c.Tier] = append(byTier[c.Tier], c)
		}
	}
	stats.TotalChunks = len(byTier[types.TierFile]) + len(byTier[types.TierFunction])

	for _, tier := range []types.Tier{types.TierFile, types.TierFunction} {
		index, err := storage.NewFlatIndex(idx.embedder.Dimension())
		if err != nil {
			return err
		}

		indexed, err := idx.appendTier(ctx, index, meta, byTier[tier], batchSize, stats)
		if err != nil {
			return err
		}
		switch tier {
		case types.TierFile:
			stats.FileChunks = indexed
		case types.TierFunction:
			stats.FunctionChunks = indexed
		}

		if err := index.WriteFile(filepath.Join(staged, storage.VectorFile(tier))); err != nil {
			return err
		}
	}
	return nil
}

// appendTier embeds one tier's chunks batch by batch and appends each
// vector and its metadata record in the same step, keeping the two
// sequences in lockstep. A batch whose embedding permanently fails drops
// its chunks and records the failure; it never aborts the run here.
func (idx *Indexer) appendTier(ctx context.Context, index *storage.FlatIndex, meta *storage.MetadataStore, chunks []types.Chunk, batchSize int, stats *Statistics) (int, error) {
	indexed := 0
	for offset := 0; offset < len(chunks); offset += batchSize {
		end := offset + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return indexed, ctx.Err()
			}
			stats.DroppedChunks += len(batch)
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("embed batch of %d %s chunks: %v", len(batch), batch[0].Tier, err))
			continue
		}

		for i, emb := range embeddings {
			vid, err := index.Add(emb.Vector)
			if err != nil {
				return indexed, err
			}
			seq, err := meta.Append(ctx, batch[i])
			if err != nil {
				return indexed, err
			}
			if vid != seq {
				return indexed, fmt.Errorf("%w: vector id %d, metadata seq %d",
					types.ErrIndexDesync, vid, seq)
			}
			indexed++
		}
	}
	return indexed, nil
}

// discoverFiles enumerates eligible files under rootPath, returning paths
// relative to the root in walk order.
func discoverFiles(rootPath string, extensions []string) ([]string, error) {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == rootPath {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := extSet[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}
