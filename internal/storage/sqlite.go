package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/codequery-mcp/pkg/types"
)

// ErrNotFound indicates a missing metadata record.
var ErrNotFound = errors.New("record not found")

// MetadataFile is the metadata database filename inside an index directory.
const MetadataFile = "metadata.db"

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	tier          TEXT    NOT NULL,
	seq           INTEGER NOT NULL,
	path          TEXT    NOT NULL,
	start_line    INTEGER NOT NULL,
	end_line      INTEGER NOT NULL,
	function_name TEXT    NOT NULL DEFAULT '',
	content       TEXT    NOT NULL,
	PRIMARY KEY (tier, seq)
);

CREATE TABLE IF NOT EXISTS manifest (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Manifest keys.
const (
	ManifestProvider  = "embed_provider"
	ManifestModel     = "embed_model"
	ManifestDimension = "embed_dimension"
	ManifestRootPath  = "root_path"
	ManifestCreatedAt = "created_at"
)

// MetadataStore is the append-only chunk record store, keyed by (tier, seq).
// It holds everything needed to render a search result without touching the
// vector artifacts.
type MetadataStore struct {
	db *sql.DB
}

// OpenMetadata opens (creating if needed) the metadata database at path.
func OpenMetadata(path string) (*MetadataStore, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	// The single-writer discipline makes connection pooling pointless, and
	// SQLite misbehaves under concurrent writes from multiple connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply metadata schema: %w", err)
	}
	return &MetadataStore{db: db}, nil
}

// Append inserts the chunk under the next sequence id for its tier and
// returns that id. Callers must have just appended the matching vector to
// the same tier's vector store; the two sequences advance in lockstep.
func (m *MetadataStore) Append(ctx context.Context, chunk types.Chunk) (int64, error) {
	if err := chunk.Validate(); err != nil {
		return 0, err
	}

	var seq int64
	err := m.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq)+1, 0) FROM chunks WHERE tier = ?`, string(chunk.Tier),
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence id: %w", err)
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO chunks (tier, seq, path, start_line, end_line, function_name, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(chunk.Tier), seq, chunk.Path, chunk.StartLine, chunk.EndLine,
		chunk.FunctionName, chunk.Content)
	if err != nil {
		return 0, fmt.Errorf("append chunk metadata: %w", err)
	}
	return seq, nil
}

// Count returns the number of chunk records in a tier.
func (m *MetadataStore) Count(ctx context.Context, tier types.Tier) (int64, error) {
	var n int64
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE tier = ?`, string(tier)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Get returns the chunk record for a tier's sequence id.
func (m *MetadataStore) Get(ctx context.Context, tier types.Tier, seq int64) (types.Chunk, error) {
	chunk := types.Chunk{ID: seq, Tier: tier}
	err := m.db.QueryRowContext(ctx,
		`SELECT path, start_line, end_line, function_name, content
		 FROM chunks WHERE tier = ? AND seq = ?`, string(tier), seq,
	).Scan(&chunk.Path, &chunk.StartLine, &chunk.EndLine, &chunk.FunctionName, &chunk.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Chunk{}, fmt.Errorf("%w: %s chunk %d", ErrNotFound, tier, seq)
	}
	if err != nil {
		return types.Chunk{}, fmt.Errorf("get chunk metadata: %w", err)
	}
	return chunk, nil
}

// SetManifest stores one manifest entry, replacing any previous value.
func (m *MetadataStore) SetManifest(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO manifest (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set manifest %s: %w", key, err)
	}
	return nil
}

// GetManifest returns one manifest entry.
func (m *MetadataStore) GetManifest(ctx context.Context, key string) (string, error) {
	var value string
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM manifest WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: manifest key %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("get manifest %s: %w", key, err)
	}
	return value, nil
}

// Close releases the underlying database handle.
func (m *MetadataStore) Close() error {
	return m.db.Close()
}
