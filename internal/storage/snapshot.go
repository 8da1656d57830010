package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/dshills/codequery-mcp/pkg/types"
)

// VectorFile returns the vector artifact filename for a tier.
func VectorFile(tier types.Tier) string {
	return string(tier) + "_vectors.cqv"
}

// Manifest describes how an index was built. Query-time embeddings must use
// the same provider and model recorded here.
type Manifest struct {
	Provider  string
	Model     string
	Dimension int
	RootPath  string
	CreatedAt string
}

// Snapshot is one complete, immutable published index: both tiers' vector
// stores, the metadata store, and the build manifest. Snapshots are shared
// read-only across concurrent query sessions and reference-counted: the
// owner's reference from Open plus one per active session. The underlying
// stores close only when the last reference drops, so a rebuild can retire
// a snapshot without breaking sessions still reading it.
type Snapshot struct {
	Dir      string
	Manifest Manifest

	file     *FlatIndex
	function *FlatIndex
	meta     *MetadataStore

	refs atomic.Int64
}

// Open loads a published index directory and verifies the lockstep
// invariant: for each tier, vector count must equal metadata count. On
// mismatch it returns types.ErrIndexDesync and the snapshot must not serve.
func Open(dir string) (*Snapshot, error) {
	meta, err := OpenMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Dir: dir, meta: meta}
	snap.refs.Store(1)
	if err := snap.loadManifest(); err != nil {
		_ = meta.Close()
		return nil, err
	}

	for _, tier := range []types.Tier{types.TierFile, types.TierFunction} {
		idx, err := snap.loadTier(tier)
		if err != nil {
			_ = meta.Close()
			return nil, err
		}
		if tier == types.TierFile {
			snap.file = idx
		} else {
			snap.function = idx
		}
	}
	return snap, nil
}

func (s *Snapshot) loadManifest() error {
	ctx := context.Background()
	var err error
	if s.Manifest.Provider, err = s.meta.GetManifest(ctx, ManifestProvider); err != nil {
		return fmt.Errorf("index manifest missing provider: %w", err)
	}
	if s.Manifest.Model, err = s.meta.GetManifest(ctx, ManifestModel); err != nil {
		return fmt.Errorf("index manifest missing model: %w", err)
	}
	dim, err := s.meta.GetManifest(ctx, ManifestDimension)
	if err != nil {
		return fmt.Errorf("index manifest missing dimension: %w", err)
	}
	if s.Manifest.Dimension, err = strconv.Atoi(dim); err != nil || s.Manifest.Dimension <= 0 {
		return fmt.Errorf("index manifest has bad dimension %q", dim)
	}
	// Optional entries.
	s.Manifest.RootPath, _ = s.meta.GetManifest(ctx, ManifestRootPath)
	s.Manifest.CreatedAt, _ = s.meta.GetManifest(ctx, ManifestCreatedAt)
	return nil
}

func (s *Snapshot) loadTier(tier types.Tier) (*FlatIndex, error) {
	path := filepath.Join(s.Dir, VectorFile(tier))
	idx, err := ReadFlatIndex(path)
	if os.IsNotExist(err) {
		// A tier with zero chunks has no artifact; an empty store serves it.
		idx, err = NewFlatIndex(s.Manifest.Dimension)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s tier: %w", tier, err)
	}

	metaCount, err := s.meta.Count(context.Background(), tier)
	if err != nil {
		return nil, err
	}
	if int64(idx.Count()) != metaCount {
		return nil, fmt.Errorf("%w: tier %s has %d vectors but %d metadata entries",
			types.ErrIndexDesync, tier, idx.Count(), metaCount)
	}
	return idx, nil
}

// Index returns the vector store for a tier.
func (s *Snapshot) Index(tier types.Tier) (*FlatIndex, error) {
	switch tier {
	case types.TierFile:
		return s.file, nil
	case types.TierFunction:
		return s.function, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidTier, tier)
	}
}

// Metadata returns the metadata store.
func (s *Snapshot) Metadata() *MetadataStore {
	return s.meta
}

// Acquire registers another holder of the snapshot. It fails when the last
// reference has already dropped, meaning the snapshot is closing or closed.
func (s *Snapshot) Acquire() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Close drops one reference. The underlying stores are released only when
// the last holder closes, so retiring a published snapshot while sessions
// still read it is safe.
func (s *Snapshot) Close() error {
	if s.refs.Add(-1) > 0 {
		return nil
	}
	if s.meta != nil {
		return s.meta.Close()
	}
	return nil
}

// Ref is the atomically swappable pointer to the currently published
// snapshot. Sessions Acquire once and use that snapshot for their whole
// lifetime; rebuilds Swap in a new snapshot without disturbing in-flight
// sessions.
type Ref struct {
	ptr atomic.Pointer[Snapshot]
}

// Load returns the current snapshot, or nil when nothing is published yet.
func (r *Ref) Load() *Snapshot {
	return r.ptr.Load()
}

// Acquire pins the current snapshot for a session and returns it, or nil
// when nothing is published. The caller owns one reference and must Close
// the snapshot when the session ends.
func (r *Ref) Acquire() *Snapshot {
	for {
		s := r.ptr.Load()
		if s == nil {
			return nil
		}
		// A concurrent Swap may drop the last reference between Load and
		// Acquire; reload and try the replacement.
		if s.Acquire() {
			return s
		}
	}
}

// Swap publishes a new snapshot and returns the previous one.
func (r *Ref) Swap(s *Snapshot) *Snapshot {
	return r.ptr.Swap(s)
}

// Publish atomically replaces the index directory at published with the
// fully built directory at staged. The previous published directory, if
// any, is moved aside and removed after the swap so a reader never observes
// a half-written index.
func Publish(staged, published string) error {
	old := published + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("clear previous index backup: %w", err)
	}
	if _, err := os.Stat(published); err == nil {
		if err := os.Rename(published, old); err != nil {
			return fmt.Errorf("retire published index: %w", err)
		}
	}
	if err := os.Rename(staged, published); err != nil {
		// Best effort rollback of the retire step.
		_ = os.Rename(old, published)
		return fmt.Errorf("publish index: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}
