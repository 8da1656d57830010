package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codequery-mcp/pkg/types"
)

// buildTestIndex writes a small but complete index directory: one file
// chunk, two function chunks, vectors and metadata in lockstep.
func buildTestIndex(t *testing.T, dir string, dim int) {
	t.Helper()
	ctx := context.Background()

	meta, err := OpenMetadata(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	defer func() { _ = meta.Close() }()

	require.NoError(t, meta.SetManifest(ctx, ManifestProvider, "local"))
	require.NoError(t, meta.SetManifest(ctx, ManifestModel, "local-hash-v1"))
	require.NoError(t, meta.SetManifest(ctx, ManifestDimension, strconv.Itoa(dim)))

	fileIdx, err := NewFlatIndex(dim)
	require.NoError(t, err)
	fnIdx, err := NewFlatIndex(dim)
	require.NoError(t, err)

	add := func(idx *FlatIndex, chunk types.Chunk, vec []float32) {
		vid, err := idx.Add(vec)
		require.NoError(t, err)
		seq, err := meta.Append(ctx, chunk)
		require.NoError(t, err)
		require.Equal(t, vid, seq, "vector and metadata ids advance in lockstep")
	}

	add(fileIdx,
		types.Chunk{Tier: types.TierFile, Path: "main.go", StartLine: 1, EndLine: 5, Content: "package main"},
		[]float32{1, 0})
	add(fnIdx,
		types.Chunk{Tier: types.TierFunction, Path: "main.go", StartLine: 2, EndLine: 4, Content: "func main() {}", FunctionName: "main"},
		[]float32{0, 1})
	add(fnIdx,
		types.Chunk{Tier: types.TierFunction, Path: "main.go", StartLine: 4, EndLine: 5, Content: "func helper() {}", FunctionName: "helper"},
		[]float32{0, 2})

	require.NoError(t, fileIdx.WriteFile(filepath.Join(dir, VectorFile(types.TierFile))))
	require.NoError(t, fnIdx.WriteFile(filepath.Join(dir, VectorFile(types.TierFunction))))
}

func TestOpenSnapshot(t *testing.T) {
	dir := t.TempDir()
	buildTestIndex(t, dir, 2)

	snap, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	assert.Equal(t, "local", snap.Manifest.Provider)
	assert.Equal(t, 2, snap.Manifest.Dimension)

	fnIdx, err := snap.Index(types.TierFunction)
	require.NoError(t, err)
	assert.Equal(t, 2, fnIdx.Count())

	_, err = snap.Index(types.Tier("module"))
	assert.ErrorIs(t, err, types.ErrInvalidTier)
}

func TestOpenSnapshotRefusesDesync(t *testing.T) {
	dir := t.TempDir()
	buildTestIndex(t, dir, 2)

	// Drop one metadata row so the function tier counts disagree.
	meta, err := OpenMetadata(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	_, err = meta.db.Exec(`DELETE FROM chunks WHERE tier = 'function' AND seq = 1`)
	require.NoError(t, err)
	require.NoError(t, meta.Close())

	_, err = Open(dir)
	assert.ErrorIs(t, err, types.ErrIndexDesync)
}

func TestOpenSnapshotMissingTierArtifactServesEmpty(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	meta, err := OpenMetadata(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	require.NoError(t, meta.SetManifest(ctx, ManifestProvider, "local"))
	require.NoError(t, meta.SetManifest(ctx, ManifestModel, "local-hash-v1"))
	require.NoError(t, meta.SetManifest(ctx, ManifestDimension, "2"))
	require.NoError(t, meta.Close())

	snap, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	idx, err := snap.Index(types.TierFunction)
	require.NoError(t, err)
	assert.Zero(t, idx.Count())
}

func TestPublishSwapsDirectories(t *testing.T) {
	root := t.TempDir()
	published := filepath.Join(root, "index")
	staged := filepath.Join(root, "index.tmp")

	require.NoError(t, os.MkdirAll(staged, 0o755))
	buildTestIndex(t, staged, 2)

	require.NoError(t, Publish(staged, published))
	snap, err := Open(published)
	require.NoError(t, err)
	require.NoError(t, snap.Close())

	// Second publish replaces the first and leaves no .old debris.
	staged2 := filepath.Join(root, "index.tmp2")
	require.NoError(t, os.MkdirAll(staged2, 0o755))
	buildTestIndex(t, staged2, 2)
	require.NoError(t, Publish(staged2, published))

	_, err = os.Stat(published + ".old")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(staged2)
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotCloseWaitsForHolders(t *testing.T) {
	dir := t.TempDir()
	buildTestIndex(t, dir, 2)
	snap, err := Open(dir)
	require.NoError(t, err)

	require.True(t, snap.Acquire(), "published snapshot accepts new holders")

	// The owner retires the snapshot while a holder remains; the stores
	// stay usable.
	require.NoError(t, snap.Close())
	_, err = snap.Metadata().Get(context.Background(), types.TierFile, 0)
	assert.NoError(t, err, "stores stay open until the last holder closes")

	// Last holder drops the final reference; further Acquire must fail.
	require.NoError(t, snap.Close())
	assert.False(t, snap.Acquire(), "a fully closed snapshot rejects new holders")
}

func TestRefAcquirePinsCurrent(t *testing.T) {
	dir := t.TempDir()
	buildTestIndex(t, dir, 2)
	snap, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	var ref Ref
	assert.Nil(t, ref.Acquire(), "nothing published yet")

	ref.Swap(snap)
	pinned := ref.Acquire()
	require.Same(t, snap, pinned)
	require.NoError(t, pinned.Close())
}

func TestRefSwap(t *testing.T) {
	dir := t.TempDir()
	buildTestIndex(t, dir, 2)
	snap, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	var ref Ref
	assert.Nil(t, ref.Load(), "nothing published yet")

	old := ref.Swap(snap)
	assert.Nil(t, old)
	assert.Same(t, snap, ref.Load())
}
