package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codequery-mcp/pkg/types"
)

func writeFileHelper(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func openTestMetadata(t *testing.T) *MetadataStore {
	t.Helper()
	m, err := OpenMetadata(filepath.Join(t.TempDir(), MetadataFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMetadataAppendSequencesPerTier(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()

	fileChunk := types.Chunk{Tier: types.TierFile, Path: "a.go", StartLine: 1, EndLine: 10, Content: "pkg"}
	fnChunk := types.Chunk{Tier: types.TierFunction, Path: "a.go", StartLine: 3, EndLine: 6, Content: "fn", FunctionName: "F"}

	// Each tier counts from zero independently.
	seq, err := m.Append(ctx, fileChunk)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	seq, err = m.Append(ctx, fnChunk)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	seq, err = m.Append(ctx, fnChunk)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	n, err := m.Count(ctx, types.TierFunction)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMetadataGet(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()

	in := types.Chunk{
		Tier: types.TierFunction, Path: "src/auth.py", StartLine: 12, EndLine: 30,
		Content: "def login():\n    pass", FunctionName: "login",
	}
	seq, err := m.Append(ctx, in)
	require.NoError(t, err)

	got, err := m.Get(ctx, types.TierFunction, seq)
	require.NoError(t, err)
	assert.Equal(t, in.Path, got.Path)
	assert.Equal(t, in.Content, got.Content)
	assert.Equal(t, in.FunctionName, got.FunctionName)
	assert.Equal(t, seq, got.ID)

	_, err = m.Get(ctx, types.TierFunction, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Get(ctx, types.TierFile, seq)
	assert.ErrorIs(t, err, ErrNotFound, "tiers do not share sequences")
}

func TestMetadataAppendRejectsInvalidChunk(t *testing.T) {
	m := openTestMetadata(t)

	_, err := m.Append(context.Background(), types.Chunk{Tier: types.Tier("module"), Path: "a", StartLine: 1, EndLine: 1})
	assert.ErrorIs(t, err, types.ErrInvalidTier)
}

func TestManifestRoundTrip(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()

	require.NoError(t, m.SetManifest(ctx, ManifestModel, "text-embedding-004"))
	require.NoError(t, m.SetManifest(ctx, ManifestModel, "text-embedding-004-v2"))

	got, err := m.GetManifest(ctx, ManifestModel)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-004-v2", got, "set replaces previous value")

	_, err = m.GetManifest(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
