package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	l, err := NewLocalProvider(nil)
	require.NoError(t, err)

	a, err := l.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	b, err := l.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector, "identical text embeds identically")
	assert.Len(t, a.Vector, LocalDimension)

	c, err := l.Embed(context.Background(), "func other() {}")
	require.NoError(t, err)
	assert.NotEqual(t, a.Vector, c.Vector, "different text embeds differently")
}

func TestLocalProviderBatchOrder(t *testing.T) {
	l, err := NewLocalProvider(nil)
	require.NoError(t, err)

	texts := []string{"alpha", "beta", "gamma"}
	batch, err := l.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := l.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single.Vector, batch[i].Vector, "batch preserves input order")
	}
}

func TestValidateBatch(t *testing.T) {
	assert.ErrorIs(t, ValidateBatch(nil), ErrInvalidInput)

	big := make([]string, MaxBatchSize+1)
	assert.ErrorIs(t, ValidateBatch(big), ErrBatchTooLarge)

	assert.NoError(t, ValidateBatch([]string{"", "x"}), "empty text is allowed in a batch")
}

func TestCacheDeepCopy(t *testing.T) {
	cache := NewCache(10)
	emb := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Provider: ProviderLocal, Model: LocalModel}
	cache.Set("h", emb)

	got, ok := cache.Get("h")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0], "caller mutations must not reach the cache")

	// The copy happens on the way in too: mutating the embedding after Set
	// leaves the cached vector untouched.
	emb.Vector[1] = 42
	again, ok = cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(2), again.Vector[1], "mutating the stored embedding must not reach the cache")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestLocalProviderVectorIsNormalized(t *testing.T) {
	l, err := NewLocalProvider(nil)
	require.NoError(t, err)

	emb, err := l.Embed(context.Background(), "some chunk content")
	require.NoError(t, err)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}
