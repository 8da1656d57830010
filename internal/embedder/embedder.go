package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Batch limits
const (
	DefaultBatchSize = 50
	MaxBatchSize     = 100
)

// Embedding is one vector tied to the text it was generated from.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// Embedder generates fixed-dimension vectors for chunk content. All vectors
// from one Embedder share the same model and dimension.
type Embedder interface {
	// Embed generates a single embedding for the given text.
	Embed(ctx context.Context, text string) (*Embedding, error)

	// EmbedBatch generates embeddings for multiple texts in one request.
	// The result has exactly one embedding per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error)

	// Dimension returns the embedding dimension for this provider.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		// Unreachable with a positive size.
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a deep copy of a cached embedding. A copy is returned so
// caller mutations cannot poison the cache.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)
	return &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
	}, true
}

// Set stores a deep copy of an embedding, evicting the least recently used
// entry at capacity. Copying on the way in mirrors Get: the caller keeping
// and mutating its embedding cannot poison the cached one.
func (c *Cache) Set(hash string, emb *Embedding) {
	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)
	c.cache.Add(hash, &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
	})
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 hash of text for cache keys.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateBatch validates a batch embedding request. Empty texts are allowed
// (an empty source file still gets a file chunk) but the batch itself must
// be non-empty and bounded.
func ValidateBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	if len(texts) > MaxBatchSize {
		return fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}
	return nil
}
