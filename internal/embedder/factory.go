package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider selects the embedding provider explicitly.
const EnvProvider = "CODEQUERY_EMBEDDING_PROVIDER"

// Config holds embedder configuration.
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. CODEQUERY_EMBEDDING_PROVIDER (gemini, openai, local)
//  2. Check for API keys: GEMINI_API_KEY, OPENAI_API_KEY
//  3. Default to local if no API keys found
func NewFromEnv(ctx context.Context) (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	if provider == "" {
		provider = detectProvider()
	}
	return New(ctx, Config{Provider: provider, CacheSize: 10000})
}

// New creates an embedder with explicit configuration.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiProvider(ctx, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

func detectProvider() string {
	if os.Getenv(EnvGeminiAPIKey) != "" {
		return ProviderGemini
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
