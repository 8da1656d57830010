package embedder

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	genai "google.golang.org/genai"

	"github.com/dshills/codequery-mcp/internal/retry"
)

// Provider configuration
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultGeminiModel = "text-embedding-004"
	DefaultOpenAIModel = "text-embedding-3-small"
	LocalModel         = "local-hash-v1"

	GeminiDimension = 768
	OpenAIDimension = 1536
	LocalDimension  = 384

	// apiTimeout bounds one embedding API round trip.
	apiTimeout = 30 * time.Second
)

// Environment variables
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// GeminiProvider implements Embedder using the genai SDK.
type GeminiProvider struct {
	cli    *genai.Client
	model  string
	cache  *Cache
	policy retry.Policy
}

// NewGeminiProvider creates a Gemini embedder. The genai SDK reads
// GEMINI_API_KEY from the environment.
func NewGeminiProvider(ctx context.Context, cache *Cache) (*GeminiProvider, error) {
	if os.Getenv(EnvGeminiAPIKey) == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvGeminiAPIKey)
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{
		cli:    cli,
		model:  DefaultGeminiModel,
		cache:  cache,
		policy: retry.Default(),
	}, nil
}

func (g *GeminiProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	hash := ComputeHash(text)
	if g.cache != nil {
		if emb, ok := g.cache.Get(hash); ok {
			return emb, nil
		}
	}
	embeddings, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (g *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		if text == "" {
			text = " " // the API rejects empty input; a single space embeds fine
		}
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	resp, err := retry.Do(ctx, g.policy, func() (*genai.EmbedContentResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		return g.cli.Models.EmbedContent(callCtx, g.model, contents, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrProviderFailed, len(resp.Embeddings), len(texts))
	}

	embeddings := make([]*Embedding, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		embeddings[i] = &Embedding{
			Vector:    e.Values,
			Dimension: len(e.Values),
			Provider:  ProviderGemini,
			Model:     g.model,
		}
		if g.cache != nil {
			g.cache.Set(ComputeHash(texts[i]), embeddings[i])
		}
	}
	return embeddings, nil
}

func (g *GeminiProvider) Dimension() int   { return GeminiDimension }
func (g *GeminiProvider) Provider() string { return ProviderGemini }
func (g *GeminiProvider) Model() string    { return g.model }
func (g *GeminiProvider) Close() error     { return nil }

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
type OpenAIProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
	policy     retry.Policy
}

// NewOpenAIProvider creates an OpenAI embedder.
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		model:  DefaultOpenAIModel,
		httpClient: &http.Client{
			Timeout: apiTimeout,
		},
		cache:  cache,
		policy: retry.Default(),
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	hash := ComputeHash(text)
	if o.cache != nil {
		if emb, ok := o.cache.Get(hash); ok {
			return emb, nil
		}
	}
	embeddings, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	embeddings, err := retry.Do(ctx, o.policy, func() ([]*Embedding, error) {
		return o.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if o.cache != nil {
		for i, emb := range embeddings {
			o.cache.Set(ComputeHash(texts[i]), emb)
		}
	}
	return embeddings, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	input := make([]string, len(texts))
	for i, text := range texts {
		if text == "" {
			text = " "
		}
		input[i] = text
	}

	body, err := json.Marshal(map[string]interface{}{
		"input": input,
		"model": o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(apiResp.Data), len(texts))
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for _, data := range apiResp.Data {
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  ProviderOpenAI,
			Model:     apiResp.Model,
		}
	}
	return embeddings, nil
}

func (o *OpenAIProvider) Dimension() int   { return OpenAIDimension }
func (o *OpenAIProvider) Provider() string { return ProviderOpenAI }
func (o *OpenAIProvider) Model() string    { return o.model }
func (o *OpenAIProvider) Close() error     { return nil }

// LocalProvider implements Embedder with deterministic hash-derived vectors.
// It needs no network or API key, which makes it the offline and test
// provider. Vectors are stable across runs for identical text.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates a local embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{cache: cache}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	hash := ComputeHash(text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    hashVector(text, LocalDimension),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     LocalModel,
	}
	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}
	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (l *LocalProvider) Dimension() int   { return LocalDimension }
func (l *LocalProvider) Provider() string { return ProviderLocal }
func (l *LocalProvider) Model() string    { return LocalModel }
func (l *LocalProvider) Close() error     { return nil }

// hashVector derives a unit-length vector from the text's hash. Related
// texts do not land near each other, but identical texts always collide,
// which is all the offline provider promises.
func hashVector(text string, dim int) []float32 {
	seed := ComputeHash(text)
	vec := make([]float32, dim)
	var norm float64

	state := []byte(seed)
	for i := 0; i < dim; i++ {
		if i*4+4 > len(state) {
			next := ComputeHash(string(state))
			state = append(state, []byte(next)...)
		}
		bits := binary.LittleEndian.Uint32(state[i*4 : i*4+4])
		v := float32(bits%2000)/1000.0 - 1.0
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
