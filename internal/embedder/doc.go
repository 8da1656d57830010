// Package embedder generates vector embeddings for chunk content.
//
// Providers: Gemini (via the genai SDK), OpenAI (HTTP API), and a
// deterministic local provider for offline development and tests. A provider
// is chosen once per index build; its model name and dimension are recorded
// in the index manifest so query-time embeddings always use the same model
// as index-time embeddings. Mixing models within one index lifetime is a
// configuration error.
//
// Batch requests are retried with exponential backoff (3 attempts). An
// in-memory LRU cache keyed by content hash avoids re-embedding identical
// chunk text.
package embedder
