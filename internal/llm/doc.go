// Package llm wraps the reasoning-model API behind a small JSON-oriented
// client interface. The concrete client talks to the Gemini API via the
// official genai SDK; tests substitute scripted fakes.
//
// The client focuses on the API call itself. Cross-cutting concerns (retry,
// deadlines, prompt construction) belong to the callers.
package llm
