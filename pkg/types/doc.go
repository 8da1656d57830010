// Package types defines the shared domain types for the codequery engine:
// chunks, function boundaries, search results, and the final-answer schema
// that every query response must satisfy.
//
// Types here are consumed by both the indexing pipeline (extractor, chunker,
// embedder, indexer) and the query side (tools, agent), so they carry no
// dependencies beyond the standard library.
package types
