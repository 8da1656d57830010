package types

import "errors"

// Domain errors shared across the engine.
var (
	// ErrInvalidTier indicates a tier selector outside {file, function}.
	ErrInvalidTier = errors.New("invalid tier")

	// ErrIndexDesync indicates a vector store whose entry count does not
	// match its metadata store. This silently corrupts every future search,
	// so it is fatal: a desynced index must refuse to serve.
	ErrIndexDesync = errors.New("vector store and metadata store are out of sync")

	// ErrSchemaViolation indicates a final answer that does not satisfy the
	// fixed output schema.
	ErrSchemaViolation = errors.New("final answer violates schema")

	// ErrMissingFileInfo indicates a search result without a file path.
	ErrMissingFileInfo = errors.New("file path is required")

	// ErrInvalidDistance indicates a negative search distance.
	ErrInvalidDistance = errors.New("distance must be non-negative")
)
