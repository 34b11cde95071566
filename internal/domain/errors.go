package domain

import "errors"

var (
	// ErrDocumentOpen signals a source document that cannot be opened or parsed.
	ErrDocumentOpen = errors.New("document cannot be opened")
	// ErrEmptyIndex signals a search against an index with no vectors.
	ErrEmptyIndex = errors.New("similarity index is empty")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrCompletionProvider signals a language-model provider failure.
	ErrCompletionProvider = errors.New("completion provider error")
	// ErrPersistence signals a failure reading or writing the index artifact.
	ErrPersistence = errors.New("index persistence error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidMetadata signals invoice metadata that fails validation.
	ErrInvalidMetadata = errors.New("invalid invoice metadata")
)
