package askinvoice

import "github.com/kailas-cloud/askinvoice/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentOpen       = domain.ErrDocumentOpen
	ErrEmptyIndex         = domain.ErrEmptyIndex
	ErrEmbeddingProvider  = domain.ErrEmbeddingProvider
	ErrCompletionProvider = domain.ErrCompletionProvider
	ErrPersistence        = domain.ErrPersistence
	ErrVectorDimMismatch  = domain.ErrVectorDimMismatch
	ErrInvalidMetadata    = domain.ErrInvalidMetadata
)
