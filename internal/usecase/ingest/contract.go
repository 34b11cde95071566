package ingest

import (
	"context"

	"github.com/kailas-cloud/askinvoice/internal/domain"
)

// DocumentStore persists raw document files and remembers which names are
// already part of the knowledge base.
type DocumentStore interface {
	List() ([]string, error)
	Exists(name string) (bool, error)
	Store(name string, data []byte) error
	Remove(name string) error
	RemoveAll() error
}

// Extractor turns a raw file into per-page text.
type Extractor interface {
	Extract(name string, data []byte) (domain.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// MetadataExtractor pulls structured invoice fields out of document text.
type MetadataExtractor interface {
	Extract(ctx context.Context, text string) (*domain.InvoiceMetadata, error)
}

// Index is the similarity index the ingested chunks land in.
type Index interface {
	Add(chunks []domain.Chunk, vectors [][]float32) error
	Reset() error
	Len() int
}
