package ask

import (
	"context"

	"github.com/kailas-cloud/askinvoice/internal/domain"
)

// Embedder vectorizes the question for retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Completer generates the free-text answer from a composed prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Index retrieves the chunks most similar to a query vector.
type Index interface {
	Search(query []float32, k int) ([]domain.Match, error)
	Len() int
}
