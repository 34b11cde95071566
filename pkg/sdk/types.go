package askinvoice

import "context"

// File is one document to ingest.
type File struct {
	Name string
	Data []byte
}

// IngestStatus reports the per-file outcome of one ingestion batch.
type IngestStatus struct {
	Added        int
	Skipped      int
	Failed       int
	AddedFiles   []string
	SkippedFiles []string
	FailedFiles  []string
}

// Answer is the result of one question.
type Answer struct {
	Answer  string
	Sources []string
	Kind    string
}

// HealthReport aggregates component health checks.
type HealthReport struct {
	Status string
	Checks map[string]string
}

// EmbeddingResult is the output of one embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text. Implement it to plug a custom embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Completer generates free-text answers. Implement it to plug a custom
// language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor turns a raw file into per-page text. The default extractor
// handles PDF files.
type Extractor interface {
	Extract(name string, data []byte) (pages []string, err error)
}
