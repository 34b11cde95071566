// Package ingest implements the knowledge-base write path: extracting,
// chunking, vectorizing and indexing uploaded documents exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askinvoice/internal/chunker"
	"github.com/kailas-cloud/askinvoice/internal/domain"
)

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Status reports the per-file outcome of one ingestion batch.
type Status struct {
	Added        int      `json:"added"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
	AddedFiles   []string `json:"added_files,omitempty"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	FailedFiles  []string `json:"failed_files,omitempty"`
}

// Service handles document ingestion and knowledge-base maintenance.
// All mutation runs under a single mutex: one writer at a time.
type Service struct {
	mu        sync.Mutex
	store     DocumentStore
	extractor Extractor
	embedder  Embedder
	metadata  MetadataExtractor
	index     Index
	chunkSize int
	logger    *zap.Logger
}

// New creates an ingestion service. chunkSize bounds chunk length in bytes;
// zero or negative falls back to the chunker default.
func New(
	store DocumentStore,
	extractor Extractor,
	embedder Embedder,
	metadata MetadataExtractor,
	index Index,
	chunkSize int,
	logger *zap.Logger,
) *Service {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultMaxChunkSize
	}
	return &Service{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		metadata:  metadata,
		index:     index,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Ingest processes a batch of uploaded files. Files already in the store are
// skipped, files that fail extraction or vectorization are counted as failed
// and do not poison the rest of the batch. A persistence failure aborts the
// batch: the partial Status reflects work completed before the failure.
func (s *Service) Ingest(ctx context.Context, files []File) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status Status
	for _, f := range files {
		exists, err := s.store.Exists(f.Name)
		if err != nil {
			return status, fmt.Errorf("check document %q: %w", f.Name, err)
		}
		if exists {
			status.Skipped++
			status.SkippedFiles = append(status.SkippedFiles, f.Name)
			continue
		}

		chunks, vectors, err := s.prepare(ctx, f)
		if err != nil {
			if errors.Is(err, domain.ErrPersistence) {
				return status, err
			}
			s.logger.Warn("document ingestion failed",
				zap.String("file", f.Name),
				zap.Error(err),
			)
			status.Failed++
			status.FailedFiles = append(status.FailedFiles, f.Name)
			continue
		}

		// Store the raw file first so Exists marks it known, then index.
		// On index failure the stored file is removed again, keeping the
		// duplicate check honest: a failed file can be retried.
		if err := s.store.Store(f.Name, f.Data); err != nil {
			return status, fmt.Errorf("store document %q: %w", f.Name, err)
		}
		if err := s.index.Add(chunks, vectors); err != nil {
			if rmErr := s.store.Remove(f.Name); rmErr != nil {
				s.logger.Error("rollback of stored document failed",
					zap.String("file", f.Name),
					zap.Error(rmErr),
				)
			}
			return status, fmt.Errorf("index document %q: %w", f.Name, err)
		}

		status.Added++
		status.AddedFiles = append(status.AddedFiles, f.Name)
		s.logger.Info("document ingested",
			zap.String("file", f.Name),
			zap.Int("chunks", len(chunks)),
		)
	}
	return status, nil
}

// prepare extracts, chunks and vectorizes one file. Invoice metadata is best
// effort: a failed extraction leaves chunks without metadata rather than
// failing the file.
func (s *Service) prepare(ctx context.Context, f File) ([]domain.Chunk, [][]float32, error) {
	doc, err := s.extractor.Extract(f.Name, f.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}

	text := doc.Text()
	parts := chunker.Split(text, s.chunkSize)
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("document %q has no extractable text: %w", f.Name, domain.ErrDocumentOpen)
	}

	var meta *domain.InvoiceMetadata
	if s.metadata != nil {
		meta, err = s.metadata.Extract(ctx, text)
		if err != nil {
			s.logger.Warn("invoice metadata extraction failed",
				zap.String("file", f.Name),
				zap.Error(err),
			)
			meta = nil
		}
	}

	chunks := make([]domain.Chunk, len(parts))
	vectors := make([][]float32, len(parts))
	for i, part := range parts {
		result, err := s.embedder.Embed(ctx, part)
		if err != nil {
			return nil, nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks[i] = domain.Chunk{Text: part, Source: f.Name, Invoice: meta}
		vectors[i] = result.Embedding
	}
	return chunks, vectors, nil
}

// ListDocuments returns the names of all documents in the knowledge base.
func (s *Service) ListDocuments() ([]string, error) {
	names, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return names, nil
}

// Clear wipes the knowledge base: the index is reset first so a failure
// never leaves searchable chunks pointing at deleted files.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	if err := s.store.RemoveAll(); err != nil {
		return fmt.Errorf("remove documents: %w", err)
	}
	s.logger.Info("knowledge base cleared")
	return nil
}
