package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askinvoice/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	known     map[string]bool
	existsErr error
	storeErr  error
	removed   []string
	listErr   error
}

func newMockStore(names ...string) *mockStore {
	m := &mockStore{known: map[string]bool{}}
	for _, n := range names {
		m.known[n] = true
	}
	return m
}

func (m *mockStore) List() ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.known))
	for n := range m.known {
		names = append(names, n)
	}
	return names, nil
}

func (m *mockStore) Exists(name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.known[name], nil
}

func (m *mockStore) Store(name string, _ []byte) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.known[name] = true
	return nil
}

func (m *mockStore) Remove(name string) error {
	delete(m.known, name)
	m.removed = append(m.removed, name)
	return nil
}

func (m *mockStore) RemoveAll() error {
	m.known = map[string]bool{}
	return nil
}

type mockExtractor struct {
	failFor map[string]bool
	pages   []string
}

func (m *mockExtractor) Extract(name string, _ []byte) (domain.Document, error) {
	if m.failFor[name] {
		return domain.Document{}, fmt.Errorf("broken file: %w", domain.ErrDocumentOpen)
	}
	pages := m.pages
	if pages == nil {
		pages = []string{"Invoice INV001. Total due 100 dollars."}
	}
	return domain.Document{Name: name, Pages: pages}, nil
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 7}, nil
}

type mockMetadata struct {
	meta *domain.InvoiceMetadata
	err  error
}

func (m *mockMetadata) Extract(_ context.Context, _ string) (*domain.InvoiceMetadata, error) {
	return m.meta, m.err
}

type mockIndex struct {
	chunks []domain.Chunk
	addErr error
	resets int
}

func (m *mockIndex) Add(chunks []domain.Chunk, _ [][]float32) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockIndex) Reset() error {
	m.resets++
	m.chunks = nil
	return nil
}

func (m *mockIndex) Len() int { return len(m.chunks) }

func newService(store *mockStore, ext *mockExtractor, emb *mockEmbedder, meta *mockMetadata, idx *mockIndex) *Service {
	return New(store, ext, emb, meta, idx, 0, zap.NewNop())
}

// --- Ingest tests ---

func TestIngest_AddsNewFile(t *testing.T) {
	store := newMockStore()
	idx := &mockIndex{}
	meta := &mockMetadata{meta: &domain.InvoiceMetadata{InvoiceNumber: "INV001", TotalValue: 100}}
	svc := newService(store, &mockExtractor{}, &mockEmbedder{}, meta, idx)

	status, err := svc.Ingest(context.Background(), []File{{Name: "a.pdf", Data: []byte("pdf")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Added != 1 || status.Skipped != 0 || status.Failed != 0 {
		t.Fatalf("status = %+v", status)
	}
	if !store.known["a.pdf"] {
		t.Error("file not stored")
	}
	if len(idx.chunks) == 0 {
		t.Fatal("nothing indexed")
	}
	if idx.chunks[0].Source != "a.pdf" {
		t.Errorf("chunk source = %q", idx.chunks[0].Source)
	}
	if idx.chunks[0].Invoice == nil || idx.chunks[0].Invoice.InvoiceNumber != "INV001" {
		t.Errorf("chunk metadata = %+v", idx.chunks[0].Invoice)
	}
}

func TestIngest_SkipsKnownFile(t *testing.T) {
	store := newMockStore("a.pdf")
	emb := &mockEmbedder{}
	svc := newService(store, &mockExtractor{}, emb, &mockMetadata{}, &mockIndex{})

	status, err := svc.Ingest(context.Background(), []File{{Name: "a.pdf"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Skipped != 1 || status.Added != 0 {
		t.Fatalf("status = %+v", status)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for a known file", emb.calls)
	}
}

func TestIngest_SecondBatchIsIdempotent(t *testing.T) {
	store := newMockStore()
	idx := &mockIndex{}
	svc := newService(store, &mockExtractor{}, &mockEmbedder{}, &mockMetadata{}, idx)

	files := []File{{Name: "a.pdf"}, {Name: "b.pdf"}}
	if _, err := svc.Ingest(context.Background(), files); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	indexed := len(idx.chunks)

	status, err := svc.Ingest(context.Background(), files)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if status.Added != 0 || status.Skipped != 2 {
		t.Fatalf("status = %+v", status)
	}
	if len(idx.chunks) != indexed {
		t.Errorf("index grew from %d to %d on a repeated batch", indexed, len(idx.chunks))
	}
}

func TestIngest_FailedFileDoesNotPoisonBatch(t *testing.T) {
	store := newMockStore()
	ext := &mockExtractor{failFor: map[string]bool{"bad.pdf": true}}
	svc := newService(store, ext, &mockEmbedder{}, &mockMetadata{}, &mockIndex{})

	status, err := svc.Ingest(context.Background(), []File{{Name: "bad.pdf"}, {Name: "good.pdf"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Failed != 1 || status.Added != 1 {
		t.Fatalf("status = %+v", status)
	}
	if len(status.FailedFiles) != 1 || status.FailedFiles[0] != "bad.pdf" {
		t.Errorf("FailedFiles = %v", status.FailedFiles)
	}
	if store.known["bad.pdf"] {
		t.Error("failed file was marked known, retry would be skipped")
	}
}

func TestIngest_EmbedderFailureLeavesFileRetryable(t *testing.T) {
	store := newMockStore()
	emb := &mockEmbedder{err: fmt.Errorf("quota: %w", domain.ErrEmbeddingProvider)}
	svc := newService(store, &mockExtractor{}, emb, &mockMetadata{}, &mockIndex{})

	status, err := svc.Ingest(context.Background(), []File{{Name: "a.pdf"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Failed != 1 {
		t.Fatalf("status = %+v", status)
	}
	if store.known["a.pdf"] {
		t.Error("file marked known despite embedding failure")
	}
}

func TestIngest_MetadataFailureIsBestEffort(t *testing.T) {
	store := newMockStore()
	idx := &mockIndex{}
	meta := &mockMetadata{err: fmt.Errorf("bad json: %w", domain.ErrInvalidMetadata)}
	svc := newService(store, &mockExtractor{}, &mockEmbedder{}, meta, idx)

	status, err := svc.Ingest(context.Background(), []File{{Name: "a.pdf"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Added != 1 {
		t.Fatalf("status = %+v", status)
	}
	if idx.chunks[0].Invoice != nil {
		t.Errorf("chunk carries metadata from a failed extraction: %+v", idx.chunks[0].Invoice)
	}
}

func TestIngest_IndexFailureRollsBackStoredFile(t *testing.T) {
	store := newMockStore()
	idx := &mockIndex{addErr: fmt.Errorf("disk full: %w", domain.ErrPersistence)}
	svc := newService(store, &mockExtractor{}, &mockEmbedder{}, &mockMetadata{}, idx)

	status, err := svc.Ingest(context.Background(), []File{{Name: "a.pdf"}})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if status.Added != 0 {
		t.Fatalf("status = %+v", status)
	}
	if store.known["a.pdf"] {
		t.Error("file still marked known after index failure")
	}
	if len(store.removed) != 1 || store.removed[0] != "a.pdf" {
		t.Errorf("removed = %v", store.removed)
	}
}

func TestIngest_LongDocumentSplitsIntoChunks(t *testing.T) {
	sentences := make([]string, 40)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Line item %d costs %d dollars.", i, i*10)
	}
	store := newMockStore()
	idx := &mockIndex{}
	emb := &mockEmbedder{}
	ext := &mockExtractor{pages: []string{strings.Join(sentences, " ")}}
	svc := newService(store, ext, emb, &mockMetadata{}, idx)

	if _, err := svc.Ingest(context.Background(), []File{{Name: "big.pdf"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(idx.chunks))
	}
	if emb.calls != len(idx.chunks) {
		t.Errorf("embedder calls = %d, chunks = %d", emb.calls, len(idx.chunks))
	}
}

// --- Clear and list tests ---

func TestClear_WipesIndexAndStore(t *testing.T) {
	store := newMockStore("a.pdf", "b.pdf")
	idx := &mockIndex{chunks: []domain.Chunk{{Text: "x", Source: "a.pdf"}}}
	svc := newService(store, &mockExtractor{}, &mockEmbedder{}, &mockMetadata{}, idx)

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.resets != 1 {
		t.Errorf("resets = %d", idx.resets)
	}
	if len(store.known) != 0 {
		t.Errorf("store still holds %d files", len(store.known))
	}
}

func TestListDocuments(t *testing.T) {
	store := newMockStore("a.pdf")
	svc := newService(store, &mockExtractor{}, &mockEmbedder{}, &mockMetadata{}, &mockIndex{})

	names, err := svc.ListDocuments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 || names[0] != "a.pdf" {
		t.Errorf("names = %v", names)
	}
}
