// Package index implements the flat inner-product similarity index backing
// the knowledge base. Vectors are L2-normalized on the way in so that inner
// product equals cosine similarity, and every successful batch addition is
// snapshotted to a single durable artifact.
package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kailas-cloud/askinvoice/internal/domain"
)

// DefaultTopK bounds retrieval when the caller does not ask for a specific k.
const DefaultTopK = 5

// Flat is a brute-force inner-product index over chunk vectors. Reads may run
// concurrently; writes are serialized by the ingestion layer (single-writer
// contract) and additionally guarded here.
type Flat struct {
	mu      sync.RWMutex
	path    string
	dim     int
	chunks  []domain.Chunk
	vectors [][]float32
}

// snapshot is the gob wire form of the persisted artifact.
type snapshot struct {
	Dim     int
	Chunks  []domain.Chunk
	Vectors [][]float32
}

// Load opens the index at path, reading the persisted snapshot when one
// exists. A missing artifact yields an empty index; a corrupt one is a
// persistence error so the caller never silently rebuilds over stale data.
func Load(path string) (*Flat, error) {
	f := &Flat{path: path}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index artifact: %v: %w", err, domain.ErrPersistence)
	}
	defer func() { _ = file.Close() }()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index artifact %s: %v: %w", path, err, domain.ErrPersistence)
	}
	if len(snap.Chunks) != len(snap.Vectors) {
		return nil, fmt.Errorf("index artifact %s: %d chunks vs %d vectors: %w",
			path, len(snap.Chunks), len(snap.Vectors), domain.ErrPersistence)
	}

	f.dim = snap.Dim
	f.chunks = snap.Chunks
	f.vectors = snap.Vectors
	return f, nil
}

// Len returns the number of indexed chunks.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.chunks)
}

// Add appends chunk/vector pairs and persists the updated snapshot before
// returning. Vectors are normalized defensively; the embedding provider is
// not trusted to return unit-norm vectors.
func (f *Flat) Add(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks (%d) and vectors (%d) length mismatch", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if f.dim == 0 && i == 0 && len(f.vectors) == 0 {
			f.dim = len(v)
		}
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has dim %d, index has %d: %w",
				i, len(v), f.dim, domain.ErrVectorDimMismatch)
		}
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		normalized[i] = nv
	}

	f.chunks = append(f.chunks, chunks...)
	f.vectors = append(f.vectors, normalized...)

	if err := f.persistLocked(); err != nil {
		// Roll back the in-memory append so memory and disk cannot disagree.
		f.chunks = f.chunks[:len(f.chunks)-len(chunks)]
		f.vectors = f.vectors[:len(f.vectors)-len(normalized)]
		return err
	}
	return nil
}

// Search returns up to k chunks ranked by inner product with the normalized
// query vector, most similar first. Ties keep insertion order. Searching an
// empty index is domain.ErrEmptyIndex.
func (f *Flat) Search(query []float32, k int) ([]domain.Match, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dim %d, index has %d: %w",
			len(query), f.dim, domain.ErrVectorDimMismatch)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	nq, err := normalize(query)
	if err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	order := make([]int, len(f.vectors))
	scores := make([]float64, len(f.vectors))
	for i, v := range f.vectors {
		order[i] = i
		scores[i] = dot(nq, v)
	}
	// Stable sort keeps earlier-inserted chunks first on equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	matches := make([]domain.Match, k)
	for i := 0; i < k; i++ {
		j := order[i]
		matches[i] = domain.Match{Chunk: f.chunks[j], Score: scores[j]}
	}
	return matches, nil
}

// Reset drops all indexed data and removes the persisted artifact. Part of
// the destructive clear operation; it must fully complete before any new
// ingestion is accepted.
func (f *Flat) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove index artifact: %v: %w", err, domain.ErrPersistence)
	}
	f.dim = 0
	f.chunks = nil
	f.vectors = nil
	return nil
}

// persistLocked writes the snapshot to a temp file in the artifact directory
// and renames it into place, so a reader never observes a half-written file.
func (f *Flat) persistLocked() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create index dir: %v: %w", err, domain.ErrPersistence)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %v: %w", err, domain.ErrPersistence)
	}
	tmpName := tmp.Name()

	snap := snapshot{Dim: f.dim, Chunks: f.chunks, Vectors: f.vectors}
	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode index artifact: %v: %w", err, domain.ErrPersistence)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp artifact: %v: %w", err, domain.ErrPersistence)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace index artifact: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

// normalize returns a unit-norm copy of v.
func normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("zero vector cannot be normalized: %w", domain.ErrEmbeddingProvider)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
