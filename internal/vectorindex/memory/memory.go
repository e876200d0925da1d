// Package memory is an in-process vector index using brute-force cosine
// similarity. It backs tests and local runs without a Qdrant instance.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"newsrag/internal/domain"
)

// Index implements domain.VectorIndex over slices guarded by a mutex.
// Vectors are assumed L2-normalized, so the dot product is the cosine score.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   [][]float32
	payloads  []domain.ChunkPayload
}

func New() *Index { return &Index{} }

// EnsureCollection fixes the dimension on first call and no-ops afterwards.
func (ix *Index) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("memory index: invalid dimension")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension == 0 {
		ix.dimension = dimension
		return nil
	}
	if ix.dimension != dimension {
		return fmt.Errorf("memory index: dimension %d conflicts with existing %d", dimension, ix.dimension)
	}
	return nil
}

// Upsert assigns a fresh opaque id to every entry and stores the batch whole.
func (ix *Index) Upsert(_ context.Context, entries []domain.IndexEntry) ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension == 0 {
		return nil, errors.New("memory index: collection not initialized")
	}
	for i, e := range entries {
		if len(e.Vector) != ix.dimension {
			return nil, fmt.Errorf("memory index: entry %d has dimension %d, want %d", i, len(e.Vector), ix.dimension)
		}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id := uuid.NewString()
		ids = append(ids, id)
		ix.ids = append(ix.ids, id)
		ix.vectors = append(ix.vectors, e.Vector)
		ix.payloads = append(ix.payloads, e.Payload)
	}
	return ids, nil
}

// Search scores every stored vector and returns the topK by descending
// similarity. Ties keep insertion order.
func (ix *Index) Search(_ context.Context, vector []float32, topK int) ([]domain.RetrievalResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	idxs := make([]int, len(ix.vectors))
	scores := make([]float32, len(ix.vectors))
	for i, v := range ix.vectors {
		idxs[i] = i
		scores[i] = dot(v, vector)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.RetrievalResult, 0, topK)
	for _, i := range idxs[:topK] {
		results = append(results, domain.RetrievalResult{
			EntryID: ix.ids[i],
			Score:   scores[i],
			Payload: ix.payloads[i],
		})
	}
	return results, nil
}

func (ix *Index) Stats(_ context.Context) (domain.IndexStats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return domain.IndexStats{EntryCount: uint64(len(ix.ids))}, nil
}

// Clear drops all entries but keeps the dimension, mirroring a
// destroy-and-recreate of the backing collection.
func (ix *Index) Clear(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ids = nil
	ix.vectors = nil
	ix.payloads = nil
	return nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
