package memory

import (
	"fmt"
	"sort"
	"sync"

	"agentrag/internal/domain"
	"agentrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is an in-memory flat index using brute-force squared Euclidean distance.
// vectors[i] is always the embedding of chunks[i].
type Storage struct {
	mu        sync.RWMutex
	model     string
	dimension int
	vectors   [][]float32
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

// Add appends a batch atomically. The first non-empty batch fixes the model and
// dimension; chunk IDs are assigned from the current length.
func (s *Storage) Add(model string, vectors [][]float32, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors, %d chunks", domain.ErrLengthMismatch, len(vectors), len(chunks))
	}
	if len(vectors) == 0 {
		return []domain.Chunk{}, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dims, batch has %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 {
		if model != s.model {
			return nil, fmt.Errorf("%w: index built with %q, got %q", domain.ErrEmbeddingModelMismatch, s.model, model)
		}
		if dim != s.dimension {
			return nil, fmt.Errorf("%w: index has %d dims, batch has %d", domain.ErrDimensionMismatch, s.dimension, dim)
		}
	} else {
		s.model = model
		s.dimension = dim
	}

	base := len(s.chunks)
	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.ChunkID = base + i
		stored[i] = c
		vec := make([]float32, dim)
		copy(vec, vectors[i])
		s.vectors = append(s.vectors, vec)
	}
	s.chunks = append(s.chunks, stored...)

	out := make([]domain.Chunk, len(stored))
	copy(out, stored)
	return out, nil
}

// Search returns up to topK chunks nearest to vector, nearest first, ties by chunk ID.
// An empty index yields no results and no error.
func (s *Storage) Search(model string, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 {
		return []domain.SearchResult{}, nil
	}
	if model != s.model {
		return nil, fmt.Errorf("%w: index built with %q, query from %q", domain.ErrEmbeddingModelMismatch, s.model, model)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: index has %d dims, query has %d", domain.ErrDimensionMismatch, s.dimension, len(vector))
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}

	dists := make([]float32, len(s.vectors))
	for i := range s.vectors {
		dists[i] = squaredL2(s.vectors[i], vector)
	}
	idxs := make([]int, len(dists))
	for i := range idxs {
		idxs[i] = i
	}
	// stable on insertion order, so equal distances keep the lower chunk ID first
	sort.SliceStable(idxs, func(a, b int) bool { return dists[idxs[a]] < dists[idxs[b]] })

	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Chunk: s.chunks[j], Distance: dists[j]})
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Dimension returns the fixed vector dimension, or 0 before the first add.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Model returns the embedding model identity, or "" before the first add.
func (s *Storage) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
