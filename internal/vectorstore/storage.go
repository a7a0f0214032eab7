package vectorstore

import "agentrag/internal/domain"

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 5

// Storage holds embedding vectors alongside ordered chunk metadata and supports
// nearest-neighbour search. model names the embedding model that produced the
// vectors; a store only ever accepts vectors from one model.
type Storage interface {
	Add(model string, vectors [][]float32, chunks []domain.Chunk) ([]domain.Chunk, error)
	Search(model string, vector []float32, topK int) ([]domain.SearchResult, error)
	Len() int
	Dimension() int
	Model() string
}
