// Package retrieval answers "which indexed chunks are closest to this query".
package retrieval

import (
	"context"
	"fmt"

	"agentrag/internal/domain"
	"agentrag/internal/message"
	"agentrag/internal/vectorstore"
)

// Engine embeds queries with the same embedder used at ingestion and searches the index.
type Engine struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	topK     int
}

func NewEngine(embedder domain.Embedder, store vectorstore.Storage, topK int) *Engine {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	return &Engine{embedder: embedder, store: store, topK: topK}
}

// TopK returns the engine's default result count.
func (e *Engine) TopK() int { return e.topK }

// Retrieve returns up to k chunks ranked by ascending distance to query.
// k <= 0 uses the engine default.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = e.topK
	}
	if e.store.Len() == 0 {
		return []domain.SearchResult{}, nil
	}
	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vecs))
	}
	results, err := e.store.Search(e.embedder.Name(), vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Chunks drops the distances, keeping rank order.
func Chunks(results []domain.SearchResult) []domain.Chunk {
	out := make([]domain.Chunk, len(results))
	for i, r := range results {
		out[i] = r.Chunk
	}
	return out
}

// SourceLine renders the citation for a chunk.
func SourceLine(c domain.Chunk) string {
	return fmt.Sprintf("Source: %s, Type: %s, Chunk ID: %d", c.DocumentName, c.DocumentType, c.ChunkID)
}

// Result builds the RETRIEVAL_RESULT payload for query.
func Result(query string, results []domain.SearchResult) message.RetrievalResult {
	p := message.RetrievalResult{
		RetrievedContext:      make([]string, len(results)),
		SourceContextMetadata: make([]string, len(results)),
		Query:                 query,
	}
	for i, r := range results {
		p.RetrievedContext[i] = r.Chunk.Text
		p.SourceContextMetadata[i] = SourceLine(r.Chunk)
	}
	return p
}
