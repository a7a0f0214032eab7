package ingestion

import (
	"context"
	"fmt"

	"agentrag/internal/domain"
	"agentrag/internal/message"
	"agentrag/internal/vectorstore"
)

// Indexer embeds parsed chunks and appends them to the vector store.
type Indexer struct {
	embedder  domain.Embedder
	store     vectorstore.Storage
	batchSize int
}

// DefaultEmbedBatch bounds how many chunks go to the embedder per call.
const DefaultEmbedBatch = 64

func NewIndexer(embedder domain.Embedder, store vectorstore.Storage) *Indexer {
	return &Indexer{embedder: embedder, store: store, batchSize: DefaultEmbedBatch}
}

// Index always returns a valid INDEXING_COMPLETE payload. On failure its Error
// field carries err's text, err is returned as well, and the store is untouched.
func (ix *Indexer) Index(ctx context.Context, doc message.DocumentParsed) (message.IndexingComplete, error) {
	out := message.IndexingComplete{
		DocumentName: doc.DocumentName,
		DocumentType: doc.DocumentType,
		ChunkIDs:     []int{},
	}
	stored, err := ix.index(ctx, doc)
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	for _, c := range stored {
		out.ChunkIDs = append(out.ChunkIDs, c.ChunkID)
	}
	return out, nil
}

func (ix *Indexer) index(ctx context.Context, doc message.DocumentParsed) ([]domain.Chunk, error) {
	if len(doc.Chunks) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(doc.Chunks))
	for start := 0; start < len(doc.Chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(doc.Chunks))
		vecs, err := ix.embedder.Embed(ctx, doc.Chunks[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", doc.DocumentName, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed %s: %w: %d texts, %d vectors", doc.DocumentName, domain.ErrLengthMismatch, end-start, len(vecs))
		}
		vectors = append(vectors, vecs...)
	}

	chunks := make([]domain.Chunk, len(doc.Chunks))
	for i, text := range doc.Chunks {
		chunks[i] = domain.Chunk{
			Text:         text,
			DocumentName: doc.DocumentName,
			DocumentType: doc.DocumentType,
		}
	}
	stored, err := ix.store.Add(ix.embedder.Name(), vectors, chunks)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", doc.DocumentName, err)
	}
	return stored, nil
}
