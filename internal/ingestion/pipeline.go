// Package ingestion turns uploaded documents into indexed chunks in two steps.
// Pipeline parses a document into a DOCUMENT_PARSED payload; Indexer embeds and
// stores those chunks and reports the outcome as INDEXING_COMPLETE.
package ingestion

import (
	"context"
	"fmt"

	"agentrag/internal/domain"
	"agentrag/internal/logger"
	"agentrag/internal/message"
)

// Pipeline extracts and chunks documents.
type Pipeline struct {
	extractor domain.Extractor
	chunker   domain.Chunker
}

func NewPipeline(extractor domain.Extractor, chunker domain.Chunker) *Pipeline {
	return &Pipeline{extractor: extractor, chunker: chunker}
}

// Parse extracts text from data and splits it into chunks. Extraction errors
// abort the document; an empty document yields zero chunks.
func (p *Pipeline) Parse(ctx context.Context, name string, docType domain.DocumentType, data []byte) (message.DocumentParsed, error) {
	text, err := p.extractor.Extract(ctx, data, docType)
	if err != nil {
		return message.DocumentParsed{}, fmt.Errorf("extract %s: %w", name, err)
	}
	chunks, err := p.chunker.Split(text)
	if err != nil {
		return message.DocumentParsed{}, fmt.Errorf("chunk %s: %w", name, err)
	}
	logger.Debugw("document parsed", "document", name, "type", docType, "chunks", len(chunks))
	return message.DocumentParsed{
		DocumentName: name,
		DocumentType: docType,
		Chunks:       chunks,
	}, nil
}
