package domain

import (
	"context"
	"path/filepath"
	"strings"
)

// DocumentType tags the source format of an uploaded document.
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeDOCX DocumentType = "docx"
	DocumentTypePPTX DocumentType = "pptx"
	DocumentTypeCSV  DocumentType = "csv"
	DocumentTypeText DocumentType = "txt_md"
)

// DocumentTypeFromPath maps a file extension to its document type.
// The second return value is false for unrecognised extensions.
func DocumentTypeFromPath(path string) (DocumentType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return DocumentTypePDF, true
	case ".docx":
		return DocumentTypeDOCX, true
	case ".pptx":
		return DocumentTypePPTX, true
	case ".csv":
		return DocumentTypeCSV, true
	case ".txt", ".md":
		return DocumentTypeText, true
	default:
		return "", false
	}
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePDF, DocumentTypeDOCX, DocumentTypePPTX, DocumentTypeCSV, DocumentTypeText:
		return true
	}
	return false
}

// Chunk is a bounded window of a document's text, the unit of indexing.
// ChunkID is its absolute position in the index at insertion time.
type Chunk struct {
	Text         string
	DocumentName string
	DocumentType DocumentType
	ChunkID      int
}

// SearchResult pairs an indexed chunk with its squared Euclidean distance to the query.
type SearchResult struct {
	Chunk    Chunk
	Distance float32
}

// Embedder converts text into fixed-length vectors.
// Name identifies the model; vectors from different models are not comparable.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits plain text into overlapping windows.
type Chunker interface {
	Split(text string) ([]string, error)
}

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, docType DocumentType) (string, error)
}

// Generator synthesises an answer to query from the given context passages.
type Generator interface {
	Generate(ctx context.Context, contexts []string, query string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
