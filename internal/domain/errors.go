package domain

import "errors"

var (
	// ErrInvalidChunkingParameters is returned when window/overlap do not satisfy 0 <= overlap < window.
	ErrInvalidChunkingParameters = errors.New("invalid chunking parameters")
	// ErrUnsupportedFormat is returned for document types no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction is returned when a document's content cannot be parsed.
	ErrExtraction = errors.New("text extraction failed")
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingModelMismatch is returned when vectors come from a different embedding model than the index.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
	// ErrLengthMismatch is returned when vectors and chunk metadata differ in count.
	ErrLengthMismatch = errors.New("vectors and chunks length mismatch")
	// ErrGeneration is returned when the generation service fails.
	ErrGeneration = errors.New("answer generation failed")
)
