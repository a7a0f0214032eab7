// Package extract turns uploaded document bytes into plain text, one extractor per format.
package extract

import (
	"context"
	"fmt"

	"agentrag/internal/domain"
)

var _ domain.Extractor = (*Registry)(nil)

// Func extracts text from a single format.
type Func func(ctx context.Context, data []byte) (string, error)

// Registry dispatches extraction by document type.
type Registry struct {
	byType map[domain.DocumentType]Func
}

// NewRegistry returns a registry with every built-in format registered.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[domain.DocumentType]Func)}
	r.Register(domain.DocumentTypeText, Text)
	r.Register(domain.DocumentTypeCSV, CSV)
	r.Register(domain.DocumentTypeDOCX, DOCX)
	r.Register(domain.DocumentTypePPTX, PPTX)
	r.Register(domain.DocumentTypePDF, PDF)
	return r
}

// Register sets (or replaces) the extractor for t.
func (r *Registry) Register(t domain.DocumentType, fn Func) {
	r.byType[t] = fn
}

// Extract runs the extractor registered for docType.
func (r *Registry) Extract(ctx context.Context, data []byte, docType domain.DocumentType) (string, error) {
	fn, ok := r.byType[docType]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, docType)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fn(ctx, data)
}

func extractionError(format string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrExtraction, format, err)
}
