package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want DocumentType
		ok   bool
	}{
		{"report.pdf", DocumentTypePDF, true},
		{"/tmp/Notes.DOCX", DocumentTypeDOCX, true},
		{"deck.pptx", DocumentTypePPTX, true},
		{"sales.csv", DocumentTypeCSV, true},
		{"readme.md", DocumentTypeText, true},
		{"plain.txt", DocumentTypeText, true},
		{"image.png", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := DocumentTypeFromPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentType_Valid(t *testing.T) {
	assert.True(t, DocumentTypeCSV.Valid())
	assert.True(t, DocumentTypeText.Valid())
	assert.False(t, DocumentType("xlsx").Valid())
	assert.False(t, DocumentType("").Valid())
}
