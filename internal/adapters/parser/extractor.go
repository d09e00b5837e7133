// Package parser provides document text extraction adapters.
// Clean Architecture: Adapter implementing ports.DocumentExtractor.
// Dispatch is by file extension: .pdf, .docx, .txt and .md are supported.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

// Document kinds recorded in chunk metadata.
const (
	KindPDF  = "pdf"
	KindDOCX = "docx"
	KindText = "text"
)

// Extractor implements ports.DocumentExtractor for the supported formats.
type Extractor struct{}

// NewExtractor creates a new multi-format extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether the filename's extension can be extracted.
func (e *Extractor) Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".txt", ".md":
		return true
	}
	return false
}

// Extract reads the file and returns its kind tag and plain text.
func (e *Extractor) Extract(ctx context.Context, path string) (string, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := extractPDF(path)
		if err != nil {
			return "", "", fmt.Errorf("extracting pdf: %w", err)
		}
		return KindPDF, text, nil
	case ".docx":
		text, err := extractDOCX(path)
		if err != nil {
			return "", "", fmt.Errorf("extracting docx: %w", err)
		}
		return KindDOCX, text, nil
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("reading text file: %w", err)
		}
		return KindText, string(data), nil
	}
	return "", "", entities.ErrUnsupportedType
}
