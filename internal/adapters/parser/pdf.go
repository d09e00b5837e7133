package parser

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the plain text of a PDF file.
func extractPDF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("creating PDF reader: %w", err)
	}

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading PDF content: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return "", err
	}
	return buf.String(), nil
}
