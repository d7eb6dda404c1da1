package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads a source document and returns its plain text content.
// PDF files are parsed page by page; .txt and .md files are read verbatim.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ingestion: read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("ingestion: unsupported document type %q", filepath.Ext(path))
	}
}

// extractPDF pulls the plain text out of a PDF file.
func extractPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("ingestion: open pdf %s: %w", path, err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("ingestion: extract pdf text %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("ingestion: read pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}
