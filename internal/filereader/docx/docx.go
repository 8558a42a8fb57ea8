// Package docx implements the FileReader capability for Word documents.
// Grounded on pkg/rag/native_parsers.go's officeParser.parseWordDocument,
// narrowed to DOCX only (spec.md names no XLSX requirement).
package docx

import (
	"context"
	"fmt"

	"github.com/nguyenthenguyen/docx"
)

// Reader extracts plain text from DOCX files.
type Reader struct{}

// New constructs a docx.Reader.
func New() *Reader { return &Reader{} }

// Read returns path's editable plain-text content.
func (r *Reader) Read(ctx context.Context, path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("docx: open %s: %w", path, err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}
