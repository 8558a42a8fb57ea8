// Package pdf implements the FileReader capability for PDF documents.
// Grounded on pkg/rag/native_parsers.go's pdfParser: page-by-page plain
// text extraction via github.com/ledongthuc/pdf, concatenated with a
// per-page separator. Context-cancellation checks between pages dropped:
// FileReader.Read has no context-sensitive caller in this module's
// Pipeline Runtime wiring (the stage itself is the cancellation point).
package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader extracts plain text from PDF files.
type Reader struct{}

// New constructs a pdf.Reader.
func New() *Reader { return &Reader{} }

// Read extracts and concatenates the plain text of every page in path.
func (r *Reader) Read(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("pdf: stat %s: %w", path, err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("pdf: parse %s: %w", path, err)
	}

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
