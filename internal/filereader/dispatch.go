package filereader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mentals-ai/mentals/internal/filereader/docx"
	"github.com/mentals-ai/mentals/internal/filereader/pdf"
	"github.com/mentals-ai/mentals/internal/filereader/txt"
)

// Dispatcher picks the Reader for a path's extension, grounded on
// pkg/rag/native_parsers.go's NativeParserRegistry.findParser.
type Dispatcher struct {
	readers map[string]Reader
}

// New constructs a Dispatcher wired with the TXT, PDF and DOCX readers.
func New() *Dispatcher {
	return &Dispatcher{
		readers: map[string]Reader{
			".txt":  txt.New(),
			".pdf":  pdf.New(),
			".docx": docx.New(),
		},
	}
}

// Read dispatches to the reader registered for path's extension.
func (d *Dispatcher) Read(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := d.readers[ext]
	if !ok {
		return "", fmt.Errorf("filereader: no reader registered for extension %q", ext)
	}
	return reader.Read(ctx, path)
}
