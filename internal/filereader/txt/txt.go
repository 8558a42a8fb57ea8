// Package txt implements the FileReader capability for plain-text files.
package txt

import (
	"context"
	"os"
)

// Reader reads a file's raw bytes as UTF-8 text.
type Reader struct{}

// New constructs a txt.Reader.
func New() *Reader { return &Reader{} }

// Read returns path's full contents as a string.
func (r *Reader) Read(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
