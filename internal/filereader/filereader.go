// Package filereader defines the FileReader capability (spec.md §6): a
// decoder from TXT/PDF/DOCX files on disk to plain text, consumed by the
// Pipeline Runtime's FileReaderToStringBuffer stage (S5).
package filereader

import "context"

// Reader decodes the file at path to plain text.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}
