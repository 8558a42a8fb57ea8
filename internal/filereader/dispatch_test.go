package filereader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDispatchesTxtByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0644))

	content, err := New().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "plain text", content)
}

func TestReadWithUnsupportedExtensionReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := New().Read(context.Background(), path)
	assert.Error(t, err)
}
