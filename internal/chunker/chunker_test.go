package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunkerDefaultGrouping(t *testing.T) {
	c, err := New(StrategySentences, 2)
	require.NoError(t, err)

	chunks, err := c.Process("One. Two. Three. Four. Five.")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "One. Two.", chunks[0])
	assert.Equal(t, "Three. Four.", chunks[1])
	assert.Equal(t, "Five.", chunks[2])
}

func TestSentenceChunkerEmptyInput(t *testing.T) {
	c, err := New(StrategySentences, 0)
	require.NoError(t, err)

	chunks, err := c.Process("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSentenceChunkerIdempotentOnReprocessedOutput(t *testing.T) {
	// P7: chunking a chunker's own output with n=1 reproduces the same
	// sentence boundaries (idempotence of the split itself).
	c, err := New(StrategySentences, 1)
	require.NoError(t, err)

	first, err := c.Process("Alpha. Beta. Gamma.")
	require.NoError(t, err)

	second, err := c.Process(strings.Join(first, " "))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParagraphChunkerSplitsOnBlankLines(t *testing.T) {
	c, err := New(StrategyParagraph, 0)
	require.NoError(t, err)

	chunks, err := c.Process("first para\nstill first\n\nsecond para\n\n\nthird para")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "first para\nstill first", chunks[0])
	assert.Equal(t, "second para", chunks[1])
	assert.Equal(t, "third para", chunks[2])
}

func TestWindowChunkerOverlap(t *testing.T) {
	c, err := New(StrategyWindow, 10)
	require.NoError(t, err)

	chunks, err := c.Process(strings.Repeat("a", 25))
	require.NoError(t, err)
	require.True(t, len(chunks) >= 3)
	for _, ch := range chunks {
		assert.True(t, len(ch) <= 10)
	}
}

func TestUnknownStrategyRejected(t *testing.T) {
	_, err := New(Strategy("bogus"), 0)
	require.Error(t, err)
}

func TestInvalidUTF8Rejected(t *testing.T) {
	c, err := New(StrategySentences, 5)
	require.NoError(t, err)

	_, err = c.Process(string([]byte{0xff, 0xfe, 0xfd}))
	require.Error(t, err)
}
