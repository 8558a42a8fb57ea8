package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/mentals-ai/mentals/internal/embedclient"
	"github.com/mentals-ai/mentals/internal/vectorstore"
	"github.com/mentals-ai/mentals/internal/vectorstore/chromem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder embeds deterministically: each distinct text maps to a
// vector by name, with an error possible for selected texts.
type stubEmbedder struct {
	dimension int
	vectors   map[string][]float32
	errs      map[string]error
}

var _ embedclient.Client = (*stubEmbedder)(nil)

func (s *stubEmbedder) Model() string  { return "stub" }
func (s *stubEmbedder) Dimension() int { return s.dimension }

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err, ok := s.errs[text]; ok {
		return nil, err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, s.dimension), nil
}

func (s *stubEmbedder) EmbedAsync(ctx context.Context, text string) <-chan embedclient.Result {
	return embedclient.RunAsync(ctx, s.Embed, text)
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestProcessChunksThenWriteChunksReportsFailedChunkIDs(t *testing.T) {
	ctx := context.Background()

	embedder := &stubEmbedder{
		dimension: 3,
		vectors: map[string][]float32{
			"a.": {1, 0, 0},
			"c.": {0, 1, 0},
		},
		errs: map[string]error{
			"b.": errors.New("embedding backend unavailable"),
		},
	}
	store := chromem.New()
	ctrl, err := New(embedder, store)
	require.NoError(t, err)

	require.NoError(t, ctrl.CreateCollection(ctx, "col"))

	var progressed []float64
	ctrl.SetProgressCallback(func(f float64) { progressed = append(progressed, f) })

	ctrl.ProcessChunks(ctx, []string{"a.", "b.", "c."}, "t.txt", nil)

	failed, err := ctrl.WriteChunks(ctx, "col")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, failed)
	assert.Equal(t, []float64{1.0 / 3, 2.0 / 3, 1.0}, progressed)

	assert.Zero(t, ctrl.ProcessedBytes())
	assert.Zero(t, ctrl.ProcessedTokens())

	rows, err := ctrl.ReadChunks(ctx, "col", "a.", 10)
	require.NoError(t, err)
	contentIDs := make(map[string]bool)
	for _, r := range rows {
		contentIDs[r.ChunkID] = true
	}
	assert.True(t, contentIDs["0"])
	assert.True(t, contentIDs["2"])
	assert.False(t, contentIDs["1"])
}

func TestWriteChunksWithNoPendingIsNoop(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{dimension: 2}
	store := chromem.New()
	ctrl, err := New(embedder, store)
	require.NoError(t, err)

	failed, err := ctrl.WriteChunks(ctx, "col")
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestNewRequiresEmbedderAndStore(t *testing.T) {
	_, err := New(nil, chromem.New())
	assert.Error(t, err)

	_, err = New(&stubEmbedder{dimension: 2}, nil)
	assert.Error(t, err)
}
