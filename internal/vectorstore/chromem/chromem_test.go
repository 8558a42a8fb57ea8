package chromem

import (
	"context"
	"testing"

	"github.com/mentals-ai/mentals/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteContentThenSearchContentRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateCollection(ctx, "docs", vectorstore.EmbeddingModel{Name: "test", Dimension: 3}))

	tx, err := s.CreateTransaction(ctx)
	require.NoError(t, err)

	require.NoError(t, s.WriteContent(ctx, tx, "docs", vectorstore.Chunk{
		ContentID: "c1", ChunkID: "0", Content: "hello world", Vector: []float32{1, 0, 0},
	}))
	require.NoError(t, s.CommitTransaction(ctx, tx))

	rows, err := s.SearchContent(ctx, "docs", []float32{1, 0, 0}, 1, vectorstore.MetricCosine)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello world", rows[0].Content)
	assert.Equal(t, "c1", rows[0].ContentID)
}

func TestWriteContentRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateCollection(ctx, "docs", vectorstore.EmbeddingModel{Dimension: 3}))

	tx, err := s.CreateTransaction(ctx)
	require.NoError(t, err)

	err = s.WriteContent(ctx, tx, "docs", vectorstore.Chunk{ContentID: "c1", ChunkID: "0", Vector: []float32{1, 2}})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestListCollectionsReturnsDeclaredDimension(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateCollection(ctx, "alpha", vectorstore.EmbeddingModel{Dimension: 4}))
	require.NoError(t, s.CreateCollection(ctx, "beta", vectorstore.EmbeddingModel{Dimension: 8}))

	cols, err := s.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "alpha", cols[0].Name)
	assert.Equal(t, 4, cols[0].Model.Dimension)
	assert.Equal(t, "beta", cols[1].Name)
	assert.Equal(t, 8, cols[1].Model.Dimension)
}

func TestDeleteCollectionRemovesIt(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateCollection(ctx, "docs", vectorstore.EmbeddingModel{Dimension: 2}))
	require.NoError(t, s.DeleteCollection(ctx, "docs"))

	cols, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, cols)
}
