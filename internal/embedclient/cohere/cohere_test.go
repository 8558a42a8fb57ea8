package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedReturnsVectorFromServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.5, 0.6}}})
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, 1024, c.Dimension())

	vec, err := c.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, vec)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestDimensionOverrideForLightModel(t *testing.T) {
	c, err := New(Config{APIKey: "k", Model: "embed-english-light-v3.0"})
	require.NoError(t, err)
	assert.Equal(t, 384, c.Dimension())
}
