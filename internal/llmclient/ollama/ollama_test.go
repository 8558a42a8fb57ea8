package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mentals-ai/mentals/internal/convcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionReturnsMessageContent(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		resp := chatResponse{
			Message:        chatMessage{Role: "assistant", Content: "hi"},
			PromptTokens:   3,
			ResponseTokens: 2,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL, Model: "llama3.1"})
	require.NoError(t, err)

	resp, err := c.ChatCompletion(context.Background(), []convcontext.Message{{Role: "user", Content: "hello"}}, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, 2, resp.CompletionTokens)
	assert.Equal(t, 5, resp.TotalTokens)
	assert.False(t, received.Stream)
	assert.Equal(t, 0.3, received.Options.Temperature)
}

func TestChatCompletionPropagatesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Error: "model not found"})
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = c.ChatCompletion(context.Background(), []convcontext.Message{{Role: "user", Content: "hi"}}, 0.1)
	require.Error(t, err)
}
