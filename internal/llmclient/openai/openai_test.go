package openai

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

func TestChatCompletionReturnsContent(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		resp := chatResponse{}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: "hello there"}}}
		resp.Usage.CompletionTokens = 5
		resp.Usage.TotalTokens = 20
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "k", Endpoint: server.URL, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	messages := []convcontext.Message{
		{Role: convcontext.RoleSystem, Content: "you are helpful"},
		{Role: convcontext.RoleUser, Content: "hi"},
	}
	resp, err := c.ChatCompletion(context.Background(), messages, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 5, resp.CompletionTokens)
	assert.Equal(t, 20, resp.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", received.Model)
	assert.Equal(t, 0.2, received.Temperature)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "hi", received.Messages[1].Content)
}

func TestChatCompletionUsesMaxCompletionTokensForOSeriesModels(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		resp := chatResponse{}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Content: "ok"}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "k", Endpoint: server.URL, Model: "o1-preview"})
	require.NoError(t, err)

	_, err = c.ChatCompletion(context.Background(), []convcontext.Message{{Role: "user", Content: "hi"}}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0, received.MaxTokens)
	assert.NotZero(t, received.MaxCompletionTokens)
}

func TestChatCompletionPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Error = &struct {
			Message string `json:"message"`
		}{Message: "invalid api key"}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "k", Endpoint: server.URL})
	require.NoError(t, err)

	_, err = c.ChatCompletion(context.Background(), []convcontext.Message{{Role: "user", Content: "hi"}}, 0.1)
	require.Error(t, err)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSetProviderAndSetModel(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	c.SetProvider("https://example.com/v1", "new-key")
	c.SetModel("gpt-4o")
	assert.Equal(t, "gpt-4o", c.Model())
	assert.Equal(t, "https://example.com/v1", c.endpoint)
	assert.Equal(t, "new-key", c.apiKey)
}
