// Package ollama implements embedclient.Client against a local Ollama
// server's embeddings endpoint, grounded on pkg/embedders/ollama.go
// (request/response shape and the serialize-all-requests workaround for
// Ollama's llama runner crashing on concurrent embedding calls).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mentals-ai/mentals/internal/embedclient"
	"github.com/mentals-ai/mentals/internal/httpclient"
)

const defaultBaseURL = "http://localhost:11434"

// embedMu serializes every Ollama embedding request process-wide: the
// llama runner backing Ollama crashes when it receives concurrent
// embedding requests.
var embedMu sync.Mutex

// Config configures the Ollama embedding adapter.
type Config struct {
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

var _ embedclient.Client = (*Client)(nil)

// Client is an embedclient.Client backed by a local Ollama server.
type Client struct {
	http      *httpclient.Client
	baseURL   string
	model     string
	dimension int
}

// New constructs a Client, defaulting to nomic-embed-text (768-dim).
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 768
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http:      httpclient.New(timeout),
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
	}, nil
}

func (c *Client) Model() string  { return c.model }
func (c *Client) Dimension() int { return c.dimension }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	embedMu.Lock()
	defer embedMu.Unlock()

	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedclient/ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedclient/ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient/ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedclient/ollama: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedclient/ollama: status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedclient/ollama: decoding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedclient/ollama: empty response")
	}
	return parsed.Embedding, nil
}

func (c *Client) EmbedAsync(ctx context.Context, text string) <-chan embedclient.Result {
	return embedclient.RunAsync(ctx, c.Embed, text)
}

// EmbedBatch has no native batch endpoint on Ollama; requests are issued
// sequentially, still serialized through embedMu inside Embed.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
