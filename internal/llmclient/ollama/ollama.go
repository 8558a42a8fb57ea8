// Package ollama implements llmclient.Client against a local Ollama
// server's /api/chat endpoint, grounded on pkg/llms/ollama.go's
// OllamaRequest/OllamaMessage shapes, narrowed to plain content (no
// native tool_calls field: this runtime's tool-call protocol lives in
// message content, §4.I) and to the non-streaming path.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mentals-ai/mentals/internal/convcontext"
	"github.com/mentals-ai/mentals/internal/httpclient"
	"github.com/mentals-ai/mentals/internal/llmclient"
)

const defaultBaseURL = "http://localhost:11434"

// Config configures the Ollama chat adapter.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Message        chatMessage `json:"message"`
	PromptTokens   int         `json:"prompt_eval_count"`
	ResponseTokens int         `json:"eval_count"`
	Error          string      `json:"error,omitempty"`
}

var _ llmclient.Client = (*Client)(nil)

// Client is an llmclient.Client backed by a local Ollama server.
type Client struct {
	http    *httpclient.Client
	baseURL string
	model   string
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		http:    httpclient.New(timeout),
		baseURL: baseURL,
		model:   model,
	}, nil
}

func (c *Client) Model() string { return c.model }

func (c *Client) SetProvider(endpoint, apiKey string) {
	if endpoint != "" {
		c.baseURL = endpoint
	}
}

func (c *Client) SetModel(name string) { c.model = name }

func (c *Client) ChatCompletion(ctx context.Context, messages []convcontext.Message, temperature float64) (llmclient.ChatResponse, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	req := chatRequest{
		Model:    c.model,
		Messages: chatMessages,
		Stream:   false,
		Options:  &chatOptions{Temperature: temperature},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: decoding response: %w", err)
	}
	if parsed.Error != "" {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: %s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/ollama: status %d: %s", resp.StatusCode, string(respBody))
	}

	return llmclient.ChatResponse{
		Content:          parsed.Message.Content,
		CompletionTokens: parsed.ResponseTokens,
		TotalTokens:      parsed.PromptTokens + parsed.ResponseTokens,
	}, nil
}
