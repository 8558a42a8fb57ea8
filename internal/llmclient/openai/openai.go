// Package openai implements llmclient.Client against the OpenAI chat
// completions endpoint, grounded on llms/openai.go's request/response
// shapes and its o1/o3 max_completion_tokens special-case, with the
// native function-calling fields dropped: this runtime's tool-call
// protocol is carried entirely in message content (spec.md §4.I), not
// in the API's structured tool_calls field.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mentals-ai/mentals/internal/convcontext"
	"github.com/mentals-ai/mentals/internal/httpclient"
	"github.com/mentals-ai/mentals/internal/llmclient"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config configures the OpenAI chat completions adapter.
type Config struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var _ llmclient.Client = (*Client)(nil)

// Client is an llmclient.Client backed by the OpenAI chat completions API.
type Client struct {
	http      *httpclient.Client
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmclient/openai: API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		http:      httpclient.New(timeout),
		endpoint:  endpoint,
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *Client) Model() string { return c.model }

func (c *Client) SetProvider(endpoint, apiKey string) {
	if endpoint != "" {
		c.endpoint = endpoint
	}
	if apiKey != "" {
		c.apiKey = apiKey
	}
}

func (c *Client) SetModel(name string) { c.model = name }

func (c *Client) ChatCompletion(ctx context.Context, messages []convcontext.Message, temperature float64) (llmclient.ChatResponse, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages:    toChatMessages(messages),
	}
	if strings.HasPrefix(c.model, "o1-") || strings.HasPrefix(c.model, "o3-") {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: decoding response: %w", err)
	}
	if parsed.Error != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(parsed.Choices) == 0 {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/openai: no response choices returned")
	}

	return llmclient.ChatResponse{
		Content:          parsed.Choices[0].Message.Content,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}

func toChatMessages(messages []convcontext.Message) []chatMessage {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		out[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
