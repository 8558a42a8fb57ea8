// Package anthropic implements llmclient.Client against the Anthropic
// Messages API, grounded on llms/anthropic.go's AnthropicRequest/Response
// shapes, narrowed to plain text content (no tool_use content blocks:
// this runtime's tool-call protocol lives in message content, §4.I) and
// to the non-streaming path.
package anthropic

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

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Config configures the Anthropic Messages API adapter.
type Config struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatResponse struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var _ llmclient.Client = (*Client)(nil)

// Client is an llmclient.Client backed by the Anthropic Messages API.
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
		return nil, fmt.Errorf("llmclient/anthropic: API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
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

// ChatCompletion sends messages to the Anthropic Messages API. Anthropic
// carries system prompts out-of-band from the message list (a "system"
// top-level field, not a "system"-role message), so every system-role
// message, wherever it appears, is concatenated into Request.System and excluded from
// Request.Messages.
func (c *Client) ChatCompletion(ctx context.Context, messages []convcontext.Message, temperature float64) (llmclient.ChatResponse, error) {
	var system string
	var chatMessages []message
	for _, m := range messages {
		if m.Role == convcontext.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		role := m.Role
		if role == convcontext.RoleTool {
			role = convcontext.RoleUser
		}
		chatMessages = append(chatMessages, message{Role: role, Content: m.Content})
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    chatMessages,
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
		System:      system,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: decoding response: %w", err)
	}
	if parsed.Error != nil {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return llmclient.ChatResponse{}, fmt.Errorf("llmclient/anthropic: status %d: %s", resp.StatusCode, string(respBody))
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return llmclient.ChatResponse{
		Content:          text,
		CompletionTokens: parsed.Usage.OutputTokens,
		TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}, nil
}
