// Package llmclient defines the LLMClient capability (spec.md §6): a
// single chat_completion round trip against a chat-completions backend.
// Grounded on llms/openai.go's OpenAIProvider / llms/anthropic.go's
// AnthropicProvider, narrowed to the non-streaming request/response path
// (the Agent Executor's execute() loop, §4.I, issues one synchronous
// chat_completion call per step; it has no use for incremental deltas).
package llmclient

import (
	"context"

	"github.com/mentals-ai/mentals/internal/convcontext"
)

// ChatResponse is the normalized result of a chat_completion call,
// matching spec.md §6's "Response MUST include choices[].message.content
// and may include usage.{completion_tokens,total_tokens}".
type ChatResponse struct {
	Content          string
	CompletionTokens int
	TotalTokens      int
}

// Client issues chat_completion calls against one chat-completions
// backend, and can be re-pointed at a different endpoint/model/key at
// runtime (spec.md §6's set_provider/set_model).
type Client interface {
	ChatCompletion(ctx context.Context, messages []convcontext.Message, temperature float64) (ChatResponse, error)
	SetProvider(endpoint, apiKey string)
	SetModel(name string)
	Model() string
}
