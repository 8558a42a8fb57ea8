// Package fewshot implements the Few-shot Summarizer (spec.md §4.J): it
// condenses an over-long instruction prompt to a word-limited
// description for the agent_instructions catalogue. Grounded on
// pkg/reasoning/reflection.go's single-fixed-system-prompt LLM call
// pattern, narrowed to plain-text (no structured-output schema) since
// the summarizer only ever produces a short description string.
package fewshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mentals-ai/mentals/internal/convcontext"
	"github.com/mentals-ai/mentals/internal/llmclient"
)

// summarizerTemperature is fixed per spec.md §4.J.
const summarizerTemperature = 0.0

// Summarizer condenses instruction prompts via an LLMClient.
type Summarizer struct {
	client llmclient.Client
}

// New constructs a Summarizer backed by client.
func New(client llmclient.Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize returns prompt unchanged when its word count is within
// wordLimit+5 (spec.md §4.J); otherwise it issues a single temperature-0
// LLM call with a fixed system prompt and returns the model's content.
func (s *Summarizer) Summarize(ctx context.Context, prompt string, wordLimit int) (string, error) {
	if countWords(prompt) <= wordLimit+5 {
		return prompt, nil
	}

	messages := []convcontext.Message{
		{Role: convcontext.RoleSystem, Content: systemPrompt(wordLimit)},
		{Role: convcontext.RoleUser, Content: prompt},
	}

	resp, err := s.client.ChatCompletion(ctx, messages, summarizerTemperature)
	if err != nil {
		return "", fmt.Errorf("fewshot: summarize: %w", err)
	}
	return resp.Content, nil
}

func systemPrompt(wordLimit int) string {
	return fmt.Sprintf(
		"Act as a description generator for text. Summarize the user's message into a single, concise description. Not more than %d words.",
		wordLimit,
	)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
