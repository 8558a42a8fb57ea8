// Package chunker implements the Chunker component (spec.md §4.A): split
// UTF-8 text into an ordered sequence of chunk strings under a bounded
// policy. Grounded on pkg/rag/chunker.go's strategy-registry shape
// (a Chunker interface with a factory over named strategies), narrowed to
// the policies spec.md actually names: sentence-count (default), page,
// paragraph, and sliding-window-with-overlap.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunker splits text into an ordered sequence of chunk strings.
// Replaceable without affecting downstream pipeline stages (spec.md §4.A).
type Chunker interface {
	Process(text string) ([]string, error)
}

// Strategy identifies a chunking policy.
type Strategy string

const (
	StrategySentences Strategy = "sentences" // default: N sentences per chunk
	StrategyParagraph Strategy = "paragraph"
	StrategyPage      Strategy = "page"
	StrategyWindow    Strategy = "window" // sliding window with overlap
)

// DefaultSentencesPerChunk is the default N for the sentence-count policy.
const DefaultSentencesPerChunk = 20

// New constructs a Chunker for the given strategy and its parameter n.
// For StrategySentences and StrategyWindow, n is the sentence count /
// window size respectively; n<=0 selects the strategy's own default.
func New(strategy Strategy, n int) (Chunker, error) {
	switch strategy {
	case "", StrategySentences:
		if n <= 0 {
			n = DefaultSentencesPerChunk
		}
		return &sentenceChunker{n: n}, nil
	case StrategyParagraph:
		return &paragraphChunker{}, nil
	case StrategyPage:
		return &pageChunker{}, nil
	case StrategyWindow:
		if n <= 0 {
			n = 2000
		}
		overlap := n / 10
		return &windowChunker{size: n, overlap: overlap}, nil
	default:
		return nil, fmt.Errorf("chunker: unknown strategy %q", strategy)
	}
}

// sentenceChunker is the default policy: split on '.', strip leading
// whitespace of each sentence, re-append '.', accumulate N sentences per
// chunk, emit any partial trailing chunk.
type sentenceChunker struct {
	n int
}

func (s *sentenceChunker) Process(text string) ([]string, error) {
	if len(text) == 0 {
		return []string{}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("chunker: input is not valid UTF-8")
	}

	rawSentences := strings.Split(text, ".")
	sentences := make([]string, 0, len(rawSentences))
	for _, raw := range rawSentences {
		trimmed := strings.TrimLeft(raw, " \t\n\r")
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, trimmed+".")
	}

	if len(sentences) == 0 {
		return []string{}, nil
	}

	chunks := make([]string, 0, (len(sentences)+s.n-1)/s.n)
	for i := 0; i < len(sentences); i += s.n {
		end := i + s.n
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
	}
	return chunks, nil
}

// paragraphChunker splits on blank-line boundaries, one paragraph per chunk.
type paragraphChunker struct{}

func (p *paragraphChunker) Process(text string) ([]string, error) {
	if len(text) == 0 {
		return []string{}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("chunker: input is not valid UTF-8")
	}

	parts := strings.Split(text, "\n\n")
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks, nil
}

// pageChunker splits on the ASCII form-feed page-break character.
type pageChunker struct{}

func (p *pageChunker) Process(text string) ([]string, error) {
	if len(text) == 0 {
		return []string{}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("chunker: input is not valid UTF-8")
	}

	parts := strings.Split(text, "\f")
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks, nil
}

// windowChunker produces fixed-size, overlapping windows over the raw
// text (character count, not sentence-aware).
type windowChunker struct {
	size    int
	overlap int
}

func (w *windowChunker) Process(text string) ([]string, error) {
	if len(text) == 0 {
		return []string{}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("chunker: input is not valid UTF-8")
	}

	runes := []rune(text)
	step := w.size - w.overlap
	if step <= 0 {
		step = w.size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + w.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
