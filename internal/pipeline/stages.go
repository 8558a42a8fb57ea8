package pipeline

import (
	"context"
	"fmt"

	"github.com/mentals-ai/mentals/internal/chunker"
)

// FileReaderToStringBuffer is S5's ingest stage: path -> decoded text.
// Grounded on original_source/src/main.cpp's PipelineFactory, which names
// this exact stage first in the ingestion pipeline it builds for
// --path/--collection.
type fileReaderStage struct {
	reader FileReader
}

// FileReader decodes the file at path to plain text. Satisfied by
// *filereader.Dispatcher.
type FileReader interface {
	Read(ctx context.Context, path string) (string, error)
}

// NewFileReaderToStringBuffer constructs the "FileReaderToStringBuffer"
// stage factory, bound to reader.
func NewFileReaderToStringBuffer(reader FileReader) Factory {
	return func() Stage { return &fileReaderStage{reader: reader} }
}

func (s *fileReaderStage) Name() string       { return "FileReaderToStringBuffer" }
func (s *fileReaderStage) InputType() string  { return "path" }
func (s *fileReaderStage) OutputType() string { return "string" }

func (s *fileReaderStage) Process(ctx context.Context, input any) (any, error) {
	path, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("pipeline: FileReaderToStringBuffer expects a string path, got %T", input)
	}
	return s.reader.Read(ctx, path)
}

// StringBufferToChunkBuffer is S5's chunking stage: decoded text -> an
// ordered slice of chunk strings, produced through the configured Chunker
// (spec.md §4.A).
type chunkBufferStage struct {
	chunker chunker.Chunker
}

// NewStringBufferToChunkBuffer constructs the "StringBufferToChunkBuffer"
// stage factory, bound to c.
func NewStringBufferToChunkBuffer(c chunker.Chunker) Factory {
	return func() Stage { return &chunkBufferStage{chunker: c} }
}

func (s *chunkBufferStage) Name() string       { return "StringBufferToChunkBuffer" }
func (s *chunkBufferStage) InputType() string  { return "string" }
func (s *chunkBufferStage) OutputType() string { return "chunkbuffer" }

func (s *chunkBufferStage) Process(ctx context.Context, input any) (any, error) {
	text, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("pipeline: StringBufferToChunkBuffer expects a string, got %T", input)
	}
	return s.chunker.Process(text)
}

// MemoryController is the embed-and-write capability the tail stage
// drains into. Satisfied by *memory.Controller.
type MemoryController interface {
	ProcessChunks(ctx context.Context, chunks []string, name string, meta map[string]string) string
	WriteChunks(ctx context.Context, partition string) ([]int, error)
}

// chunkBufferToMemoryControllerStage is S5's tail stage: a chunk slice ->
// the generated content_id, after a ProcessChunks/WriteChunks round trip
// against the configured partition.
type chunkBufferToMemoryControllerStage struct {
	controller MemoryController
	partition  string
	name       string
	meta       map[string]string
}

// NewChunkBufferToMemoryController constructs the
// "ChunkBufferToMemoryController" stage factory: every chunk slice it
// receives is embedded and written to partition, tagged name/meta.
func NewChunkBufferToMemoryController(controller MemoryController, partition, name string, meta map[string]string) Factory {
	return func() Stage {
		return &chunkBufferToMemoryControllerStage{controller: controller, partition: partition, name: name, meta: meta}
	}
}

func (s *chunkBufferToMemoryControllerStage) Name() string       { return "ChunkBufferToMemoryController" }
func (s *chunkBufferToMemoryControllerStage) InputType() string  { return "chunkbuffer" }
func (s *chunkBufferToMemoryControllerStage) OutputType() string { return "content_id" }

func (s *chunkBufferToMemoryControllerStage) Process(ctx context.Context, input any) (any, error) {
	chunks, ok := input.([]string)
	if !ok {
		return nil, fmt.Errorf("pipeline: ChunkBufferToMemoryController expects []string, got %T", input)
	}
	contentID := s.controller.ProcessChunks(ctx, chunks, s.name, s.meta)
	if _, err := s.controller.WriteChunks(ctx, s.partition); err != nil {
		return nil, fmt.Errorf("pipeline: write chunks for partition %q: %w", s.partition, err)
	}
	return contentID, nil
}
