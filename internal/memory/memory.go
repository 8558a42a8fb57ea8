// Package memory implements the Memory Controller (spec.md §4.D): fan-out
// embedding of a chunk batch, transactional write to a vector-store
// partition, and top-k retrieval, with running byte/token counters and a
// progress callback. Grounded on original_source/include/memory_controller.h
// (process_chunks/write_chunks/read_chunks contract, per-chunk async
// embedding future, unconditional commit on write_chunks) and
// pkg/memory/vector_memory.go (embed-then-upsert wiring shape, metadata
// carried alongside the vector).
package memory

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mentals-ai/mentals/internal/embedclient"
	"github.com/mentals-ai/mentals/internal/vectorstore"
)

// ProgressFunc is invoked with a monotonically increasing fractional
// completion (0..1) while WriteChunks drains pending embeddings. It must
// not call back into the Controller.
type ProgressFunc func(fraction float64)

// task is one chunk's in-flight embedding, tagged by its batch content_id
// and position within the batch.
type task struct {
	contentID string
	chunkID   int
	content   string
	name      string
	meta      map[string]string
	result    chan taskResult
}

type taskResult struct {
	vector []float32
	err    error
}

// Controller is the Memory Controller. It is not safe for concurrent use
// across ProcessChunks/WriteChunks calls: the append-only phase
// (ProcessChunks) and the drain-only phase (WriteChunks) must not
// overlap for the same Controller instance.
type Controller struct {
	embedder embedclient.Client
	store    vectorstore.Store
	progress ProgressFunc

	mu             sync.Mutex
	pending        []*task
	processedBytes int64
	processedToks  int
}

// New constructs a Controller over the given embedding client and vector
// store. Both are required.
func New(embedder embedclient.Client, store vectorstore.Store) (*Controller, error) {
	if embedder == nil {
		return nil, fmt.Errorf("memory: embedding client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("memory: vector store is required")
	}
	return &Controller{embedder: embedder, store: store}, nil
}

// SetProgressCallback registers the callback invoked during WriteChunks.
func (c *Controller) SetProgressCallback(f ProgressFunc) {
	c.progress = f
}

// ProcessedBytes reports bytes accumulated since the last WriteChunks.
func (c *Controller) ProcessedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processedBytes
}

// ProcessedTokens reports the estimated token count accumulated since
// the last WriteChunks. The embedding client interface does not surface
// provider usage metadata, so this is a byte/4 heuristic rather than an
// exact count from the API response.
func (c *Controller) ProcessedTokens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processedToks
}

// CreateCollection creates a store partition tagged with this
// Controller's current embedding model (I7).
func (c *Controller) CreateCollection(ctx context.Context, collection string) error {
	return c.store.CreateCollection(ctx, collection, vectorstore.EmbeddingModel{
		Name:      c.embedder.Model(),
		Dimension: c.embedder.Dimension(),
	})
}

// DeleteCollection deletes a store partition.
func (c *Controller) DeleteCollection(ctx context.Context, collection string) error {
	return c.store.DeleteCollection(ctx, collection)
}

// ProcessChunks generates a fresh content_id for the batch and spawns one
// independent embedding goroutine per chunk, tagged (content_id,
// chunk_id). It returns the generated content_id; the embeddings
// themselves are buffered internally until WriteChunks drains them.
func (c *Controller) ProcessChunks(ctx context.Context, chunks []string, name string, meta map[string]string) string {
	contentID := newContentID()

	c.mu.Lock()
	defer c.mu.Unlock()

	for chunkID, raw := range chunks {
		cleaned := raw
		if !isValidUTF8(raw) {
			slog.Warn("memory: invalid UTF-8 in chunk, stripping", "content_id", contentID, "chunk_id", chunkID)
			cleaned = strings.ToValidUTF8(raw, "")
		}

		c.processedBytes += int64(len(cleaned))
		c.processedToks += estimateTokens(cleaned)

		t := &task{
			contentID: contentID,
			chunkID:   chunkID,
			content:   cleaned,
			name:      name,
			meta:      meta,
			result:    make(chan taskResult, 1),
		}
		c.pending = append(c.pending, t)

		go func(t *task) {
			slog.Info("memory: embedding started", "content_id", t.contentID, "chunk_id", t.chunkID)
			vector, err := c.embedder.Embed(ctx, t.content)
			if err != nil {
				slog.Error("memory: embedding failed", "content_id", t.contentID, "chunk_id", t.chunkID, "error", err)
			} else {
				slog.Info("memory: embedding completed", "content_id", t.contentID, "chunk_id", t.chunkID)
			}
			t.result <- taskResult{vector: vector, err: err}
			close(t.result)
		}(t)
	}

	return contentID
}

// WriteChunks awaits every pending embedding in submission order, writes
// each success through a single store transaction, and commits the
// transaction unconditionally — even if some chunks failed (P3). It
// returns the chunk_ids that failed to embed or write, clears all
// internal buffers and counters, and reports progress monotonically.
func (c *Controller) WriteChunks(ctx context.Context, partition string) ([]int, error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	totalBytes := c.processedBytes
	totalTokens := c.processedToks
	c.processedBytes = 0
	c.processedToks = 0
	c.mu.Unlock()

	if len(pending) == 0 {
		return nil, nil
	}

	txn, err := c.store.CreateTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: create transaction: %w", err)
	}

	var failed []int
	for i, t := range pending {
		res := <-t.result
		if res.err != nil {
			slog.Error("memory: chunk failed", "content_id", t.contentID, "chunk_id", t.chunkID, "error", res.err)
			failed = append(failed, t.chunkID)
		} else {
			chunk := vectorstore.Chunk{
				ContentID: t.contentID,
				ChunkID:   fmt.Sprintf("%d", t.chunkID),
				Content:   t.content,
				Vector:    res.vector,
				Name:      t.name,
				Meta:      t.meta,
			}
			if writeErr := c.store.WriteContent(ctx, txn, partition, chunk); writeErr != nil {
				slog.Error("memory: write failed", "content_id", t.contentID, "chunk_id", t.chunkID, "error", writeErr)
				failed = append(failed, t.chunkID)
			} else {
				slog.Info("memory: chunk written", "content_id", t.contentID, "chunk_id", t.chunkID)
			}
		}

		if c.progress != nil {
			c.progress(float64(i+1) / float64(len(pending)))
		}
	}

	if err := c.store.CommitTransaction(ctx, txn); err != nil {
		return failed, fmt.Errorf("memory: commit transaction: %w", err)
	}

	slog.Info("memory: write_chunks complete",
		"written", len(pending)-len(failed),
		"failed", len(failed),
		"processed_tokens", totalTokens,
		"processed_bytes", totalBytes,
	)

	return failed, nil
}

// ReadChunks embeds query under the Controller's current model and runs
// a cosine-similarity top-k search against partition.
func (c *Controller) ReadChunks(ctx context.Context, partition, query string, k int) ([]vectorstore.Row, error) {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}
	rows, err := c.store.SearchContent(ctx, partition, vector, k, vectorstore.MetricCosine)
	if err != nil {
		return nil, fmt.Errorf("memory: search content: %w", err)
	}
	return rows, nil
}

// newContentID hashes the current time in milliseconds followed by a random
// value and keeps the first 8 hex digits, mirroring convcontext's
// Message.content_id scheme.
func newContentID() string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d%d", time.Now().UnixMilli(), rand.Int63())))
	return fmt.Sprintf("%x", sum)[:8]
}

func isValidUTF8(s string) bool {
	return strings.ToValidUTF8(s, "") == s
}

// estimateTokens approximates token count at roughly 4 bytes per token,
// the common heuristic for English text, since the embedding client
// interface does not surface provider usage metadata.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
