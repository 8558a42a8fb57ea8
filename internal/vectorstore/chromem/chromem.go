// Package chromem implements vectorstore.Store against an in-process
// github.com/philippgille/chromem-go database, grounded on
// pkg/vector/chromem.go's identity-embedding-function pattern (vectors
// are always pre-computed upstream by internal/embedclient, never
// embedded by the store itself). No running server is required, so
// this adapter backs in-process tests and the --list-collections CLI
// path when no external vector-store config is given.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	chromemgo "github.com/philippgille/chromem-go"

	"github.com/mentals-ai/mentals/internal/vectorstore"
)

var errIdentityEmbedCalled = fmt.Errorf("vectorstore/chromem: embedding function invoked but vectors are always pre-computed")

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by an in-process chromem-go
// database.
type Store struct {
	mu          sync.RWMutex
	db          *chromemgo.DB
	collections map[string]*chromemgo.Collection
	dimensions  map[string]int
}

// New constructs a Store with an empty in-memory database.
func New() *Store {
	return &Store{
		db:          chromemgo.NewDB(),
		collections: make(map[string]*chromemgo.Collection),
		dimensions:  make(map[string]int),
	}
}

func (s *Store) Connect(ctx context.Context) error { return nil }

func (s *Store) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]vectorstore.CollectionInfo, len(names))
	for i, name := range names {
		out[i] = vectorstore.CollectionInfo{
			Name:  name,
			Model: vectorstore.EmbeddingModel{Dimension: s.dimensions[name]},
		}
	}
	return out, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, model vectorstore.EmbeddingModel) error {
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errIdentityEmbedCalled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return fmt.Errorf("vectorstore/chromem: collection %s already exists", name)
	}
	col, err := s.db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return fmt.Errorf("vectorstore/chromem: create collection %s: %w", name, err)
	}
	s.collections[name] = col
	s.dimensions[name] = model.Dimension
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("vectorstore/chromem: delete collection %s: %w", name, err)
	}
	delete(s.collections, name)
	delete(s.dimensions, name)
	return nil
}

// txn batches writes that land in the collection only on commit: chromem
// has no native transaction primitive, so writes are staged in memory
// and flushed to the collection by CommitTransaction.
type txn struct {
	id      string
	pending []pendingWrite
}

type pendingWrite struct {
	partition string
	doc       chromemgo.Document
}

func (t *txn) ID() string { return t.id }

func (s *Store) CreateTransaction(ctx context.Context) (vectorstore.Txn, error) {
	return &txn{id: uuid.NewString()}, nil
}

func (s *Store) CommitTransaction(ctx context.Context, t vectorstore.Txn) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/chromem: commit: foreign transaction handle")
	}

	byPartition := make(map[string][]chromemgo.Document)
	for _, w := range pt.pending {
		byPartition[w.partition] = append(byPartition[w.partition], w.doc)
	}

	for partition, docs := range byPartition {
		s.mu.RLock()
		col, ok := s.collections[partition]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("vectorstore/chromem: commit: unknown partition %s", partition)
		}
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("vectorstore/chromem: commit: %w", err)
		}
	}
	return nil
}

func (s *Store) WriteContent(ctx context.Context, t vectorstore.Txn, partition string, chunk vectorstore.Chunk) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/chromem: write: foreign transaction handle")
	}

	s.mu.RLock()
	dim, known := s.dimensions[partition]
	s.mu.RUnlock()
	if known && dim != len(chunk.Vector) {
		return vectorstore.ErrDimensionMismatch
	}

	metadata := map[string]string{
		"content_id": chunk.ContentID,
		"chunk_id":   chunk.ChunkID,
		"name":       chunk.Name,
	}
	for k, v := range chunk.Meta {
		metadata[k] = v
	}

	pt.pending = append(pt.pending, pendingWrite{
		partition: partition,
		doc: chromemgo.Document{
			ID:        chunk.ContentID + ":" + chunk.ChunkID,
			Content:   chunk.Content,
			Metadata:  metadata,
			Embedding: chunk.Vector,
		},
	})
	return nil
}

func (s *Store) SearchContent(ctx context.Context, partition string, query []float32, k int, metric vectorstore.Metric) ([]vectorstore.Row, error) {
	s.mu.RLock()
	col, ok := s.collections[partition]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vectorstore/chromem: unknown partition %s", partition)
	}

	// chromem-go rejects nResults greater than the collection's document
	// count rather than clamping it, so cap k here; the teacher's own
	// pkg/vector/chromem.go passes topK through unclamped and relies on
	// callers never over-asking.
	if n := col.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/chromem: search: %w", err)
	}

	out := make([]vectorstore.Row, len(results))
	for i, r := range results {
		meta := make(map[string]string, len(r.Metadata))
		for mk, mv := range r.Metadata {
			if mk == "content_id" || mk == "chunk_id" || mk == "name" {
				continue
			}
			meta[mk] = mv
		}
		out[i] = vectorstore.Row{
			Content:   r.Content,
			ContentID: r.Metadata["content_id"],
			ChunkID:   r.Metadata["chunk_id"],
			Distance:  1 - r.Similarity,
			Name:      r.Metadata["name"],
			Meta:      meta,
		}
	}
	return out, nil
}
