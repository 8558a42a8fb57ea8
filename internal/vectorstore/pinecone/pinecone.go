// Package pinecone implements vectorstore.Store against a Pinecone
// index via github.com/pinecone-io/go-pinecone, grounded on
// pkg/databases/pinecone.go: one partition maps to one Pinecone index,
// resolved to its host via DescribeIndex before each IndexConnection is
// opened (Pinecone's Go client has no persistent per-index handle).
// Index lifecycle (create/delete) is a Pinecone control-plane operation
// outside the vector-upsert API this client wraps, so CreateCollection
// and DeleteCollection mirror the teacher's own punt: CreateCollection
// verifies the index already exists and DeleteCollection reports the
// operation as unsupported here.
package pinecone

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mentals-ai/mentals/internal/vectorstore"
)

// Config addresses a Pinecone project.
type Config struct {
	APIKey string
	Host   string
}

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by Pinecone, one index per
// partition name.
type Store struct {
	client     *pinecone.Client
	dimensions map[string]int
}

// New constructs a Store.
func New(cfg Config) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vectorstore/pinecone: API key is required")
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey, Host: cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pinecone: create client: %w", err)
	}
	return &Store{client: client, dimensions: make(map[string]int)}, nil
}

func (s *Store) Connect(ctx context.Context) error {
	if _, err := s.client.ListIndexes(ctx); err != nil {
		return fmt.Errorf("vectorstore/pinecone: connect: %w", err)
	}
	return nil
}

func (s *Store) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pinecone: list collections: %w", err)
	}
	out := make([]vectorstore.CollectionInfo, len(indexes))
	for i, idx := range indexes {
		out[i] = vectorstore.CollectionInfo{
			Name:  idx.Name,
			Model: vectorstore.EmbeddingModel{Dimension: int(idx.Dimension)},
		}
	}
	return out, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, model vectorstore.EmbeddingModel) error {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("vectorstore/pinecone: list indexes: %w", err)
	}
	for _, idx := range indexes {
		if idx.Name == name {
			s.dimensions[name] = model.Dimension
			return nil
		}
	}
	return fmt.Errorf("vectorstore/pinecone: index %s does not exist; create it via the Pinecone console or control-plane API first", name)
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return fmt.Errorf("vectorstore/pinecone: index deletion is not supported through this adapter; delete index %s via the Pinecone console or control-plane API", name)
}

func (s *Store) getIndexConnection(ctx context.Context, indexName string) (*pinecone.IndexConnection, error) {
	index, err := s.client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pinecone: describe index %s: %w", indexName, err)
	}
	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: index.Host})
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pinecone: connect to index %s: %w", indexName, err)
	}
	return conn, nil
}

// txn has no server-side counterpart in Pinecone; vectors are batched
// in memory and upserted per-index on commit.
type txn struct {
	id      string
	pending map[string][]*pinecone.Vector
}

func (t *txn) ID() string { return t.id }

func (s *Store) CreateTransaction(ctx context.Context) (vectorstore.Txn, error) {
	return &txn{id: uuid.NewString(), pending: make(map[string][]*pinecone.Vector)}, nil
}

func (s *Store) CommitTransaction(ctx context.Context, t vectorstore.Txn) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/pinecone: commit: foreign transaction handle")
	}
	for indexName, vectors := range pt.pending {
		conn, err := s.getIndexConnection(ctx, indexName)
		if err != nil {
			return err
		}
		_, err = conn.UpsertVectors(ctx, vectors)
		conn.Close()
		if err != nil {
			return fmt.Errorf("vectorstore/pinecone: commit upsert to %s: %w", indexName, err)
		}
	}
	return nil
}

func (s *Store) WriteContent(ctx context.Context, t vectorstore.Txn, partition string, chunk vectorstore.Chunk) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/pinecone: write: foreign transaction handle")
	}
	if dim, known := s.dimensions[partition]; known && dim != len(chunk.Vector) {
		return vectorstore.ErrDimensionMismatch
	}

	metadataFields := map[string]interface{}{
		"content":    chunk.Content,
		"content_id": chunk.ContentID,
		"chunk_id":   chunk.ChunkID,
		"name":       chunk.Name,
	}
	for k, v := range chunk.Meta {
		metadataFields[k] = v
	}
	metadata, err := structpb.NewStruct(metadataFields)
	if err != nil {
		return fmt.Errorf("vectorstore/pinecone: convert metadata: %w", err)
	}

	pt.pending[partition] = append(pt.pending[partition], &pinecone.Vector{
		Id:       chunk.ContentID + ":" + chunk.ChunkID,
		Values:   chunk.Vector,
		Metadata: metadata,
	})
	return nil
}

func (s *Store) SearchContent(ctx context.Context, partition string, query []float32, k int, metric vectorstore.Metric) ([]vectorstore.Row, error) {
	conn, err := s.getIndexConnection(ctx, partition)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          query,
		TopK:            uint32(k),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pinecone: search content: %w", err)
	}

	out := make([]vectorstore.Row, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.Vector == nil {
			continue
		}
		row := vectorstore.Row{Distance: m.Score, Meta: make(map[string]string)}
		if m.Vector.Metadata != nil {
			fields := m.Vector.Metadata.AsMap()
			for k, v := range fields {
				str, _ := v.(string)
				switch k {
				case "content":
					row.Content = str
				case "content_id":
					row.ContentID = str
				case "chunk_id":
					row.ChunkID = str
				case "name":
					row.Name = str
				default:
					row.Meta[k] = str
				}
			}
		}
		out = append(out, row)
	}
	return out, nil
}
