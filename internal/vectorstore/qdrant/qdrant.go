// Package qdrant implements vectorstore.Store against a Qdrant server
// via github.com/qdrant/go-client, grounded on pkg/databases/qdrant.go
// (collection-exists check before create, NewVectorsConfig/PointStruct
// upsert shape, payload-as-metadata conversion via qdrant.NewValue, and
// SearchPoints through GetPointsClient().Search).
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mentals-ai/mentals/internal/vectorstore"
)

// Config addresses a Qdrant instance.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by a Qdrant server.
type Store struct {
	client     *qdrant.Client
	dimensions map[string]int
}

// New constructs a Store and dials the Qdrant gRPC endpoint.
func New(cfg Config) (*Store, error) {
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore/qdrant: create client for %s:%d: %w", cfg.Host, port, err)
	}
	return &Store{client: client, dimensions: make(map[string]int)}, nil
}

// Connect verifies the gRPC connection by probing collection existence;
// qdrant.NewClient already dials eagerly, so this is a liveness check
// rather than the connection step itself.
func (s *Store) Connect(ctx context.Context) error {
	if _, err := s.client.CollectionExists(ctx, "__mentals_connect_probe__"); err != nil {
		return fmt.Errorf("vectorstore/qdrant: connect: %w", err)
	}
	return nil
}

func (s *Store) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/qdrant: list collections: %w", err)
	}
	out := make([]vectorstore.CollectionInfo, len(names))
	for i, name := range names {
		out[i] = vectorstore.CollectionInfo{Name: name, Model: vectorstore.EmbeddingModel{Dimension: s.dimensions[name]}}
	}
	return out, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, model vectorstore.EmbeddingModel) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("vectorstore/qdrant: check collection %s: %w", name, err)
	}
	if exists {
		return fmt.Errorf("vectorstore/qdrant: collection %s already exists", name)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(model.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore/qdrant: create collection %s: %w", name, err)
	}
	s.dimensions[name] = model.Dimension
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("vectorstore/qdrant: delete collection %s: %w", name, err)
	}
	delete(s.dimensions, name)
	return nil
}

// writeEntry pairs a point with its destination collection; qdrant's
// PointStruct itself carries no collection reference.
type writeEntry struct {
	collection string
	point      *qdrant.PointStruct
}

// txn has no server-side counterpart in Qdrant; points are batched in
// memory and upserted per-collection on commit.
type txn struct {
	id      string
	pending []writeEntry
}

func (t *txn) ID() string { return t.id }

func (s *Store) CreateTransaction(ctx context.Context) (vectorstore.Txn, error) {
	return &txn{id: uuid.NewString()}, nil
}

func (s *Store) CommitTransaction(ctx context.Context, t vectorstore.Txn) error {
	qt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/qdrant: commit: foreign transaction handle")
	}
	byCollection := make(map[string][]*qdrant.PointStruct)
	for _, w := range qt.pending {
		byCollection[w.collection] = append(byCollection[w.collection], w.point)
	}
	for collectionName, points := range byCollection {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: collectionName, Points: points})
		if err != nil {
			return fmt.Errorf("vectorstore/qdrant: commit upsert to %s: %w", collectionName, err)
		}
	}
	return nil
}

func (s *Store) WriteContent(ctx context.Context, t vectorstore.Txn, partition string, chunk vectorstore.Chunk) error {
	qt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/qdrant: write: foreign transaction handle")
	}
	if dim, known := s.dimensions[partition]; known && dim != len(chunk.Vector) {
		return vectorstore.ErrDimensionMismatch
	}

	payload := make(map[string]*qdrant.Value)
	for key, value := range map[string]string{
		"content":    chunk.Content,
		"content_id": chunk.ContentID,
		"chunk_id":   chunk.ChunkID,
		"name":       chunk.Name,
	} {
		v, err := qdrant.NewValue(value)
		if err != nil {
			return fmt.Errorf("vectorstore/qdrant: convert payload field %s: %w", key, err)
		}
		payload[key] = v
	}
	for k, v := range chunk.Meta {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return fmt.Errorf("vectorstore/qdrant: convert metadata field %s: %w", k, err)
		}
		payload[k] = val
	}

	qt.pending = append(qt.pending, writeEntry{
		collection: partition,
		point: &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ContentID + ":" + chunk.ChunkID),
			Vectors: qdrant.NewVectors(chunk.Vector...),
			Payload: payload,
		},
	})
	return nil
}

func (s *Store) SearchContent(ctx context.Context, partition string, query []float32, k int, metric vectorstore.Metric) ([]vectorstore.Row, error) {
	searchRequest := &qdrant.SearchPoints{
		CollectionName: partition,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	result, err := s.client.GetPointsClient().Search(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/qdrant: search content: %w", err)
	}

	out := make([]vectorstore.Row, len(result.Result))
	for i, sp := range result.Result {
		row := vectorstore.Row{Distance: sp.Score, Meta: make(map[string]string)}
		for pk, pv := range sp.Payload {
			switch pk {
			case "content":
				row.Content = pv.GetStringValue()
			case "content_id":
				row.ContentID = pv.GetStringValue()
			case "chunk_id":
				row.ChunkID = pv.GetStringValue()
			case "name":
				row.Name = pv.GetStringValue()
			default:
				row.Meta[pk] = pv.GetStringValue()
			}
		}
		out[i] = row
	}
	return out, nil
}
