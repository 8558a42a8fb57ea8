// Package vectorstore defines the VectorStore capability (spec.md §6):
// collection management, transactional chunk writes, and similarity
// search. Grounded on pkg/databases's DatabaseProvider interface family
// (Qdrant/Pinecone/Chroma) and original_source/src/pgvector.h's
// connect/list_collections/create_collection/write_content/
// search_content contract, narrowed to the partitioned-write shape
// spec.md §4.D's Memory Controller actually drives.
package vectorstore

import (
	"context"
	"errors"
)

// EmbeddingModel tags a collection with the embedding model (and thus
// dimension) it was created for, per I7.
type EmbeddingModel struct {
	Name      string
	Dimension int
}

// Chunk is one unit written to a partition by WriteContent.
type Chunk struct {
	ContentID string
	ChunkID   string
	Content   string
	Vector    []float32
	Name      string
	Meta      map[string]string
}

// Row is one result of SearchContent.
type Row struct {
	Content   string
	ContentID string
	ChunkID   string
	Distance  float32
	Name      string
	Meta      map[string]string
}

// Metric selects the similarity function used by SearchContent.
type Metric int

const (
	MetricCosine Metric = iota
	MetricEuclidean
	MetricDotProduct
)

// Txn identifies an in-flight transaction opened by CreateTransaction.
type Txn interface {
	ID() string
}

// CollectionInfo describes a collection returned by ListCollections,
// widened from a bare name to (name, model) per original_source's
// pgvector.cpp::list_collections returning dimension alongside name.
type CollectionInfo struct {
	Name  string
	Model EmbeddingModel
}

// ErrDimensionMismatch is returned by WriteContent when a chunk's
// embedding length disagrees with its partition's declared model
// dimension (I7).
var ErrDimensionMismatch = errors.New("vectorstore: embedding dimension does not match partition's declared model")

// ErrNotConnected is returned by any operation attempted before Connect
// has succeeded.
var ErrNotConnected = errors.New("vectorstore: not connected")

// Store is the VectorStore capability: connect, manage collections, and
// read/write vectors through a transaction.
type Store interface {
	Connect(ctx context.Context) error
	ListCollections(ctx context.Context) ([]CollectionInfo, error)
	CreateCollection(ctx context.Context, name string, model EmbeddingModel) error
	DeleteCollection(ctx context.Context, name string) error
	CreateTransaction(ctx context.Context) (Txn, error)
	CommitTransaction(ctx context.Context, txn Txn) error
	WriteContent(ctx context.Context, txn Txn, partition string, chunk Chunk) error
	SearchContent(ctx context.Context, partition string, query []float32, k int, metric Metric) ([]Row, error)
}
