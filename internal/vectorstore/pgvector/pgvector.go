// Package pgvector implements vectorstore.Store against PostgreSQL +
// the pgvector extension via database/sql and github.com/lib/pq,
// grounded on original_source/src/pgvector.cpp (table-per-collection
// schema, the `<=>` cosine-distance operator) and the teacher's own
// database/sql+lib/pq pattern (pkg/config/dbpool.go). This is the
// reference adapter: config.toml's vdb.{dbname,user,password,
// hostaddr,port} keys address it directly. The config's default vector
// store type is chromem, not pgvector.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/mentals-ai/mentals/internal/vectorstore"
)

// Config addresses a Postgres instance via the same field names as
// config.toml's vdb.* keys.
type Config struct {
	DBName   string
	User     string
	Password string
	HostAddr string
	Port     int
}

func (c Config) dsn() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.HostAddr, port, c.User, c.Password, c.DBName)
}

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by Postgres + pgvector. Each
// collection is its own table; the declared embedding dimension is
// tracked in-process per collection to enforce I7 on writes.
type Store struct {
	db         *sql.DB
	dimensions map[string]int
}

// New constructs a Store. Connect must be called before use.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pgvector: open: %w", err)
	}
	return &Store{db: db, dimensions: make(map[string]int)}, nil
}

func (s *Store) Connect(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("vectorstore/pgvector: connect: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("vectorstore/pgvector: enable pgvector extension: %w", err)
	}
	return nil
}

func (s *Store) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname = 'public'")
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pgvector: list collections: %w", err)
	}
	defer rows.Close()

	var out []vectorstore.CollectionInfo
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("vectorstore/pgvector: scan collection row: %w", err)
		}
		out = append(out, vectorstore.CollectionInfo{
			Name:  name,
			Model: vectorstore.EmbeddingModel{Dimension: s.dimensions[name]},
		})
	}
	return out, rows.Err()
}

func (s *Store) CreateCollection(ctx context.Context, name string, model vectorstore.EmbeddingModel) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = $1)", name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("vectorstore/pgvector: check collection existence: %w", err)
	}
	if exists {
		return fmt.Errorf("vectorstore/pgvector: table %s already exists", name)
	}

	createStmt := fmt.Sprintf(
		`CREATE TABLE %s (
			id bigserial PRIMARY KEY,
			content_id TEXT NOT NULL,
			chunk_id TEXT NOT NULL,
			content TEXT,
			name TEXT,
			embedding vector(%d),
			UNIQUE(content_id, chunk_id)
		)`, quoteIdent(name), model.Dimension)
	if _, err := s.db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("vectorstore/pgvector: create table %s: %w", name, err)
	}
	s.dimensions[name] = model.Dimension
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name))
	if err != nil {
		return fmt.Errorf("vectorstore/pgvector: delete collection %s: %w", name, err)
	}
	delete(s.dimensions, name)
	return nil
}

type txn struct {
	id string
	tx *sql.Tx
}

func (t *txn) ID() string { return t.id }

func (s *Store) CreateTransaction(ctx context.Context) (vectorstore.Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pgvector: begin transaction: %w", err)
	}
	return &txn{id: fmt.Sprintf("%p", tx), tx: tx}, nil
}

func (s *Store) CommitTransaction(ctx context.Context, t vectorstore.Txn) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/pgvector: commit: foreign transaction handle")
	}
	if err := pt.tx.Commit(); err != nil {
		return fmt.Errorf("vectorstore/pgvector: commit transaction: %w", err)
	}
	return nil
}

func (s *Store) WriteContent(ctx context.Context, t vectorstore.Txn, partition string, chunk vectorstore.Chunk) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/pgvector: write: foreign transaction handle")
	}
	if dim, known := s.dimensions[partition]; known && dim != len(chunk.Vector) {
		return vectorstore.ErrDimensionMismatch
	}

	insertStmt := fmt.Sprintf(
		"INSERT INTO %s (content_id, chunk_id, content, name, embedding) VALUES ($1, $2, $3, $4, $5)",
		quoteIdent(partition))
	_, err := pt.tx.ExecContext(ctx, insertStmt, chunk.ContentID, chunk.ChunkID, chunk.Content, chunk.Name, vectorLiteral(chunk.Vector))
	if err != nil {
		return fmt.Errorf("vectorstore/pgvector: write content: %w", err)
	}
	return nil
}

func (s *Store) SearchContent(ctx context.Context, partition string, query []float32, k int, metric vectorstore.Metric) ([]vectorstore.Row, error) {
	op := distanceOperator(metric)
	selectStmt := fmt.Sprintf(
		"SELECT content, content_id, chunk_id, name, embedding %s $1 AS distance FROM %s ORDER BY distance LIMIT %d",
		op, quoteIdent(partition), k)
	rows, err := s.db.QueryContext(ctx, selectStmt, vectorLiteral(query))
	if err != nil {
		return nil, fmt.Errorf("vectorstore/pgvector: search content: %w", err)
	}
	defer rows.Close()

	var out []vectorstore.Row
	for rows.Next() {
		var r vectorstore.Row
		var name sql.NullString
		if err := rows.Scan(&r.Content, &r.ContentID, &r.ChunkID, &name, &r.Distance); err != nil {
			return nil, fmt.Errorf("vectorstore/pgvector: scan search row: %w", err)
		}
		r.Name = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// distanceOperator maps a Metric to pgvector's operator: <=> cosine,
// <-> Euclidean, <#> (negative) inner product.
func distanceOperator(metric vectorstore.Metric) string {
	switch metric {
	case vectorstore.MetricEuclidean:
		return "<->"
	case vectorstore.MetricDotProduct:
		return "<#>"
	default:
		return "<=>"
	}
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
