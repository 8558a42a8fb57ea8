// Package chroma implements vectorstore.Store against a Chroma server
// over its v1 REST API, grounded on pkg/databases/chroma.go (get-or-
// create collection semantics, add/query JSON payload shapes, distance-
// to-similarity conversion).
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mentals-ai/mentals/internal/httpclient"
	"github.com/mentals-ai/mentals/internal/vectorstore"
)

// Config addresses a Chroma server.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

func (c Config) baseURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	port := c.Port
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, port)
}

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by a Chroma server's REST API.
type Store struct {
	http       *httpclient.Client
	baseURL    string
	apiKey     string
	dimensions map[string]int
}

// New constructs a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("vectorstore/chroma: host is required")
	}
	return &Store{
		http:       httpclient.New(30 * time.Second),
		baseURL:    cfg.baseURL(),
		apiKey:     cfg.APIKey,
		dimensions: make(map[string]int),
	}, nil
}

func (s *Store) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("vectorstore/chroma: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/chroma: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}
	return req, nil
}

func (s *Store) Connect(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/api/v1/collections", nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("vectorstore/chroma: connect: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (s *Store) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/api/v1/collections", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/chroma: list collections: %w", err)
	}
	defer resp.Body.Close()

	var collections []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&collections); err != nil {
		return nil, fmt.Errorf("vectorstore/chroma: decode collections: %w", err)
	}

	out := make([]vectorstore.CollectionInfo, len(collections))
	for i, c := range collections {
		out[i] = vectorstore.CollectionInfo{Name: c.Name, Model: vectorstore.EmbeddingModel{Dimension: s.dimensions[c.Name]}}
	}
	return out, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, model vectorstore.EmbeddingModel) error {
	req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+"/api/v1/collections", map[string]any{
		"name":          name,
		"metadata":      map[string]any{},
		"get_or_create": false,
	})
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("vectorstore/chroma: create collection %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vectorstore/chroma: create collection %s: status %d: %s", name, resp.StatusCode, string(body))
	}
	s.dimensions[name] = model.Dimension
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, s.baseURL+"/api/v1/collections/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("vectorstore/chroma: delete collection %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vectorstore/chroma: delete collection %s: status %d: %s", name, resp.StatusCode, string(body))
	}
	delete(s.dimensions, name)
	return nil
}

// txn has no server-side counterpart in Chroma; adds are batched in
// memory per collection and posted on commit.
type txn struct {
	id      string
	pending map[string]chromaBatch
}

type chromaBatch struct {
	ids        []string
	embeddings [][]float64
	documents  []string
	metadatas  []map[string]any
}

func (t *txn) ID() string { return t.id }

func (s *Store) CreateTransaction(ctx context.Context) (vectorstore.Txn, error) {
	return &txn{id: uuid.NewString(), pending: make(map[string]chromaBatch)}, nil
}

func (s *Store) CommitTransaction(ctx context.Context, t vectorstore.Txn) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/chroma: commit: foreign transaction handle")
	}
	for collection, batch := range pt.pending {
		req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+"/api/v1/collections/"+collection+"/add", map[string]any{
			"ids":        batch.ids,
			"embeddings": batch.embeddings,
			"documents":  batch.documents,
			"metadatas":  batch.metadatas,
		})
		if err != nil {
			return err
		}
		resp, err := s.http.Do(req)
		if err != nil {
			return fmt.Errorf("vectorstore/chroma: commit add to %s: %w", collection, err)
		}
		status := resp.StatusCode
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if status != http.StatusOK && status != http.StatusCreated {
			return fmt.Errorf("vectorstore/chroma: commit add to %s: status %d: %s", collection, status, string(body))
		}
	}
	return nil
}

func (s *Store) WriteContent(ctx context.Context, t vectorstore.Txn, partition string, chunk vectorstore.Chunk) error {
	pt, ok := t.(*txn)
	if !ok {
		return fmt.Errorf("vectorstore/chroma: write: foreign transaction handle")
	}
	if dim, known := s.dimensions[partition]; known && dim != len(chunk.Vector) {
		return vectorstore.ErrDimensionMismatch
	}

	vector64 := make([]float64, len(chunk.Vector))
	for i, v := range chunk.Vector {
		vector64[i] = float64(v)
	}

	metadata := map[string]any{"content_id": chunk.ContentID, "chunk_id": chunk.ChunkID, "name": chunk.Name}
	for k, v := range chunk.Meta {
		metadata[k] = v
	}

	batch := pt.pending[partition]
	batch.ids = append(batch.ids, chunk.ContentID+":"+chunk.ChunkID)
	batch.embeddings = append(batch.embeddings, vector64)
	batch.documents = append(batch.documents, chunk.Content)
	batch.metadatas = append(batch.metadatas, metadata)
	pt.pending[partition] = batch
	return nil
}

func (s *Store) SearchContent(ctx context.Context, partition string, query []float32, k int, metric vectorstore.Metric) ([]vectorstore.Row, error) {
	vector64 := make([]float64, len(query))
	for i, v := range query {
		vector64[i] = float64(v)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+"/api/v1/collections/"+partition+"/query", map[string]any{
		"query_embeddings": [][]float64{vector64},
		"n_results":        k,
	})
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore/chroma: search content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorstore/chroma: search content: status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		IDs       [][]string         `json:"ids"`
		Distances [][]float64        `json:"distances"`
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("vectorstore/chroma: decode search response: %w", err)
	}
	if len(result.IDs) == 0 {
		return nil, nil
	}

	ids, distances := result.IDs[0], result.Distances[0]
	var docs []string
	if len(result.Documents) > 0 {
		docs = result.Documents[0]
	}
	var metas []map[string]any
	if len(result.Metadatas) > 0 {
		metas = result.Metadatas[0]
	}

	out := make([]vectorstore.Row, 0, len(ids))
	for i := range ids {
		row := vectorstore.Row{Meta: make(map[string]string)}
		if i < len(distances) {
			row.Distance = float32(distances[i])
		}
		if i < len(docs) {
			row.Content = docs[i]
		}
		if i < len(metas) {
			for k, v := range metas[i] {
				str, _ := v.(string)
				switch k {
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
