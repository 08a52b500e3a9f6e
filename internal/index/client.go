// Package index provides the OpenSearch client used by the query
// pipeline. The index itself is owned by the ingestion side; this client
// only reads: lexical search, vector (kNN) search, and metadata filter
// queries.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codectx/codesearch-mcp/internal/config"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

// Client talks to a single OpenSearch index over HTTP.
type Client struct {
	baseURL     string
	indexName   string
	username    string
	password    string
	textField   string
	vectorField string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates an index client from configuration. The underlying
// HTTP client's connection pool is shared across concurrent requests.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.OpenSearchURL, "/"),
		indexName:   cfg.OpenSearchIndex,
		username:    cfg.OpenSearchUser,
		password:    cfg.OpenSearchPassword,
		textField:   cfg.TextField,
		vectorField: cfg.VectorField,
		httpClient:  &http.Client{Timeout: cfg.CallTimeout},
		logger:      logger,
	}
}

// LexicalSearch runs a BM25 match query against the text field and
// returns up to k hits.
func (c *Client) LexicalSearch(ctx context.Context, query string, k int) ([]types.SearchHit, error) {
	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				c.textField: query,
			},
		},
		"_source": map[string]interface{}{
			"excludes": []string{c.vectorField},
		},
	}
	return c.search(ctx, body, types.ModalityLexical)
}

// VectorSearch runs an approximate kNN query against the vector field and
// returns up to k hits.
func (c *Client) VectorSearch(ctx context.Context, vector []float32, k int) ([]types.SearchHit, error) {
	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"knn": map[string]interface{}{
				c.vectorField: map[string]interface{}{
					"vector": vector,
					"k":      k,
				},
			},
		},
		"_source": map[string]interface{}{
			"excludes": []string{c.vectorField},
		},
	}
	return c.search(ctx, body, types.ModalityVector)
}

// FilterChunks returns up to limit full chunks matching the metadata
// filters, ordered by chunk ID for stable output.
func (c *Client) FilterChunks(ctx context.Context, filters map[string]string, limit int) ([]types.Chunk, error) {
	query, err := BuildFilterQuery(filters)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"size":  limit,
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"metadata.chunk_id.keyword": "asc"},
		},
		"_source": map[string]interface{}{
			"excludes": []string{c.vectorField},
		},
	}

	resp, err := c.searchRaw(ctx, body)
	if err != nil {
		return nil, err
	}

	chunks := make([]types.Chunk, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		chunks = append(chunks, c.decodeChunk(hit))
	}
	return chunks, nil
}

// CountChunks returns the number of chunks matching the metadata filters.
func (c *Client) CountChunks(ctx context.Context, filters map[string]string) (int, error) {
	query, err := BuildFilterQuery(filters)
	if err != nil {
		return 0, err
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+c.indexName+"/_count", map[string]interface{}{"query": query}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// FilterMetadata returns up to limit metadata-only records (chunk text
// omitted) matching the filters, ordered by chunk ID.
func (c *Client) FilterMetadata(ctx context.Context, filters map[string]string, limit int) ([]types.ChunkMetadata, error) {
	query, err := BuildFilterQuery(filters)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"size":  limit,
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"metadata.chunk_id.keyword": "asc"},
		},
		"_source": map[string]interface{}{
			"includes": []string{"metadata"},
		},
	}

	resp, err := c.searchRaw(ctx, body)
	if err != nil {
		return nil, err
	}

	records := make([]types.ChunkMetadata, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		chunk := c.decodeChunk(hit)
		records = append(records, chunk.Metadata)
	}
	return records, nil
}

// searchResponse mirrors the subset of the OpenSearch search response the
// client consumes.
type searchResponse struct {
	Hits struct {
		Hits []searchResponseHit `json:"hits"`
	} `json:"hits"`
}

type searchResponseHit struct {
	ID     string                     `json:"_id"`
	Score  float64                    `json:"_score"`
	Source map[string]json.RawMessage `json:"_source"`
}

func (c *Client) search(ctx context.Context, body map[string]interface{}, modality types.Modality) ([]types.SearchHit, error) {
	resp, err := c.searchRaw(ctx, body)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		chunk := c.decodeChunk(hit)
		hits = append(hits, types.SearchHit{
			ChunkID:  chunk.Metadata.ChunkID,
			Score:    hit.Score,
			Modality: modality,
			Chunk:    chunk,
		})
	}
	return hits, nil
}

func (c *Client) searchRaw(ctx context.Context, body map[string]interface{}) (*searchResponse, error) {
	var out searchResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.indexName+"/_search", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// decodeChunk extracts chunk text and metadata from a raw hit. The
// document ID backfills a missing chunk_id so every hit stays addressable.
func (c *Client) decodeChunk(hit searchResponseHit) types.Chunk {
	var chunk types.Chunk

	if raw, ok := hit.Source[c.textField]; ok {
		_ = json.Unmarshal(raw, &chunk.Text)
	}
	if raw, ok := hit.Source["metadata"]; ok {
		if err := json.Unmarshal(raw, &chunk.Metadata); err != nil {
			c.logger.Warn("malformed chunk metadata", "doc_id", hit.ID, "error", err)
		}
	}
	if chunk.Metadata.ChunkID == "" {
		chunk.Metadata.ChunkID = hit.ID
	}
	return chunk
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("opensearch request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("opensearch error %d: %s", resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("opensearch request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
