// Package embedder turns text into fixed-length embedding vectors via a
// configured provider (AWS Bedrock Titan or OpenAI). The query pipeline
// depends only on the Embedder interface; the concrete provider is a
// configuration choice made once at startup.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is a vector embedding with provider metadata.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// Embedder generates embeddings for query text.
type Embedder interface {
	// GenerateEmbedding embeds a single text.
	GenerateEmbedding(ctx context.Context, text string) (*Embedding, error)

	// Dimension returns the embedding dimension for this provider.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache is an in-memory LRU of embeddings keyed by content hash. It is an
// optimization only; a cache hit returns a copy, so cached vectors are
// never mutated by callers.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached embedding.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)
	return &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
	}, true
}

// Set stores an embedding; eviction is automatic at capacity.
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 cache key for a text.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
