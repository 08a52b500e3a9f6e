package embedder

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIModel is the default OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-large"
	openAIDimension    = 3072
)

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	cache  *Cache
	logger *slog.Logger
}

// NewOpenAIProvider creates an OpenAI embedder.
func NewOpenAIProvider(apiKey, model string, cache *Cache, logger *slog.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		cache:  cache,
		logger: logger,
	}, nil
}

// NewOpenAIProviderWithClient creates an OpenAI embedder with a custom
// client, used by tests.
func NewOpenAIProviderWithClient(client *openai.Client, model string, cache *Cache, logger *slog.Logger) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{client: client, model: model, cache: cache, logger: logger}
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if o.cache != nil {
		if emb, ok := o.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb, err := retryWithBackoff(ctx, func() (*Embedding, error) {
		return o.callAPI(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if o.cache != nil {
		o.cache.Set(hash, emb)
	}
	return emb, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, text string) (*Embedding, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		o.logger.Error("openai embeddings call failed", "model", o.model, "error", err)
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	vector := resp.Data[0].Embedding
	return &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  "openai",
		Model:     o.model,
	}, nil
}

func (o *OpenAIProvider) Dimension() int { return openAIDimension }

func (o *OpenAIProvider) Provider() string { return "openai" }

func (o *OpenAIProvider) Model() string { return o.model }

func (o *OpenAIProvider) Close() error { return nil }
