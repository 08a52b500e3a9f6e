package embedder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codectx/codesearch-mcp/internal/config"
)

// New creates the embedder selected by the configuration. Bedrock is the
// primary provider; if its client cannot be constructed and an OpenAI key
// is available, the factory falls back to OpenAI.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Embedder, error) {
	cache := NewCache(10000)

	switch cfg.EmbeddingProvider {
	case config.ProviderBedrock:
		emb, err := NewBedrockProvider(ctx, BedrockConfig{
			Model:           cfg.BedrockEmbeddingModel,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			SessionToken:    cfg.AWSSessionToken,
		}, cache, logger)
		if err == nil {
			return emb, nil
		}
		if cfg.OpenAIAPIKey == "" {
			return nil, err
		}
		logger.Warn("bedrock embedder unavailable, falling back to openai", "error", err)
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cache, logger)

	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cache, logger)

	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrNoProviderEnabled, cfg.EmbeddingProvider)
	}
}
