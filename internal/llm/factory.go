package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codectx/codesearch-mcp/internal/config"
)

// Temperatures per pipeline role: expansion benefits from variety,
// reranking wants consistent judgments.
const (
	expansionTemperature = 0.7
	rerankerTemperature  = 0.2
)

// NewExpansionClient creates the client used for query expansion.
func NewExpansionClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Client, error) {
	return newClient(ctx, cfg, cfg.ExpansionModel, cfg.BedrockExpansionModel, expansionTemperature, logger)
}

// NewRerankerClient creates the client used for result reranking.
func NewRerankerClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Client, error) {
	return newClient(ctx, cfg, cfg.RerankerModel, cfg.BedrockRerankerModel, rerankerTemperature, logger)
}

func newClient(ctx context.Context, cfg *config.Config, openaiModel, bedrockModel string, temperature float32, logger *slog.Logger) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, openaiModel, temperature, logger)
	case config.ProviderBedrock:
		return NewBedrockClient(ctx, BedrockConfig{
			Model:           bedrockModel,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			SessionToken:    cfg.AWSSessionToken,
			Temperature:     temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrNoProviderEnabled, cfg.LLMProvider)
	}
}
