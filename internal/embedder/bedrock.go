package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	// DefaultBedrockModel is the default Titan embedding model.
	DefaultBedrockModel = "amazon.titan-embed-text-v2:0"
	titanV2Dimension    = 1024
	titanV1Dimension    = 1536
)

// BedrockProvider implements Embedder using Amazon Titan models through
// the Bedrock runtime InvokeModel API.
type BedrockProvider struct {
	client *bedrockruntime.Client
	model  string
	cache  *Cache
	logger *slog.Logger
}

// BedrockConfig configures a BedrockProvider.
type BedrockConfig struct {
	Model           string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewBedrockProvider creates a Titan embedder. Explicit credentials take
// precedence; otherwise the default AWS credential chain is used.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig, cache *Cache, logger *slog.Logger) (*BedrockProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultBedrockModel
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrNoProviderEnabled, err)
	}

	return &BedrockProvider{
		client: bedrockruntime.NewFromConfig(awsCfg),
		model:  cfg.Model,
		cache:  cache,
		logger: logger,
	}, nil
}

func (b *BedrockProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if b.cache != nil {
		if emb, ok := b.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb, err := retryWithBackoff(ctx, func() (*Embedding, error) {
		return b.invoke(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if b.cache != nil {
		b.cache.Set(hash, emb)
	}
	return emb, nil
}

func (b *BedrockProvider) invoke(ctx context.Context, text string) (*Embedding, error) {
	reqBody := map[string]interface{}{
		"inputText": text,
	}
	if b.isTitanV2() {
		reqBody["dimensions"] = titanV2Dimension
		reqBody["normalize"] = true
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		b.logger.Error("bedrock invoke failed", "model", b.model, "error", err)
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return &Embedding{
		Vector:    apiResp.Embedding,
		Dimension: len(apiResp.Embedding),
		Provider:  "bedrock",
		Model:     b.model,
	}, nil
}

func (b *BedrockProvider) isTitanV2() bool {
	return strings.Contains(b.model, "titan-embed-text-v2")
}

func (b *BedrockProvider) Dimension() int {
	if b.isTitanV2() {
		return titanV2Dimension
	}
	return titanV1Dimension
}

func (b *BedrockProvider) Provider() string { return "bedrock" }

func (b *BedrockProvider) Model() string { return b.model }

func (b *BedrockProvider) Close() error { return nil }
