package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const defaultBedrockMaxTokens = 2048

// BedrockClient implements Client using the Bedrock Converse API.
type BedrockClient struct {
	client      *bedrockruntime.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *slog.Logger
}

// BedrockConfig configures a BedrockClient.
type BedrockConfig struct {
	Model           string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Temperature     float32
	MaxTokens       int
}

// NewBedrockClient creates a Bedrock chat client. Explicit credentials
// take precedence; otherwise the default AWS credential chain is used.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig, logger *slog.Logger) (*BedrockClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: no bedrock model configured", ErrNoProviderEnabled)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultBedrockMaxTokens
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

	return &BedrockClient{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (b *BedrockClient) Complete(ctx context.Context, prompt string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.model),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(b.maxTokens)),
			Temperature: aws.Float32(b.temperature),
		},
	}

	resp, err := b.client.Converse(ctx, input)
	if err != nil {
		b.logger.Error("bedrock converse failed", "model", b.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	text := extractText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (b *BedrockClient) Model() string { return b.model }

func extractText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var parts []string
	for _, block := range msg.Value.Content {
		if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
			parts = append(parts, textBlock.Value)
		}
	}
	return strings.Join(parts, "")
}
