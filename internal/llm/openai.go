package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using the OpenAI chat completions API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewOpenAIClient creates an OpenAI chat client.
func NewOpenAIClient(apiKey, model string, temperature float32, logger *slog.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// NewOpenAIClientWithClient creates an OpenAI chat client with a custom
// underlying client, used by tests.
func NewOpenAIClientWithClient(client *openai.Client, model string, temperature float32, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{client: client, model: model, temperature: temperature, logger: logger}
}

func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		o.logger.Error("openai completion failed", "model", o.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIClient) Model() string { return o.model }
