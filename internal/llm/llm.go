// Package llm provides text-generation clients for the query pipeline.
// Query expansion and reranking depend only on the Client interface; the
// concrete provider (OpenAI or AWS Bedrock) is selected once from
// configuration.
package llm

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrProviderFailed    = errors.New("llm provider failed")
	ErrNoProviderEnabled = errors.New("no llm provider configured")
	ErrEmptyResponse     = errors.New("llm returned no output")
)

// Client generates text for a single prompt.
type Client interface {
	// Complete sends one prompt and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier, for logging.
	Model() string
}
