// Package config holds the process configuration for the code-search
// server. A Config is built once at startup from environment variables
// and passed explicitly into each component; nothing reads the
// environment after construction.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider names accepted for embeddings and LLM calls.
const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// Config is the full configuration surface of the server.
type Config struct {
	// OpenSearch index connection
	OpenSearchURL      string
	OpenSearchIndex    string
	OpenSearchUser     string
	OpenSearchPassword string
	TextField          string
	VectorField        string

	// Provider selection
	EmbeddingProvider string
	LLMProvider       string

	// Bedrock settings
	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSSessionToken       string
	BedrockEmbeddingModel string
	BedrockExpansionModel string
	BedrockRerankerModel  string

	// OpenAI settings
	OpenAIAPIKey         string
	OpenAIEmbeddingModel string
	ExpansionModel       string
	RerankerModel        string

	// Pipeline parameters
	ExpansionN int // additional query variants generated per request
	LexicalK   int // lexical results per variant
	VectorK    int // vector results per variant
	RerankTopM int // final result count after reranking
	MaxChunks  int // fused-candidate cap and metadata result cap

	// CallTimeout bounds each external call (search, embed, LLM).
	CallTimeout time.Duration

	// HTTP transport settings
	Host string
	Port int
}

// Default returns a Config with the documented defaults applied.
func Default() *Config {
	return &Config{
		OpenSearchURL:         "http://localhost:9200",
		OpenSearchIndex:       "code_chunks",
		OpenSearchUser:        "admin",
		TextField:             "text",
		VectorField:           "vector_field",
		EmbeddingProvider:     ProviderBedrock,
		LLMProvider:           ProviderOpenAI,
		AWSRegion:             "us-east-1",
		BedrockEmbeddingModel: "amazon.titan-embed-text-v2:0",
		BedrockExpansionModel: "anthropic.claude-3-haiku-20240307-v1:0",
		BedrockRerankerModel:  "anthropic.claude-3-sonnet-20240229-v1:0",
		OpenAIEmbeddingModel:  "text-embedding-3-large",
		ExpansionModel:        "gpt-3.5-turbo",
		RerankerModel:         "gpt-4o",
		ExpansionN:            3,
		LexicalK:              5,
		VectorK:               5,
		RerankTopM:            5,
		MaxChunks:             100,
		CallTimeout:           60 * time.Second,
		Host:                  "0.0.0.0",
		Port:                  8080,
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
func FromEnv() (*Config, error) {
	cfg := Default()

	setString(&cfg.OpenSearchURL, "OPENSEARCH_URL")
	setString(&cfg.OpenSearchIndex, "OPENSEARCH_INDEX")
	setString(&cfg.OpenSearchUser, "OPENSEARCH_USER")
	setString(&cfg.OpenSearchPassword, "OPENSEARCH_ADMIN_PW")
	setString(&cfg.TextField, "OPENSEARCH_TEXT_FIELD")
	setString(&cfg.VectorField, "OPENSEARCH_VECTOR_FIELD")

	setString(&cfg.EmbeddingProvider, "EMBEDDING_PROVIDER")
	setString(&cfg.LLMProvider, "LLM_PROVIDER")

	setString(&cfg.AWSRegion, "AWS_REGION")
	setString(&cfg.AWSAccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&cfg.AWSSecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&cfg.AWSSessionToken, "AWS_SESSION_TOKEN")
	setString(&cfg.BedrockEmbeddingModel, "BEDROCK_EMBEDDING_MODEL")
	setString(&cfg.BedrockExpansionModel, "BEDROCK_QUERY_EXPANSION_MODEL")
	setString(&cfg.BedrockRerankerModel, "BEDROCK_RERANKER_MODEL")

	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIEmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&cfg.ExpansionModel, "QUERY_EXPANSION_MODEL")
	setString(&cfg.RerankerModel, "RERANKER_MODEL")

	setString(&cfg.Host, "HOST")

	for _, v := range []struct {
		dst *int
		env string
	}{
		{&cfg.ExpansionN, "QUERY_EXPANSION_N"},
		{&cfg.LexicalK, "BM25_K"},
		{&cfg.VectorK, "VECTOR_SEARCH_K"},
		{&cfg.RerankTopM, "RERANK_TOP_M"},
		{&cfg.MaxChunks, "MAX_CHUNKS"},
		{&cfg.Port, "PORT"},
	} {
		if err := setInt(v.dst, v.env); err != nil {
			return nil, err
		}
	}

	if raw := os.Getenv("CALL_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid CALL_TIMEOUT_SECONDS %q", raw)
		}
		cfg.CallTimeout = time.Duration(secs) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the pipeline parameters for consistency.
func (c *Config) Validate() error {
	if c.ExpansionN < 0 {
		return fmt.Errorf("QUERY_EXPANSION_N must be non-negative, got %d", c.ExpansionN)
	}
	if c.LexicalK <= 0 || c.VectorK <= 0 {
		return fmt.Errorf("search result limits must be positive (BM25_K=%d, VECTOR_SEARCH_K=%d)", c.LexicalK, c.VectorK)
	}
	if c.RerankTopM <= 0 {
		return fmt.Errorf("RERANK_TOP_M must be positive, got %d", c.RerankTopM)
	}
	if c.MaxChunks <= 0 {
		return fmt.Errorf("MAX_CHUNKS must be positive, got %d", c.MaxChunks)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	}
	switch c.EmbeddingProvider {
	case ProviderBedrock, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case ProviderBedrock, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) error {
	raw := os.Getenv(env)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", env, raw, err)
	}
	*dst = v
	return nil
}
