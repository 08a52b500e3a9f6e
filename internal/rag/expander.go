package rag

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/codectx/codesearch-mcp/internal/llm"
)

// Expander produces a bounded set of alternative phrasings for a query.
// The original query is always the first variant; expansion failure of
// any kind degrades to the original alone and is never fatal.
type Expander struct {
	llm     llm.Client
	n       int
	timeout time.Duration
	logger  *slog.Logger
}

// NewExpander creates a query expander that generates up to n additional
// variants per query.
func NewExpander(client llm.Client, n int, timeout time.Duration, logger *slog.Logger) *Expander {
	return &Expander{llm: client, n: n, timeout: timeout, logger: logger}
}

// Expand returns the original query followed by at most n distinct,
// non-empty LLM-generated variants. A single attempt is made; no retry.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	variants := []string{query}
	if e.n <= 0 {
		return variants
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.Complete(callCtx, expansionPrompt(query, e.n))
	if err != nil {
		e.logger.Warn("query expansion failed, using original query only",
			"query", query, "error", err)
		return variants
	}

	generated := parseVariants(raw)
	seen := map[string]bool{query: true}
	for _, v := range generated {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
		if len(variants) == e.n+1 {
			break
		}
	}

	e.logger.Info("query expansion complete",
		"query", query, "variants_generated", len(variants)-1)
	return variants
}

// parseVariants decodes the expansion response. The contract is a JSON
// array of strings; when decoding fails the response is split on lines as
// a fallback, since some models answer with a plain list.
func parseVariants(raw string) []string {
	content := extractJSONBlock(raw)

	var variants []string
	if err := json.Unmarshal([]byte(content), &variants); err == nil {
		return variants
	}

	var fallback []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"',`)
		if line != "" && line != "[" && line != "]" {
			fallback = append(fallback, line)
		}
	}
	return fallback
}
