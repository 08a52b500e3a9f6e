package rag

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/codectx/codesearch-mcp/internal/llm"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

// Reranker reorders fused candidates by LLM relevance judgment and
// truncates to the final answer size. Rerank failure only degrades
// ordering quality: the fallback is the fused-score order already
// established upstream, truncated to topM.
type Reranker struct {
	llm     llm.Client
	topM    int
	timeout time.Duration
	logger  *slog.Logger
}

// NewReranker creates a reranker returning at most topM results.
func NewReranker(client llm.Client, topM int, timeout time.Duration, logger *slog.Logger) *Reranker {
	return &Reranker{llm: client, topM: topM, timeout: timeout, logger: logger}
}

// rankedEntry is the response contract: one scored chunk reference.
type rankedEntry struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Rerank scores candidates against the original query. The output
// references only chunk IDs present in the input; anything else the LLM
// returns is discarded. When the LLM ranks fewer than topM candidates,
// the remainder is padded in fused order so reranking never shrinks the
// set below min(topM, len(candidates)).
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []types.FusedCandidate) []types.RankedResult {
	if len(candidates) == 0 {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var formatted strings.Builder
	for _, c := range candidates {
		formatted.WriteString(formatCandidate(c))
	}

	raw, err := r.llm.Complete(callCtx, rerankPrompt(query, formatted.String()))
	if err != nil {
		r.logger.Warn("rerank call failed, falling back to fused order", "error", err)
		return r.fusedOrder(candidates)
	}

	entries, err := parseRanking(raw)
	if err != nil {
		r.logger.Warn("rerank output unparsable, falling back to fused order", "error", err)
		return r.fusedOrder(candidates)
	}

	byID := make(map[string]types.FusedCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.Chunk.Metadata.ChunkID] = c
	}

	results := make([]types.RankedResult, 0, r.topM)
	ranked := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if len(results) == r.topM {
			break
		}
		c, ok := byID[entry.ID]
		if !ok {
			r.logger.Warn("rerank output references unknown chunk, discarding", "chunk_id", entry.ID)
			continue
		}
		if ranked[entry.ID] {
			continue
		}
		ranked[entry.ID] = true
		results = append(results, types.RankedResult{
			Chunk:          c.Chunk,
			Rank:           len(results) + 1,
			RelevanceScore: entry.Score,
			Modality:       c.Modality,
		})
	}

	// Pad with unranked candidates in fused order.
	for _, c := range candidates {
		if len(results) == r.topM {
			break
		}
		id := c.Chunk.Metadata.ChunkID
		if ranked[id] {
			continue
		}
		ranked[id] = true
		results = append(results, types.RankedResult{
			Chunk:          c.Chunk,
			Rank:           len(results) + 1,
			RelevanceScore: 0,
			Modality:       c.Modality,
		})
	}

	r.logger.Info("rerank complete",
		"candidates", len(candidates), "returned", len(results))
	return results
}

// fusedOrder converts candidates in their existing fused-score order,
// truncated to topM.
func (r *Reranker) fusedOrder(candidates []types.FusedCandidate) []types.RankedResult {
	n := len(candidates)
	if n > r.topM {
		n = r.topM
	}
	results := make([]types.RankedResult, n)
	for i := 0; i < n; i++ {
		results[i] = types.RankedResult{
			Chunk:          candidates[i].Chunk,
			Rank:           i + 1,
			RelevanceScore: candidates[i].Score,
			Modality:       candidates[i].Modality,
		}
	}
	return results
}

func parseRanking(raw string) ([]rankedEntry, error) {
	content := extractJSONBlock(raw)
	var entries []rankedEntry
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
