// Package rag implements the retrieval-augmented query pipeline: query
// expansion, hybrid lexical+vector retrieval, score fusion, and LLM
// reranking. The pipeline is a stateless per-request orchestrator; every
// upstream failure short of an invalid request degrades locally instead
// of aborting the query.
package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codectx/codesearch-mcp/internal/config"
	"github.com/codectx/codesearch-mcp/internal/embedder"
	"github.com/codectx/codesearch-mcp/internal/llm"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

// Pipeline wires the expander, retriever, fuser, and reranker together.
type Pipeline struct {
	expander  *Expander
	retriever *Retriever
	reranker  *Reranker
	maxChunks int
	logger    *slog.Logger
}

// Result is the terminal output of one query: the ranked chunks plus the
// request statistics callers surface to clients.
type Result struct {
	Results         []types.RankedResult
	OriginalQuery   string
	ExpandedQueries []string
	TotalRetrieved  int
	UniqueChunks    int
}

// NewPipeline assembles the query pipeline from its collaborators and the
// process configuration.
func NewPipeline(cfg *config.Config, idx SearchIndex, emb embedder.Embedder, expansionLLM, rerankLLM llm.Client, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		expander:  NewExpander(expansionLLM, cfg.ExpansionN, cfg.CallTimeout, logger),
		retriever: NewRetriever(idx, emb, cfg.LexicalK, cfg.VectorK, cfg.CallTimeout, logger),
		reranker:  NewReranker(rerankLLM, cfg.RerankTopM, cfg.CallTimeout, logger),
		maxChunks: cfg.MaxChunks,
		logger:    logger,
	}
}

// Query runs the full pipeline. An empty query is the only caller-visible
// error; a query that legitimately matches nothing returns an empty
// result with no error.
func (p *Pipeline) Query(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}

	p.logger.Info("query pipeline started", "query", query)

	variants := p.expander.Expand(ctx, query)
	hits := p.retriever.Retrieve(ctx, variants)
	candidates := Fuse(hits, p.maxChunks)
	ranked := p.reranker.Rerank(ctx, query, candidates)

	p.logger.Info("query pipeline finished",
		"query", query,
		"variants", len(variants),
		"hits", len(hits),
		"candidates", len(candidates),
		"results", len(ranked),
	)

	return &Result{
		Results:         ranked,
		OriginalQuery:   query,
		ExpandedQueries: variants,
		TotalRetrieved:  len(hits),
		UniqueChunks:    len(candidates),
	}, nil
}
