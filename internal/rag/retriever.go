package rag

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codectx/codesearch-mcp/internal/embedder"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

// SearchIndex is the read surface of the search index consumed by the
// retriever. *index.Client satisfies it.
type SearchIndex interface {
	LexicalSearch(ctx context.Context, query string, k int) ([]types.SearchHit, error)
	VectorSearch(ctx context.Context, vector []float32, k int) ([]types.SearchHit, error)
}

// Retriever fans a set of query variants out across both search
// modalities and collects the union of hits. Every (variant, modality)
// call is independently fallible: a branch failure is logged and skipped,
// never propagated. If all branches fail the result is simply empty.
type Retriever struct {
	index    SearchIndex
	embedder embedder.Embedder
	lexicalK int
	vectorK  int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRetriever creates a hybrid retriever with per-variant result limits.
func NewRetriever(idx SearchIndex, emb embedder.Embedder, lexicalK, vectorK int, timeout time.Duration, logger *slog.Logger) *Retriever {
	return &Retriever{
		index:    idx,
		embedder: emb,
		lexicalK: lexicalK,
		vectorK:  vectorK,
		timeout:  timeout,
		logger:   logger,
	}
}

// Retrieve issues one lexical and one vector search per variant, all
// concurrently. Each branch writes into its own slot and the slots are
// merged after the join, so there is no shared mutation. Total latency is
// bounded by the slowest single call, each capped by the configured
// per-call timeout.
func (r *Retriever) Retrieve(ctx context.Context, variants []string) []types.SearchHit {
	if len(variants) == 0 {
		return nil
	}

	slots := make([][]types.SearchHit, 2*len(variants))
	g, gctx := errgroup.WithContext(ctx)

	for i, variant := range variants {
		lexSlot := 2 * i
		vecSlot := 2*i + 1

		g.Go(func() error {
			hits, err := r.lexicalBranch(gctx, variant)
			if err != nil {
				r.logger.Warn("search branch failed",
					"modality", types.ModalityLexical, "variant", variant, "error", err)
				return nil
			}
			slots[lexSlot] = hits
			return nil
		})

		g.Go(func() error {
			hits, err := r.vectorBranch(gctx, variant)
			if err != nil {
				r.logger.Warn("search branch failed",
					"modality", types.ModalityVector, "variant", variant, "error", err)
				return nil
			}
			slots[vecSlot] = hits
			return nil
		})
	}

	// Branches never return errors; Wait only joins them.
	_ = g.Wait()

	var union []types.SearchHit
	for _, hits := range slots {
		union = append(union, hits...)
	}

	r.logger.Info("retrieval complete",
		"variants", len(variants), "total_hits", len(union))
	return union
}

func (r *Retriever) lexicalBranch(ctx context.Context, variant string) ([]types.SearchHit, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.index.LexicalSearch(callCtx, variant, r.lexicalK)
}

// vectorBranch embeds the variant and runs a kNN query. An embedding
// failure fails the whole branch, equivalent to the search itself failing.
func (r *Retriever) vectorBranch(ctx context.Context, variant string) ([]types.SearchHit, error) {
	embedCtx, cancelEmbed := context.WithTimeout(ctx, r.timeout)
	defer cancelEmbed()

	emb, err := r.embedder.GenerateEmbedding(embedCtx, variant)
	if err != nil {
		return nil, err
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, r.timeout)
	defer cancelSearch()
	return r.index.VectorSearch(searchCtx, emb.Vector, r.vectorK)
}
