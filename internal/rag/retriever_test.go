package rag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/codesearch-mcp/internal/embedder"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

// fakeIndex serves canned per-variant hits for both modalities.
type fakeIndex struct {
	mu         sync.Mutex
	lexical    map[string][]types.SearchHit
	vector     []types.SearchHit
	lexicalErr error
	vectorErr  error
	lexCalls   int
	vecCalls   int
}

func (f *fakeIndex) LexicalSearch(ctx context.Context, query string, k int) ([]types.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lexCalls++
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	return f.lexical[query], nil
}

func (f *fakeIndex) VectorSearch(ctx context.Context, vector []float32, k int) ([]types.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vecCalls++
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vector, nil
}

// fakeEmbedder returns a fixed vector or a configured error.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) (*embedder.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &embedder.Embedding{
		Vector:    []float32{0.1, 0.2, 0.3},
		Dimension: 3,
		Provider:  "fake",
		Model:     "fake-embed",
	}, nil
}

func (f *fakeEmbedder) Dimension() int   { return 3 }
func (f *fakeEmbedder) Provider() string { return "fake" }
func (f *fakeEmbedder) Model() string    { return "fake-embed" }
func (f *fakeEmbedder) Close() error     { return nil }

func TestRetrieveCollectsBothModalities(t *testing.T) {
	idx := &fakeIndex{
		lexical: map[string][]types.SearchHit{
			"q1": {hit("a", 2.0, types.ModalityLexical)},
			"q2": {hit("b", 1.0, types.ModalityLexical)},
		},
		vector: []types.SearchHit{hit("c", 0.9, types.ModalityVector)},
	}
	r := NewRetriever(idx, &fakeEmbedder{}, 5, 5, time.Second, testLogger())

	hits := r.Retrieve(context.Background(), []string{"q1", "q2"})

	// 2 lexical hits + 1 vector hit per variant.
	require.Len(t, hits, 4)
	assert.Equal(t, 2, idx.lexCalls)
	assert.Equal(t, 2, idx.vecCalls)

	ids := map[string]int{}
	for _, h := range hits {
		ids[h.ChunkID]++
	}
	assert.Equal(t, 1, ids["a"])
	assert.Equal(t, 1, ids["b"])
	assert.Equal(t, 2, ids["c"])
}

func TestRetrieveIsDeterministicAcrossRuns(t *testing.T) {
	idx := &fakeIndex{
		lexical: map[string][]types.SearchHit{
			"q1": {hit("a", 2.0, types.ModalityLexical), hit("b", 1.0, types.ModalityLexical)},
		},
		vector: []types.SearchHit{hit("c", 0.9, types.ModalityVector)},
	}
	r := NewRetriever(idx, &fakeEmbedder{}, 5, 5, time.Second, testLogger())

	first := r.Retrieve(context.Background(), []string{"q1"})
	second := r.Retrieve(context.Background(), []string{"q1"})
	assert.Equal(t, first, second)
}

func TestRetrieveToleratesLexicalFailure(t *testing.T) {
	idx := &fakeIndex{
		lexicalErr: errors.New("index unreachable"),
		vector:     []types.SearchHit{hit("c", 0.9, types.ModalityVector)},
	}
	r := NewRetriever(idx, &fakeEmbedder{}, 5, 5, time.Second, testLogger())

	hits := r.Retrieve(context.Background(), []string{"q1"})

	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].ChunkID)
}

func TestRetrieveToleratesEmbeddingFailure(t *testing.T) {
	idx := &fakeIndex{
		lexical: map[string][]types.SearchHit{
			"q1": {hit("a", 2.0, types.ModalityLexical)},
		},
	}
	r := NewRetriever(idx, &fakeEmbedder{err: errors.New("provider down")}, 5, 5, time.Second, testLogger())

	hits := r.Retrieve(context.Background(), []string{"q1"})

	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.Zero(t, idx.vecCalls)
}

func TestRetrieveAllBranchesFailing(t *testing.T) {
	idx := &fakeIndex{
		lexicalErr: errors.New("index unreachable"),
		vectorErr:  errors.New("index unreachable"),
	}
	r := NewRetriever(idx, &fakeEmbedder{}, 5, 5, time.Second, testLogger())

	hits := r.Retrieve(context.Background(), []string{"q1", "q2"})
	assert.Empty(t, hits)
}

func TestRetrieveNoVariants(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, 5, 5, time.Second, testLogger())
	assert.Nil(t, r.Retrieve(context.Background(), nil))
}
