package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/codesearch-mcp/pkg/types"
)

func candidate(id string, score float64) types.FusedCandidate {
	return types.FusedCandidate{
		Chunk: types.Chunk{
			Metadata: types.ChunkMetadata{ChunkID: id, Repo: "org/repo", FilePath: id + ".go"},
			Text:     "content of " + id,
		},
		Score:    score,
		Modality: types.ModalityLexical,
	}
}

func TestRerankEmptyCandidates(t *testing.T) {
	r := NewReranker(&fakeLLM{}, 5, time.Second, testLogger())
	assert.Nil(t, r.Rerank(context.Background(), "q", nil))
}

func TestRerankOrdersByLLMScores(t *testing.T) {
	client := &fakeLLM{response: `[
		{"id": "b", "score": 0.9},
		{"id": "a", "score": 0.4}
	]`}
	r := NewReranker(client, 5, time.Second, testLogger())

	candidates := []types.FusedCandidate{candidate("a", 1.0), candidate("b", 0.5)}
	results := r.Rerank(context.Background(), "q", candidates)

	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Chunk.Metadata.ChunkID)
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 0.9, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "a", results[1].Chunk.Metadata.ChunkID)
	assert.Equal(t, 2, results[1].Rank)
	assert.Contains(t, client.lastPrompt, "content of a")
	assert.Contains(t, client.lastPrompt, "content of b")
}

func TestRerankDiscardsUnknownIDs(t *testing.T) {
	client := &fakeLLM{response: `[
		{"id": "hallucinated", "score": 0.99},
		{"id": "a", "score": 0.8}
	]`}
	r := NewReranker(client, 5, time.Second, testLogger())

	results := r.Rerank(context.Background(), "q", []types.FusedCandidate{candidate("a", 1.0)})

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.Metadata.ChunkID)
}

func TestRerankSkipsDuplicateIDs(t *testing.T) {
	client := &fakeLLM{response: `[
		{"id": "a", "score": 0.9},
		{"id": "a", "score": 0.1},
		{"id": "b", "score": 0.5}
	]`}
	r := NewReranker(client, 5, time.Second, testLogger())

	results := r.Rerank(context.Background(), "q",
		[]types.FusedCandidate{candidate("a", 1.0), candidate("b", 0.5)})

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.Metadata.ChunkID)
	assert.InDelta(t, 0.9, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "b", results[1].Chunk.Metadata.ChunkID)
}

func TestRerankPadsFromFusedOrder(t *testing.T) {
	// The LLM ranks only one of three candidates; the remainder fills in
	// fused order so reranking never shrinks the result set below topM.
	client := &fakeLLM{response: `[{"id": "c", "score": 0.7}]`}
	r := NewReranker(client, 3, time.Second, testLogger())

	candidates := []types.FusedCandidate{
		candidate("a", 1.0), candidate("b", 0.8), candidate("c", 0.6),
	}
	results := r.Rerank(context.Background(), "q", candidates)

	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].Chunk.Metadata.ChunkID)
	assert.Equal(t, "a", results[1].Chunk.Metadata.ChunkID)
	assert.Equal(t, "b", results[2].Chunk.Metadata.ChunkID)
	assert.Zero(t, results[1].RelevanceScore)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Rank, results[1].Rank, results[2].Rank})
}

func TestRerankTruncatesToTopM(t *testing.T) {
	client := &fakeLLM{response: `[
		{"id": "a", "score": 0.9},
		{"id": "b", "score": 0.8},
		{"id": "c", "score": 0.7}
	]`}
	r := NewReranker(client, 2, time.Second, testLogger())

	candidates := []types.FusedCandidate{
		candidate("a", 1.0), candidate("b", 0.8), candidate("c", 0.6),
	}
	results := r.Rerank(context.Background(), "q", candidates)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.Metadata.ChunkID)
	assert.Equal(t, "b", results[1].Chunk.Metadata.ChunkID)
}

func TestRerankFallsBackOnLLMError(t *testing.T) {
	client := &fakeLLM{err: errors.New("model unavailable")}
	r := NewReranker(client, 2, time.Second, testLogger())

	candidates := []types.FusedCandidate{
		candidate("a", 1.0), candidate("b", 0.8), candidate("c", 0.6),
	}
	results := r.Rerank(context.Background(), "q", candidates)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.Metadata.ChunkID)
	assert.InDelta(t, 1.0, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "b", results[1].Chunk.Metadata.ChunkID)
}

func TestRerankFallsBackOnUnparsableOutput(t *testing.T) {
	client := &fakeLLM{response: "I think the most relevant chunk is a."}
	r := NewReranker(client, 5, time.Second, testLogger())

	candidates := []types.FusedCandidate{candidate("a", 1.0), candidate("b", 0.8)}
	results := r.Rerank(context.Background(), "q", candidates)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.Metadata.ChunkID)
	assert.Equal(t, "b", results[1].Chunk.Metadata.ChunkID)
}
