package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/codesearch-mcp/internal/rag"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

// fakePipeline answers rag_query calls with a canned result.
type fakePipeline struct {
	result    *rag.Result
	err       error
	lastQuery string
}

func (f *fakePipeline) Query(ctx context.Context, query string) (*rag.Result, error) {
	f.lastQuery = query
	return f.result, f.err
}

// fakeMetadata answers metadata tool calls with canned data.
type fakeMetadata struct {
	chunks      []types.Chunk
	count       int
	err         error
	lastFilters map[string]string
}

func (f *fakeMetadata) GetChunks(ctx context.Context, filters map[string]string) ([]types.Chunk, error) {
	f.lastFilters = filters
	return f.chunks, f.err
}

func (f *fakeMetadata) Count(ctx context.Context, filters map[string]string) (int, error) {
	f.lastFilters = filters
	return f.count, f.err
}

func (f *fakeMetadata) GetMetadata(ctx context.Context, filters map[string]string) ([]types.ChunkMetadata, error) {
	f.lastFilters = filters
	records := make([]types.ChunkMetadata, 0, len(f.chunks))
	for _, c := range f.chunks {
		records = append(records, c.Metadata)
	}
	return records, f.err
}

func testServer(pipeline QueryPipeline, metadata MetadataService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServerWithComponents(pipeline, metadata, logger)
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// envelope decodes the JSON response envelope from a tool result.
func envelope(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool result should be text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func sampleChunk(id string) types.Chunk {
	return types.Chunk{
		Metadata: types.ChunkMetadata{
			ChunkID:   id,
			Repo:      "org/project",
			Branch:    "main",
			FilePath:  "src/auth.go",
			Language:  "go",
			StartLine: 1,
			EndLine:   10,
		},
		Text: "func Login() {}",
	}
}

func TestHandleRagQuery(t *testing.T) {
	pipeline := &fakePipeline{result: &rag.Result{
		Results: []types.RankedResult{
			{Chunk: sampleChunk("a"), Rank: 1, RelevanceScore: 0.9, Modality: types.ModalityVector},
		},
		OriginalQuery:   "login",
		ExpandedQueries: []string{"login", "sign in"},
		TotalRetrieved:  6,
		UniqueChunks:    4,
	}}
	s := testServer(pipeline, &fakeMetadata{})

	result, err := s.handleRagQuery(context.Background(),
		toolRequest("rag_query", map[string]interface{}{"query": "login"}))
	require.NoError(t, err)
	assert.Equal(t, "login", pipeline.lastQuery)

	env := envelope(t, result)
	assert.Equal(t, "success", env["status"])

	data := env["data"].(map[string]interface{})
	chunks := data["chunks"].([]interface{})
	require.Len(t, chunks, 1)

	first := chunks[0].(map[string]interface{})
	assert.Equal(t, "func Login() {}", first["content"])
	meta := first["metadata"].(map[string]interface{})
	assert.Equal(t, "a", meta["chunk_id"])
	assert.InDelta(t, 0.9, meta["relevance_score"].(float64), 1e-9)
	assert.Equal(t, "vector", meta["retrieval_method"])

	stats := data["metadata"].(map[string]interface{})
	assert.Equal(t, "login", stats["original_query"])
	assert.Equal(t, float64(6), stats["total_chunks_retrieved"])
	assert.Equal(t, float64(4), stats["unique_chunks"])
	assert.Equal(t, float64(1), stats["chunks_returned"])
}

func TestHandleRagQueryMissingParam(t *testing.T) {
	s := testServer(&fakePipeline{}, &fakeMetadata{})

	_, err := s.handleRagQuery(context.Background(), toolRequest("rag_query", map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleRagQueryEmptyQueryEnvelope(t *testing.T) {
	// Whitespace queries pass argument parsing but fail pipeline
	// validation; the failure surfaces in the envelope, not as a
	// protocol error.
	pipeline := &fakePipeline{err: types.ErrEmptyQuery}
	s := testServer(pipeline, &fakeMetadata{})

	result, err := s.handleRagQuery(context.Background(),
		toolRequest("rag_query", map[string]interface{}{"query": "   "}))
	require.NoError(t, err)

	env := envelope(t, result)
	assert.Equal(t, "error", env["status"])
	assert.NotEmpty(t, env["message"])
}

func TestHandleRagQueryInternalError(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("index unreachable")}
	s := testServer(pipeline, &fakeMetadata{})

	_, err := s.handleRagQuery(context.Background(),
		toolRequest("rag_query", map[string]interface{}{"query": "q"}))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInternalError, mcpErr.Code)
}

func TestHandleGetChunksByMetadata(t *testing.T) {
	svc := &fakeMetadata{chunks: []types.Chunk{sampleChunk("a"), sampleChunk("b")}}
	s := testServer(&fakePipeline{}, svc)

	result, err := s.handleGetChunksByMetadata(context.Background(),
		toolRequest("get_chunks_by_metadata", map[string]interface{}{
			"metadata_filters": map[string]interface{}{
				"repo":       "org/project",
				"start_line": float64(10),
			},
		}))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"repo": "org/project", "start_line": "10"}, svc.lastFilters)

	env := envelope(t, result)
	assert.Equal(t, "success", env["status"])
	data := env["data"].(map[string]interface{})
	assert.Len(t, data["chunks"], 2)
	stats := data["metadata"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["total_chunks"])
}

func TestHandleGetChunksByMetadataMissingFilters(t *testing.T) {
	s := testServer(&fakePipeline{}, &fakeMetadata{})

	_, err := s.handleGetChunksByMetadata(context.Background(),
		toolRequest("get_chunks_by_metadata", map[string]interface{}{}))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleGetChunksByMetadataValidationEnvelope(t *testing.T) {
	svc := &fakeMetadata{err: types.ErrUnknownFilterField}
	s := testServer(&fakePipeline{}, svc)

	result, err := s.handleGetChunksByMetadata(context.Background(),
		toolRequest("get_chunks_by_metadata", map[string]interface{}{
			"metadata_filters": map[string]interface{}{"bogus": "x"},
		}))
	require.NoError(t, err)

	env := envelope(t, result)
	assert.Equal(t, "error", env["status"])
}

func TestHandleCountChunksByMetadata(t *testing.T) {
	svc := &fakeMetadata{count: 17}
	s := testServer(&fakePipeline{}, svc)

	result, err := s.handleCountChunksByMetadata(context.Background(),
		toolRequest("count_chunks_by_metadata", map[string]interface{}{
			"metadata_filters": map[string]interface{}{"language": "go"},
		}))
	require.NoError(t, err)

	env := envelope(t, result)
	assert.Equal(t, "success", env["status"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, float64(17), data["count"])
}

func TestHandleGetMetadataByFilters(t *testing.T) {
	svc := &fakeMetadata{chunks: []types.Chunk{sampleChunk("a")}}
	s := testServer(&fakePipeline{}, svc)

	result, err := s.handleGetMetadataByFilters(context.Background(),
		toolRequest("get_metadata_by_filters", map[string]interface{}{
			"metadata_filters": map[string]interface{}{"file_path": "src/auth.go"},
		}))
	require.NoError(t, err)

	env := envelope(t, result)
	assert.Equal(t, "success", env["status"])
	data := env["data"].(map[string]interface{})
	records := data["metadata_items"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, float64(1), data["total_items"])

	first := records[0].(map[string]interface{})
	assert.Equal(t, "a", first["chunk_id"])
	// Metadata projection never includes chunk content.
	_, hasContent := first["content"]
	assert.False(t, hasContent)
}

func TestExtractFiltersRejectsNonScalars(t *testing.T) {
	_, err := extractFilters(toolRequest("get_chunks_by_metadata", map[string]interface{}{
		"metadata_filters": map[string]interface{}{
			"repo": []interface{}{"a", "b"},
		},
	}))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestToolDefinitions(t *testing.T) {
	tools := []mcp.Tool{
		ragQueryTool(),
		getChunksByMetadataTool(),
		countChunksByMetadataTool(),
		getMetadataByFiltersTool(),
	}

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema.Type)
		assert.NotEmpty(t, tool.InputSchema.Required)
	}
	assert.Equal(t, []string{
		"rag_query",
		"get_chunks_by_metadata",
		"count_chunks_by_metadata",
		"get_metadata_by_filters",
	}, names)
}
