package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codectx/codesearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleRagQuery handles the rag_query tool invocation
func (s *Server) handleRagQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	result, err := s.pipeline.Query(ctx, query)
	if err != nil {
		if errors.Is(err, types.ErrEmptyQuery) {
			return errorResult(err), nil
		}
		s.logger.Error("rag_query failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunks := make([]map[string]interface{}, 0, len(result.Results))
	for _, r := range result.Results {
		meta := metadataMap(r.Chunk.Metadata)
		meta["relevance_score"] = r.RelevanceScore
		meta["retrieval_method"] = string(r.Modality)
		chunks = append(chunks, map[string]interface{}{
			"content":  r.Chunk.Text,
			"metadata": meta,
		})
	}

	return successResult(map[string]interface{}{
		"chunks": chunks,
		"metadata": map[string]interface{}{
			"original_query":         result.OriginalQuery,
			"expanded_queries":       result.ExpandedQueries,
			"total_chunks_retrieved": result.TotalRetrieved,
			"unique_chunks":          result.UniqueChunks,
			"chunks_returned":        len(chunks),
		},
	}), nil
}

// handleGetChunksByMetadata handles the get_chunks_by_metadata tool invocation
func (s *Server) handleGetChunksByMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, mcpErr := extractFilters(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	results, err := s.metadata.GetChunks(ctx, filters)
	if err != nil {
		if isFilterError(err) {
			return errorResult(err), nil
		}
		s.logger.Error("get_chunks_by_metadata failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "chunk retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunks := make([]map[string]interface{}, 0, len(results))
	for _, c := range results {
		chunks = append(chunks, map[string]interface{}{
			"content":  c.Text,
			"metadata": metadataMap(c.Metadata),
		})
	}

	return successResult(map[string]interface{}{
		"chunks": chunks,
		"metadata": map[string]interface{}{
			"total_chunks":    len(chunks),
			"filters_applied": filters,
		},
	}), nil
}

// handleCountChunksByMetadata handles the count_chunks_by_metadata tool invocation
func (s *Server) handleCountChunksByMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, mcpErr := extractFilters(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	count, err := s.metadata.Count(ctx, filters)
	if err != nil {
		if isFilterError(err) {
			return errorResult(err), nil
		}
		s.logger.Error("count_chunks_by_metadata failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "chunk count failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return successResult(map[string]interface{}{
		"count":           count,
		"filters_applied": filters,
	}), nil
}

// handleGetMetadataByFilters handles the get_metadata_by_filters tool invocation
func (s *Server) handleGetMetadataByFilters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, mcpErr := extractFilters(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	results, err := s.metadata.GetMetadata(ctx, filters)
	if err != nil {
		if isFilterError(err) {
			return errorResult(err), nil
		}
		s.logger.Error("get_metadata_by_filters failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "metadata retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	records := make([]map[string]interface{}, 0, len(results))
	for _, m := range results {
		records = append(records, metadataMap(m))
	}

	return successResult(map[string]interface{}{
		"metadata_items":  records,
		"total_items":     len(records),
		"filters_applied": filters,
	}), nil
}

// extractFilters pulls the metadata_filters argument out of a tool request
// and coerces every value to a string. JSON numbers arrive as float64 and
// are rendered without a decimal point when integral.
func extractFilters(request mcp.CallToolRequest) (map[string]string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, ok := args["metadata_filters"].(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "metadata_filters parameter is required", map[string]interface{}{
			"param":  "metadata_filters",
			"reason": "missing or not an object",
		})
	}

	filters := make(map[string]string, len(raw))
	for field, value := range raw {
		switch v := value.(type) {
		case string:
			filters[field] = v
		case float64:
			if v == float64(int64(v)) {
				filters[field] = fmt.Sprintf("%d", int64(v))
			} else {
				filters[field] = fmt.Sprintf("%v", v)
			}
		case bool:
			filters[field] = fmt.Sprintf("%t", v)
		default:
			return nil, newMCPError(ErrorCodeInvalidParams, "metadata_filters values must be scalars", map[string]interface{}{
				"param": "metadata_filters",
				"field": field,
			})
		}
	}
	return filters, nil
}

// isFilterError reports whether err is a caller-visible filter validation
// failure rather than an internal one.
func isFilterError(err error) bool {
	return errors.Is(err, types.ErrEmptyFilters) ||
		errors.Is(err, types.ErrUnknownFilterField) ||
		errors.Is(err, types.ErrInvalidFilterValue)
}

// metadataMap renders chunk metadata as a JSON-friendly map.
func metadataMap(m types.ChunkMetadata) map[string]interface{} {
	return map[string]interface{}{
		"chunk_id":   m.ChunkID,
		"repo":       m.Repo,
		"branch":     m.Branch,
		"file_path":  m.FilePath,
		"language":   m.Language,
		"start_line": m.StartLine,
		"end_line":   m.EndLine,
	}
}

// successResult wraps tool output in the standard response envelope.
func successResult(data map[string]interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status": "success",
		"data":   data,
	}))
}

// errorResult wraps a caller-visible validation failure in the standard
// response envelope.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status":  "error",
		"message": err.Error(),
	}))
}

// formatJSON formats a response map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}
