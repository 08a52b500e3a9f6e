package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// metadataFiltersSchema describes the shared metadata_filters parameter.
// Any subset of the seven fields may be supplied; at least one is
// required and all supplied filters are AND-combined. String fields match
// on substrings; chunk_id, start_line, and end_line match exactly.
func metadataFiltersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Metadata fields to match, AND-combined. At least one field is required.",
		"properties": map[string]interface{}{
			"repo": map[string]interface{}{
				"type":        "string",
				"description": "Repository name substring (e.g., 'organization/repo-name')",
			},
			"branch": map[string]interface{}{
				"type":        "string",
				"description": "Branch name substring (e.g., 'main', 'develop')",
			},
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "File path substring within the repository (e.g., 'src/app.py')",
			},
			"chunk_id": map[string]interface{}{
				"type":        "string",
				"description": "Exact chunk identifier",
			},
			"language": map[string]interface{}{
				"type":        "string",
				"description": "Programming language substring (e.g., 'python', 'go')",
			},
			"start_line": map[string]interface{}{
				"type":        "string",
				"description": "Exact starting line number in the original file",
			},
			"end_line": map[string]interface{}{
				"type":        "string",
				"description": "Exact ending line number in the original file",
			},
		},
	}
}

// ragQueryTool returns the tool definition for rag_query.
func ragQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rag_query",
		Description: "Find the most relevant code snippets that match a natural-language query, using query expansion, hybrid lexical+vector search, and LLM reranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query about code or concepts",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getChunksByMetadataTool returns the tool definition for
// get_chunks_by_metadata.
func getChunksByMetadataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_chunks_by_metadata",
		Description: "Retrieve full code chunks matching metadata criteria (no ranking)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"metadata_filters": metadataFiltersSchema(),
			},
			Required: []string{"metadata_filters"},
		},
	}
}

// countChunksByMetadataTool returns the tool definition for
// count_chunks_by_metadata.
func countChunksByMetadataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "count_chunks_by_metadata",
		Description: "Count code chunks matching metadata criteria",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"metadata_filters": metadataFiltersSchema(),
			},
			Required: []string{"metadata_filters"},
		},
	}
}

// getMetadataByFiltersTool returns the tool definition for
// get_metadata_by_filters.
func getMetadataByFiltersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_metadata_by_filters",
		Description: "Retrieve only the metadata of chunks matching metadata criteria (chunk content omitted)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"metadata_filters": metadataFiltersSchema(),
			},
			Required: []string{"metadata_filters"},
		},
	}
}
