// Package mcp exposes the query pipeline and metadata read path as MCP
// tools over stdio or streamable HTTP.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/codectx/codesearch-mcp/internal/config"
	"github.com/codectx/codesearch-mcp/internal/embedder"
	"github.com/codectx/codesearch-mcp/internal/index"
	"github.com/codectx/codesearch-mcp/internal/llm"
	"github.com/codectx/codesearch-mcp/internal/metadata"
	"github.com/codectx/codesearch-mcp/internal/rag"
	"github.com/codectx/codesearch-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name.
	ServerName = "codesearch-mcp"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// QueryPipeline is the query surface used by the rag_query tool.
type QueryPipeline interface {
	Query(ctx context.Context, query string) (*rag.Result, error)
}

// MetadataService is the filter surface used by the metadata tools.
type MetadataService interface {
	GetChunks(ctx context.Context, filters map[string]string) ([]types.Chunk, error)
	Count(ctx context.Context, filters map[string]string) (int, error)
	GetMetadata(ctx context.Context, filters map[string]string) ([]types.ChunkMetadata, error)
}

// Server wraps the MCP server with the application components.
type Server struct {
	mcp      *server.MCPServer
	pipeline QueryPipeline
	metadata MetadataService
	logger   *slog.Logger
}

// NewServer builds the full component graph from configuration: index
// client, embedder, LLM clients, pipeline, and metadata service.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	idx := index.NewClient(cfg, logger)

	emb, err := embedder.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	expansionLLM, err := llm.NewExpansionClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize expansion llm: %w", err)
	}

	rerankLLM, err := llm.NewRerankerClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize reranker llm: %w", err)
	}

	pipeline := rag.NewPipeline(cfg, idx, emb, expansionLLM, rerankLLM, logger)
	svc := metadata.NewService(idx, cfg.MaxChunks, logger)

	return NewServerWithComponents(pipeline, svc, logger), nil
}

// NewServerWithComponents wires a server around pre-built components.
func NewServerWithComponents(pipeline QueryPipeline, svc MetadataService, logger *slog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		pipeline: pipeline,
		metadata: svc,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// ServeStdio serves the MCP protocol on stdin/stdout and blocks until
// shutdown.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// ServeHTTP serves the MCP protocol over streamable HTTP on addr and
// blocks until shutdown.
func (s *Server) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(ragQueryTool(), s.handleRagQuery)
	s.mcp.AddTool(getChunksByMetadataTool(), s.handleGetChunksByMetadata)
	s.mcp.AddTool(countChunksByMetadataTool(), s.handleCountChunksByMetadata)
	s.mcp.AddTool(getMetadataByFiltersTool(), s.handleGetMetadataByFilters)
}
