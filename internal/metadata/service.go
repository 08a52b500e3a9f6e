// Package metadata implements the filter-only read path over the chunk
// index: fetching, counting, and projecting chunks by metadata filters.
// No ranking is applied; output ordering is stable by chunk ID.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/codectx/codesearch-mcp/pkg/types"
)

// FilterIndex is the filter surface of the search index consumed by the
// service. *index.Client satisfies it.
type FilterIndex interface {
	FilterChunks(ctx context.Context, filters map[string]string, limit int) ([]types.Chunk, error)
	CountChunks(ctx context.Context, filters map[string]string) (int, error)
	FilterMetadata(ctx context.Context, filters map[string]string, limit int) ([]types.ChunkMetadata, error)
}

// Service answers metadata filter queries. All operations validate the
// filter set before any I/O: at least one known field is required,
// AND-combined. String fields use substring matching, chunk_id and line
// numbers exact matching.
type Service struct {
	index     FilterIndex
	maxChunks int
	logger    *slog.Logger
}

// NewService creates a metadata query service capping list results at
// maxChunks.
func NewService(index FilterIndex, maxChunks int, logger *slog.Logger) *Service {
	return &Service{index: index, maxChunks: maxChunks, logger: logger}
}

// GetChunks returns the full chunks matching the filters, at most
// maxChunks, ordered by chunk ID.
func (s *Service) GetChunks(ctx context.Context, filters map[string]string) ([]types.Chunk, error) {
	if err := ValidateFilters(filters); err != nil {
		return nil, err
	}
	chunks, err := s.index.FilterChunks(ctx, filters, s.maxChunks)
	if err != nil {
		return nil, fmt.Errorf("filter chunks: %w", err)
	}
	s.logger.Info("metadata chunk query", "filters", len(filters), "matched", len(chunks))
	return chunks, nil
}

// Count returns the number of chunks matching the filters.
func (s *Service) Count(ctx context.Context, filters map[string]string) (int, error) {
	if err := ValidateFilters(filters); err != nil {
		return 0, err
	}
	count, err := s.index.CountChunks(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	s.logger.Info("metadata count query", "filters", len(filters), "count", count)
	return count, nil
}

// GetMetadata returns metadata-only records (chunk text omitted) matching
// the filters, at most maxChunks, ordered by chunk ID.
func (s *Service) GetMetadata(ctx context.Context, filters map[string]string) ([]types.ChunkMetadata, error) {
	if err := ValidateFilters(filters); err != nil {
		return nil, err
	}
	records, err := s.index.FilterMetadata(ctx, filters, s.maxChunks)
	if err != nil {
		return nil, fmt.Errorf("filter metadata: %w", err)
	}
	s.logger.Info("metadata projection query", "filters", len(filters), "matched", len(records))
	return records, nil
}

// ValidateFilters rejects empty filter sets, unknown fields, and
// non-integer values for line-number fields before any I/O happens.
func ValidateFilters(filters map[string]string) error {
	if len(filters) == 0 {
		return types.ErrEmptyFilters
	}
	for field, value := range filters {
		if !knownField(field) {
			return fmt.Errorf("%w: %q", types.ErrUnknownFilterField, field)
		}
		if field == "start_line" || field == "end_line" {
			if _, err := strconv.Atoi(value); err != nil {
				return fmt.Errorf("%w: %s must be an integer, got %q", types.ErrInvalidFilterValue, field, value)
			}
		}
	}
	return nil
}

func knownField(field string) bool {
	for _, f := range types.MetadataFields {
		if f == field {
			return true
		}
	}
	return false
}
