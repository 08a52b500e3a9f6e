package types

import "errors"

// Domain errors. Only invalid-request errors are surfaced to callers;
// upstream failures are absorbed and logged at the component boundary.
var (
	// Invalid request errors (caller visible)
	ErrEmptyQuery         = errors.New("query cannot be empty")
	ErrEmptyFilters       = errors.New("metadata filters cannot be empty")
	ErrUnknownFilterField = errors.New("unknown metadata filter field")
	ErrInvalidFilterValue = errors.New("invalid metadata filter value")

	// Validation errors
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score cannot be negative")
)
