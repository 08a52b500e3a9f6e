package types

import "errors"

// MetadataFields lists the chunk metadata fields that may be filtered on.
var MetadataFields = []string{
	"repo", "branch", "file_path", "chunk_id", "language", "start_line", "end_line",
}

// ChunkMetadata identifies where an indexed chunk came from.
// It mirrors the metadata object stored alongside each chunk in the index.
type ChunkMetadata struct {
	ChunkID   string `json:"chunk_id"`
	Repo      string `json:"repo"`
	Branch    string `json:"branch"`
	FilePath  string `json:"file_path"`
	Language  string `json:"language"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Chunk is an indexed, line-ranged fragment of source code. Chunks are
// created by the ingestion pipeline and are immutable on the query path;
// the stored embedding vector is owned by the index and never read back.
type Chunk struct {
	Metadata ChunkMetadata `json:"metadata"`
	Text     string        `json:"text"`
}

// Validate checks that a chunk carries the minimum identifying metadata.
func (c *Chunk) Validate() error {
	if c.Metadata.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if c.Metadata.StartLine < 0 || c.Metadata.EndLine < 0 {
		return errors.New("line numbers cannot be negative")
	}
	if c.Metadata.EndLine > 0 && c.Metadata.StartLine > c.Metadata.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	return nil
}
