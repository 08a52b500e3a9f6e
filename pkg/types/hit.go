package types

// Modality identifies which retrieval path produced a search hit.
type Modality string

const (
	ModalityLexical Modality = "lexical" // BM25 term match
	ModalityVector  Modality = "vector"  // embedding nearest-neighbor
)

// SearchHit is a single result from one (query variant, modality) search
// call. Hits are ephemeral; they exist only until fusion.
type SearchHit struct {
	ChunkID  string
	Score    float64
	Modality Modality
	Chunk    Chunk
}

// FusedCandidate is a deduplicated chunk with a score reconciled across
// every hit that referenced it. Fusion guarantees at most one candidate
// per distinct chunk ID.
type FusedCandidate struct {
	Chunk Chunk
	// Score is the maximum per-modality-normalized score, in [0, 1].
	Score float64
	// Modality is the retrieval path of the candidate's best hit.
	Modality Modality
}

// RankedResult is the terminal output of the query pipeline: a fused
// candidate with its final 1-based rank and LLM relevance score.
type RankedResult struct {
	Chunk          Chunk
	Rank           int
	RelevanceScore float64
	Modality       Modality
}

// Validate checks if the ranked result is well formed.
func (r *RankedResult) Validate() error {
	if r.Chunk.Metadata.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if r.Rank < 1 {
		return ErrInvalidRank
	}
	if r.RelevanceScore < 0 {
		return ErrInvalidRelevanceScore
	}
	return nil
}
