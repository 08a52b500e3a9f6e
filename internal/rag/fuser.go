package rag

import (
	"sort"

	"github.com/codectx/codesearch-mcp/pkg/types"
)

// Fuse merges the hit union from all variants and modalities into a
// deduplicated, capped candidate list.
//
// Lexical (BM25) and vector scores live on different scales, so each
// modality's scores are first rescaled to [0, 1] against the maximum
// score observed for that modality within this request. A chunk's fused
// score is the maximum of its normalized hit scores. Candidates are
// ordered by fused score descending with ties broken by chunk ID
// ascending, which makes the output a pure function of the hit set,
// independent of arrival order.
func Fuse(hits []types.SearchHit, maxChunks int) []types.FusedCandidate {
	if len(hits) == 0 {
		return nil
	}

	// Per-modality maxima for this request.
	maxScore := map[types.Modality]float64{}
	for _, h := range hits {
		if h.Score > maxScore[h.Modality] {
			maxScore[h.Modality] = h.Score
		}
	}

	best := map[string]types.FusedCandidate{}
	for _, h := range hits {
		if h.ChunkID == "" {
			continue
		}

		norm := 0.0
		if m := maxScore[h.Modality]; m > 0 {
			norm = h.Score / m
		}

		cur, ok := best[h.ChunkID]
		if !ok || norm > cur.Score {
			best[h.ChunkID] = types.FusedCandidate{
				Chunk:    h.Chunk,
				Score:    norm,
				Modality: h.Modality,
			}
		}
	}

	candidates := make([]types.FusedCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.Metadata.ChunkID < candidates[j].Chunk.Metadata.ChunkID
	})

	if maxChunks > 0 && len(candidates) > maxChunks {
		candidates = candidates[:maxChunks]
	}
	return candidates
}
