package rag

import (
	"fmt"
	"strings"

	"github.com/codectx/codesearch-mcp/pkg/types"
)

// expansionPromptTemplate asks the LLM for alternative phrasings of a code
// search query. The response contract is a bare JSON array of strings.
const expansionPromptTemplate = `You generate semantically diverse search queries for a code retrieval system.

Original query: '%s'

Write %d alternative queries that capture the same information need. Use
synonyms and alternative technical terms, reframe the problem, or narrow in
on key concepts. Each alternative should stand on its own as a search query
for source code.

Respond with a valid JSON array of strings containing only the alternative
queries, for example: ["query 1", "query 2"]

Do not repeat the original query and do not add explanations.`

// rerankPromptTemplate asks the LLM to score retrieved chunks against the
// original query. The response contract is a JSON array of {id, score}
// objects ordered from most to least relevant.
const rerankPromptTemplate = `You judge the relevance of code chunks retrieved for a code search query.

The original query is: '%s'

For each chunk below, assign a relevance score from 0.0 (irrelevant) to 1.0
(highly relevant). Consider whether the code addresses the query's intent,
contains its key concepts, and would help someone asking the question.

Respond with a valid JSON array of objects with "id" and "score" fields,
ordered from most to least relevant. Omit chunks scoring 0.2 or below.
Example:
[
  {"id": "src/auth.go:3", "score": 0.95},
  {"id": "src/token.go:1", "score": 0.7}
]

Code chunks:

%s`

func expansionPrompt(query string, n int) string {
	return fmt.Sprintf(expansionPromptTemplate, query, n)
}

func rerankPrompt(query, formattedChunks string) string {
	return fmt.Sprintf(rerankPromptTemplate, query, formattedChunks)
}

// formatCandidate renders one candidate for the rerank prompt: the chunk
// ID the LLM must echo back, location metadata, and the code itself.
func formatCandidate(c types.FusedCandidate) string {
	m := c.Chunk.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "Chunk ID: %s\n", m.ChunkID)
	fmt.Fprintf(&b, "Location: %s@%s %s:%d-%d (%s)\n",
		m.Repo, m.Branch, m.FilePath, m.StartLine, m.EndLine, m.Language)
	b.WriteString("Content:\n```\n")
	b.WriteString(c.Chunk.Text)
	b.WriteString("\n```\n---\n")
	return b.String()
}
