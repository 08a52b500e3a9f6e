package rag

import "strings"

// extractJSONBlock strips a Markdown code fence from LLM output, if
// present, and returns the enclosed text. Models often wrap JSON answers
// in ```json fences even when asked not to.
func extractJSONBlock(content string) string {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	return content
}
