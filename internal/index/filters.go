package index

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/codectx/codesearch-mcp/pkg/types"
)

// Filter semantics per field. String fields match on substrings
// (case-sensitive); chunk_id and line numbers match exactly. All supplied
// filters are AND-combined.
var (
	substringFields = map[string]bool{
		"repo":      true,
		"branch":    true,
		"file_path": true,
		"language":  true,
	}
	exactStringFields = map[string]bool{
		"chunk_id": true,
	}
	numericFields = map[string]bool{
		"start_line": true,
		"end_line":   true,
	}
)

// BuildFilterQuery translates metadata filters into an OpenSearch bool
// query. An empty or unknown filter is rejected before any I/O happens.
func BuildFilterQuery(filters map[string]string) (map[string]interface{}, error) {
	if len(filters) == 0 {
		return nil, types.ErrEmptyFilters
	}

	must := make([]interface{}, 0, len(filters))
	for field, value := range filters {
		switch {
		case substringFields[field]:
			must = append(must, map[string]interface{}{
				"wildcard": map[string]interface{}{
					"metadata." + field + ".keyword": map[string]interface{}{
						"value": "*" + escapeWildcard(value) + "*",
					},
				},
			})

		case exactStringFields[field]:
			must = append(must, map[string]interface{}{
				"term": map[string]interface{}{
					"metadata." + field + ".keyword": value,
				},
			})

		case numericFields[field]:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be an integer, got %q", types.ErrInvalidFilterValue, field, value)
			}
			must = append(must, map[string]interface{}{
				"term": map[string]interface{}{
					"metadata." + field: n,
				},
			})

		default:
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownFilterField, field)
		}
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": must,
		},
	}, nil
}

// escapeWildcard neutralizes OpenSearch wildcard metacharacters in user
// input so filter values match literally.
func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}
