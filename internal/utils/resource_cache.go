package utils

import (
	"sort"
	"strings"

	"github.com/specialsearch/specialsearch/internal/domain/resource"
)

// BuildResourceListCacheKey produces a stable cache key for a resource list
// query, so equivalent filters hit the same entry.
func BuildResourceListCacheKey(filter resource.ListFilter) string {
	parts := []string{}

	if filter.Type != "" {
		parts = append(parts, "type="+strings.ToLower(filter.Type))
	}

	if filter.City != "" {
		parts = append(parts, "city="+strings.ToLower(filter.City))
	}

	sort.Strings(parts)

	if len(parts) == 0 {
		return "resources:list:all"
	}

	return "resources:list:" + strings.Join(parts, "&")
}
