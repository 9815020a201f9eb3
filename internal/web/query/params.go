package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Reserved query parameters consumed by pagination
const (
	PageParam    = "page"
	PerPageParam = "perPage"
	SortParam    = "sort"
)

// Pagination describes which page of a list to return and how to order it
type Pagination struct {
	// Page is 1-based
	Page int
	// PerPage is the page size; zero means unlimited
	PerPage int
	// SortField is a comma-separated list of fields, "-" prefix for descending
	SortField string
}

// SortKey is one field of a sort specification
type SortKey struct {
	Field string
	Desc  bool
}

// Skip returns the number of documents preceding the page. It saturates at
// math.MaxInt instead of overflowing.
func (p Pagination) Skip() int {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PerPage
}

// SortKeys parses SortField into ordered sort keys
func (p Pagination) SortKeys() []SortKey {
	fields := splitList(p.SortField)
	keys := make([]SortKey, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			if f = strings.TrimPrefix(f, "-"); f != "" {
				keys = append(keys, SortKey{Field: f, Desc: true})
			}
			continue
		}
		keys = append(keys, SortKey{Field: strings.TrimPrefix(f, "+")})
	}
	return keys
}

// Values flattens URL query values for the filter compiler. Single values
// become strings, repeated keys become []string.
func Values(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for key, values := range v {
		switch len(values) {
		case 0:
			continue
		case 1:
			out[key] = values[0]
		default:
			cp := make([]string, len(values))
			copy(cp, values)
			out[key] = cp
		}
	}
	return out
}

// ParsePagination reads page, perPage and sort from the query, falling back
// to defaults for anything missing or invalid.
// Example: ?page=2&perPage=10&sort=-created_at
func ParsePagination(v url.Values, defaults Pagination) Pagination {
	p := defaults
	if p.Page < 1 {
		p.Page = 1
	}

	if page, err := strconv.Atoi(v.Get(PageParam)); err == nil && page > 0 {
		p.Page = page
	}
	if perPage, err := strconv.Atoi(v.Get(PerPageParam)); err == nil && perPage > 0 {
		p.PerPage = perPage
	}
	if sorts := ParseSort(v); len(sorts) > 0 {
		p.SortField = strings.Join(sorts, ",")
	}

	return p
}

// ParseSort parses the sort query parameter into a slice of sort fields.
// Example: ?sort=-created_at,title returns ["-created_at", "title"]
// Returns an empty slice if the sort parameter is not present.
func ParseSort(v url.Values) []string {
	return splitList(v.Get(SortParam))
}

// splitList splits a comma-separated list, dropping blank entries
func splitList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
