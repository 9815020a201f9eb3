package query

import (
	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a query key is permitted by any of the patterns
type Matcher func(patterns []string, key string) bool

// GlobMatcher permits keys matching any glob pattern (*, ?, [...], {a,b}).
// Malformed patterns never match.
func GlobMatcher(patterns []string, key string) bool {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, key)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// ExactMatcher permits keys equal to one of the patterns
func ExactMatcher(patterns []string, key string) bool {
	for _, pattern := range patterns {
		if pattern == key {
			return true
		}
	}
	return false
}
