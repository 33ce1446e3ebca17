package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesAny reports whether relPath matches any of the given doublestar
// glob patterns (`**`, `*`, `?` semantics), used for both the indexing
// engine's exclude-pattern filtering and the watcher's path filtering
// (spec.md §6).
func MatchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, normalized); ok {
			return true
		}
	}
	return false
}

// ShouldIndexFile reports whether a file at relPath should be indexed
// given an include-extension allowlist and an exclude-pattern glob list.
// An empty include list means "no extension restriction".
func ShouldIndexFile(relPath string, includeExtensions, excludePatterns []string) bool {
	if MatchesAny(relPath, excludePatterns) {
		return false
	}
	if len(includeExtensions) == 0 {
		return true
	}
	ext := ExtensionOf(relPath)
	for _, inc := range includeExtensions {
		if strings.EqualFold(inc, ext) {
			return true
		}
	}
	return false
}

// ExtensionOf returns the lowercased extension of path, including the
// leading dot, or "" if path has none. A dot that starts the base name
// (".hidden") does not begin an extension.
func ExtensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexAny(path, `/\`)
	if idx <= slash+1 {
		return ""
	}
	return strings.ToLower(path[idx:])
}
