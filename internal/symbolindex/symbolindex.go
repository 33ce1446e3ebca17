// Package symbolindex implements the Symbol Index (spec.md §4.5): four
// secondary views over a logical set of SymbolIndexEntry, plus exact,
// substring, and fuzzy-subsequence search.
package symbolindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/surgebase/porter2"
)

// SearchOptions configures SearchSymbols (spec.md §4.5).
type SearchOptions struct {
	CaseSensitive   bool
	Fuzzy           bool
	MaxResults      int
	IncludeFileInfo bool
}

// DefaultSearchOptions mirrors spec.md §4.5's documented defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{CaseSensitive: false, Fuzzy: true, MaxResults: 100, IncludeFileInfo: true}
}

// SearchResult pairs a symbol entry with its match score.
type SearchResult struct {
	Entry types.SymbolIndexEntry
	Score float64
}

// Stats is the getStats snapshot (spec.md §4.5).
type Stats struct {
	TotalSymbols  int
	SymbolsByType map[types.SymbolKind]int
	SymbolsByFile map[string]int
}

// Index holds the four secondary views.
type Index struct {
	mu      sync.RWMutex
	byName  map[string][]types.SymbolIndexEntry
	byKind  map[types.SymbolKind][]types.SymbolIndexEntry
	byFile  map[string][]types.SymbolIndexEntry
	byScope map[string][]types.SymbolIndexEntry
}

// New constructs an empty symbol index.
func New() *Index {
	return &Index{
		byName:  make(map[string][]types.SymbolIndexEntry),
		byKind:  make(map[types.SymbolKind][]types.SymbolIndexEntry),
		byFile:  make(map[string][]types.SymbolIndexEntry),
		byScope: make(map[string][]types.SymbolIndexEntry),
	}
}

// AddSymbol fans entry out into every applicable bucket. Scope fan-out
// only occurs when the symbol has a non-empty scope.
func (idx *Index) AddSymbol(entry types.SymbolIndexEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insertLocked(entry)
}

func (idx *Index) insertLocked(entry types.SymbolIndexEntry) {
	name := entry.Symbol.Name
	idx.byName[name] = append(idx.byName[name], entry)
	idx.byKind[entry.Symbol.Kind] = append(idx.byKind[entry.Symbol.Kind], entry)
	idx.byFile[entry.FileInfo.FilePath] = append(idx.byFile[entry.FileInfo.FilePath], entry)
	if len(entry.Symbol.Scope) > 0 {
		key := entry.Symbol.Scope.Key()
		idx.byScope[key] = append(idx.byScope[key], entry)
	}
}

// AddSymbols inserts every entry, in order.
func (idx *Index) AddSymbols(entries []types.SymbolIndexEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		idx.insertLocked(e)
	}
}

func matchesKey(e types.SymbolIndexEntry, name, filePath string) bool {
	return e.Symbol.Name == name && e.FileInfo.FilePath == filePath
}

func removeMatching(bucket []types.SymbolIndexEntry, name, filePath string) []types.SymbolIndexEntry {
	out := bucket[:0]
	for _, e := range bucket {
		if !matchesKey(e, name, filePath) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func pruneEmpty[K comparable](m map[K][]types.SymbolIndexEntry, key K) {
	if len(m[key]) == 0 {
		delete(m, key)
	}
}

// RemoveSymbol drops every entry matching (name, filePath) from all
// four views, deleting any bucket left empty.
func (idx *Index) RemoveSymbol(name, filePath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(name, filePath)
}

func (idx *Index) removeLocked(name, filePath string) {
	if _, ok := idx.byName[name]; ok {
		idx.byName[name] = removeMatching(idx.byName[name], name, filePath)
		pruneEmpty(idx.byName, name)
	}
	for kind, bucket := range idx.byKind {
		idx.byKind[kind] = removeMatching(bucket, name, filePath)
		pruneEmpty(idx.byKind, kind)
	}
	if bucket, ok := idx.byFile[filePath]; ok {
		idx.byFile[filePath] = removeMatching(bucket, name, filePath)
		pruneEmpty(idx.byFile, filePath)
	}
	for key, bucket := range idx.byScope {
		idx.byScope[key] = removeMatching(bucket, name, filePath)
		pruneEmpty(idx.byScope, key)
	}
}

// RemoveFileSymbols drops every entry belonging to filePath from all
// four views (the cascading composite removal spec.md §4.5 requires
// file removal to perform).
func (idx *Index) RemoveFileSymbols(filePath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	bucket := idx.byFile[filePath]
	names := make(map[string]bool, len(bucket))
	for _, e := range bucket {
		names[e.Symbol.Name] = true
	}
	for name := range names {
		idx.removeLocked(name, filePath)
	}
}

// UpdateSymbol is remove-then-insert with identical-key semantics.
func (idx *Index) UpdateSymbol(entry types.SymbolIndexEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(entry.Symbol.Name, entry.FileInfo.FilePath)
	idx.insertLocked(entry)
}

// FindSymbol is an exact byName bucket read. Results report score 1.0.
func (idx *Index) FindSymbol(name string, maxResults int) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return clip(exactResults(idx.byName[name]), maxResults)
}

// FindSymbolsByType is an exact byKind bucket read. Results report
// score 1.0.
func (idx *Index) FindSymbolsByType(kind types.SymbolKind, maxResults int) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return clip(exactResults(idx.byKind[kind]), maxResults)
}

// FindSymbolsInScope is an exact byScope bucket read. Results report
// score 1.0.
func (idx *Index) FindSymbolsInScope(scope types.Scope, maxResults int) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return clip(exactResults(idx.byScope[scope.Key()]), maxResults)
}

func exactResults(bucket []types.SymbolIndexEntry) []SearchResult {
	out := make([]SearchResult, len(bucket))
	for i, e := range bucket {
		out[i] = SearchResult{Entry: e, Score: 1.0}
	}
	return out
}

func clip(results []SearchResult, maxResults int) []SearchResult {
	if maxResults > 0 && len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}

// fuzzyScore implements spec.md §4.5's character-subsequence match:
// walk pattern and target left-to-right, consuming a target character
// and advancing the pattern pointer whenever they match. Matches only
// when every pattern character is consumed.
func fuzzyScore(pattern, target string) float64 {
	if pattern == "" {
		return 0.1
	}
	p := []rune(pattern)
	tgt := []rune(target)

	pi, matched := 0, 0
	for ti := 0; ti < len(tgt) && pi < len(p); ti++ {
		if tgt[ti] == p[pi] {
			pi++
			matched++
		}
	}
	if pi != len(p) {
		return 0
	}
	denom := len(p)
	if len(tgt) > denom {
		denom = len(tgt)
	}
	return float64(matched) / float64(denom)
}

// substringScore implements spec.md §4.5's non-fuzzy containment
// scoring.
func substringScore(pattern, target string) float64 {
	if pattern == target {
		return 1.0
	}
	if strings.HasPrefix(target, pattern) {
		return 0.8
	}
	if strings.Contains(target, pattern) {
		return 0.6
	}
	return 0.1
}

// SearchSymbols implements spec.md §4.5's fuzzy/substring search over
// the byName map.
func (idx *Index) SearchSymbols(pattern string, opts SearchOptions) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}

	matchPattern, compare := pattern, func(s string) string { return s }
	if !opts.CaseSensitive {
		matchPattern = strings.ToLower(pattern)
		compare = strings.ToLower
	}

	type nameScore struct {
		name  string
		score float64
	}
	var scored []nameScore
	for name := range idx.byName {
		target := compare(name)
		var score float64
		if opts.Fuzzy {
			score = fuzzyScore(matchPattern, target)
			if matchPattern != "" && score == 0 {
				continue
			}
		} else {
			if !strings.Contains(target, matchPattern) {
				continue
			}
			score = substringScore(matchPattern, target)
		}
		scored = append(scored, nameScore{name: name, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var results []SearchResult
	for _, ns := range scored {
		for _, e := range idx.byName[ns.name] {
			if len(results) >= opts.MaxResults {
				return results
			}
			results = append(results, SearchResult{Entry: e, Score: ns.score})
		}
	}
	return results
}

// FindSymbolsByStem stems both pattern and every indexed name with the
// Porter2 algorithm, then does an exact match on the stemmed form.
// This supplements spec.md §4.5's required search family; it does not
// replace it.
func (idx *Index) FindSymbolsByStem(pattern string, maxResults int) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	target := porter2.Stem(strings.ToLower(pattern))
	var results []SearchResult
	for name, bucket := range idx.byName {
		if porter2.Stem(strings.ToLower(name)) != target {
			continue
		}
		for _, e := range bucket {
			results = append(results, SearchResult{Entry: e, Score: 1.0})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return clip(results, maxResults)
}

// GetStats returns totals plus the symbolsByType/symbolsByFile
// histograms (spec.md §4.5).
func (idx *Index) GetStats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := Stats{
		SymbolsByType: make(map[types.SymbolKind]int),
		SymbolsByFile: make(map[string]int),
	}
	for _, bucket := range idx.byName {
		stats.TotalSymbols += len(bucket)
	}
	for kind, bucket := range idx.byKind {
		stats.SymbolsByType[kind] = len(bucket)
	}
	for file, bucket := range idx.byFile {
		stats.SymbolsByFile[file] = len(bucket)
	}
	return stats
}

// Clear empties all four views.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byName = make(map[string][]types.SymbolIndexEntry)
	idx.byKind = make(map[types.SymbolKind][]types.SymbolIndexEntry)
	idx.byFile = make(map[string][]types.SymbolIndexEntry)
	idx.byScope = make(map[string][]types.SymbolIndexEntry)
}
