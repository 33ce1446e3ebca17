package symbolindex

import (
	"testing"

	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name string, kind types.SymbolKind, file string, scope types.Scope) types.SymbolIndexEntry {
	return types.SymbolIndexEntry{
		Symbol:   types.Symbol{Name: name, Kind: kind, Scope: scope},
		FileInfo: types.FileInfo{FilePath: file},
	}
}

func TestIndex_AddSymbol_FansOutToAllViews(t *testing.T) {
	idx := New()
	scope := types.Scope{{Kind: types.SymbolClass, Name: "Greeter"}}
	idx.AddSymbol(entry("greet", types.SymbolMethod, "a.go", scope))

	assert.Len(t, idx.FindSymbol("greet", 0), 1)
	assert.Len(t, idx.FindSymbolsByType(types.SymbolMethod, 0), 1)
	assert.Len(t, idx.byFile["a.go"], 1)
	assert.Len(t, idx.FindSymbolsInScope(scope, 0), 1)
}

func TestIndex_AddSymbol_NoScopeSkipsScopeFanout(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	assert.Empty(t, idx.byScope)
}

func TestIndex_RemoveSymbol_DeletesEmptyBuckets(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	idx.RemoveSymbol("main", "a.go")

	assert.Empty(t, idx.FindSymbol("main", 0))
	_, ok := idx.byName["main"]
	assert.False(t, ok)
	_, ok = idx.byFile["a.go"]
	assert.False(t, ok)
}

func TestIndex_RemoveFileSymbols_CascadesAcrossAllViews(t *testing.T) {
	idx := New()
	scope := types.Scope{{Kind: types.SymbolClass, Name: "Greeter"}}
	idx.AddSymbols([]types.SymbolIndexEntry{
		entry("greet", types.SymbolMethod, "a.go", scope),
		entry("Greeter", types.SymbolClass, "a.go", nil),
		entry("other", types.SymbolFunction, "b.go", nil),
	})

	idx.RemoveFileSymbols("a.go")

	assert.Empty(t, idx.FindSymbol("greet", 0))
	assert.Empty(t, idx.FindSymbol("Greeter", 0))
	assert.Len(t, idx.FindSymbol("other", 0), 1)
	assert.Empty(t, idx.FindSymbolsInScope(scope, 0))
}

func TestIndex_UpdateSymbol_ReplacesEntry(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	idx.UpdateSymbol(entry("main", types.SymbolMethod, "a.go", nil))

	results := idx.FindSymbol("main", 0)
	require.Len(t, results, 1)
	assert.Equal(t, types.SymbolMethod, results[0].Entry.Symbol.Kind)
}

func TestIndex_ExactLookups_ScoreOne(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	results := idx.FindSymbol("main", 0)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestIndex_SearchSymbols_FuzzySubsequence(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("Calculator", types.SymbolClass, "a.go", nil))
	idx.AddSymbol(entry("Calendar", types.SymbolClass, "a.go", nil))
	idx.AddSymbol(entry("Cal", types.SymbolClass, "a.go", nil))

	results := idx.SearchSymbols("Cal", SearchOptions{Fuzzy: true, MaxResults: 100})
	require.Len(t, results, 3)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Entry.Symbol.Name
	}
	assert.Equal(t, "Cal", names[0])
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestIndex_SearchSymbols_FuzzyMissScoresZeroAndIsExcluded(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("Calculator", types.SymbolClass, "a.go", nil))
	results := idx.SearchSymbols("xyz", SearchOptions{Fuzzy: true, MaxResults: 100})
	assert.Empty(t, results)
}

func TestIndex_SearchSymbols_EmptyPatternFuzzyScoresPointOne(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	results := idx.SearchSymbols("", SearchOptions{Fuzzy: true, MaxResults: 100})
	require.Len(t, results, 1)
	assert.Equal(t, 0.1, results[0].Score)
}

func TestIndex_SearchSymbols_SubstringScoring(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("Greeter", types.SymbolClass, "a.go", nil))
	idx.AddSymbol(entry("GreeterFactory", types.SymbolClass, "a.go", nil))
	idx.AddSymbol(entry("MyGreeterThing", types.SymbolClass, "a.go", nil))

	results := idx.SearchSymbols("Greeter", SearchOptions{Fuzzy: false, MaxResults: 100})
	require.Len(t, results, 3)

	byName := map[string]float64{}
	for _, r := range results {
		byName[r.Entry.Symbol.Name] = r.Score
	}
	assert.Equal(t, 1.0, byName["Greeter"])
	assert.Equal(t, 0.8, byName["GreeterFactory"])
	assert.Equal(t, 0.6, byName["MyGreeterThing"])
}

func TestIndex_SearchSymbols_MaxResultsClips(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("aaa", types.SymbolFunction, "a.go", nil))
	idx.AddSymbol(entry("aab", types.SymbolFunction, "a.go", nil))
	idx.AddSymbol(entry("aac", types.SymbolFunction, "a.go", nil))

	results := idx.SearchSymbols("a", SearchOptions{Fuzzy: true, MaxResults: 2})
	assert.Len(t, results, 2)
}

func TestIndex_FindSymbolsByStem(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("running", types.SymbolFunction, "a.go", nil))
	idx.AddSymbol(entry("runner", types.SymbolFunction, "a.go", nil))

	results := idx.FindSymbolsByStem("run", 0)
	assert.Len(t, results, 1)
	assert.Equal(t, "running", results[0].Entry.Symbol.Name)
}

func TestIndex_GetStats(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	idx.AddSymbol(entry("Greeter", types.SymbolClass, "a.go", nil))
	idx.AddSymbol(entry("helper", types.SymbolFunction, "b.go", nil))

	stats := idx.GetStats()
	assert.Equal(t, 3, stats.TotalSymbols)
	assert.Equal(t, 2, stats.SymbolsByType[types.SymbolFunction])
	assert.Equal(t, 1, stats.SymbolsByType[types.SymbolClass])
	assert.Equal(t, 2, stats.SymbolsByFile["a.go"])
	assert.Equal(t, 1, stats.SymbolsByFile["b.go"])
}

func TestIndex_Clear(t *testing.T) {
	idx := New()
	idx.AddSymbol(entry("main", types.SymbolFunction, "a.go", nil))
	idx.Clear()
	assert.Equal(t, 0, idx.GetStats().TotalSymbols)
}
