package memcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndGetCache(t *testing.T) {
	m := NewManager()
	c, err := CreateCache[string, int](m, "files", DefaultOptions())
	require.NoError(t, err)
	c.Set("a", 1, 0)

	got, ok := GetCache[string, int](m, "files")
	require.True(t, ok)
	v, ok := got.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestManager_CreateCache_DuplicateNameFails(t *testing.T) {
	m := NewManager()
	_, err := CreateCache[string, int](m, "files", DefaultOptions())
	require.NoError(t, err)

	_, err = CreateCache[string, int](m, "files", DefaultOptions())
	require.Error(t, err)
}

func TestManager_GetCache_WrongTypeFails(t *testing.T) {
	m := NewManager()
	_, err := CreateCache[string, int](m, "files", DefaultOptions())
	require.NoError(t, err)

	_, ok := GetCache[string, string](m, "files")
	assert.False(t, ok)
}

func TestManager_DeleteCache(t *testing.T) {
	m := NewManager()
	_, err := CreateCache[string, int](m, "files", DefaultOptions())
	require.NoError(t, err)

	assert.True(t, m.DeleteCache("files"))
	assert.False(t, m.HasCache("files"))
	assert.False(t, m.DeleteCache("files"))
}

func TestManager_ListCaches(t *testing.T) {
	m := NewManager()
	_, _ = CreateCache[string, int](m, "a", DefaultOptions())
	_, _ = CreateCache[string, int](m, "b", DefaultOptions())

	names := m.ListCaches()
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestManager_ClearCacheAndClearAll(t *testing.T) {
	m := NewManager()
	c, _ := CreateCache[string, int](m, "a", DefaultOptions())
	c.Set("k", 1, 0)

	assert.True(t, m.ClearCache("a"))
	assert.Equal(t, 0, c.Size())

	c.Set("k", 1, 0)
	m.ClearAll()
	assert.Equal(t, 0, c.Size())
}

func TestManager_WarmupCache(t *testing.T) {
	m := NewManager()
	_, err := CreateCache[string, int](m, "a", DefaultOptions())
	require.NoError(t, err)

	result := WarmupCache[string, int](m, "a", map[string]int{"x": 1, "y": 2})
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, 0, result.Failed)

	c, _ := GetCache[string, int](m, "a")
	assert.Equal(t, 2, c.Size())
}

func TestManager_WarmupCache_UnknownName(t *testing.T) {
	m := NewManager()
	result := WarmupCache[string, int](m, "missing", map[string]int{"x": 1})
	assert.Equal(t, 0, result.Loaded)
	assert.Equal(t, 1, result.Failed)
}

func TestManager_GetGlobalStats(t *testing.T) {
	m := NewManager()
	a, _ := CreateCache[string, int](m, "a", DefaultOptions())
	b, _ := CreateCache[string, int](m, "b", DefaultOptions())

	a.Set("x", 1, 0)
	a.Get("x")
	a.Get("missing")
	b.Set("y", 2, 0)

	stats := m.GetGlobalStats()
	assert.Equal(t, 2, stats.Caches)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 2, stats.Size)
}

func TestManager_GlobalEventListener_ObservesEveryCache(t *testing.T) {
	m := NewManager()
	a, err := CreateCache[string, int](m, "a", DefaultOptions())
	require.NoError(t, err)

	var events []GlobalEvent
	handle := m.AddGlobalEventListener(func(ev GlobalEvent) { events = append(events, ev) })

	a.Set("x", 1, 0)

	b, err := CreateCache[string, int](m, "b", DefaultOptions())
	require.NoError(t, err)
	b.Set("y", 2, 0)

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].CacheName)
	assert.Equal(t, EventSet, events[0].Kind)
	assert.Equal(t, "x", events[0].Key)
	assert.Equal(t, "b", events[1].CacheName)
	assert.Equal(t, "y", events[1].Key)

	m.RemoveGlobalEventListener(handle)
	a.Set("z", 3, 0)
	assert.Len(t, events, 2, "no further events after removal")
}

func TestManager_GlobalEventListener_PanicIsIsolated(t *testing.T) {
	m := NewManager()
	c, err := CreateCache[string, int](m, "a", DefaultOptions())
	require.NoError(t, err)

	m.AddGlobalEventListener(func(GlobalEvent) { panic("boom") })

	var observed []GlobalEvent
	m.AddGlobalEventListener(func(ev GlobalEvent) { observed = append(observed, ev) })

	assert.NotPanics(t, func() { c.Set("x", 1, 0) })
	assert.Len(t, observed, 1)
}

func TestManager_Dispose(t *testing.T) {
	m := NewManager()
	_, _ = CreateCache[string, int](m, "a", DefaultOptions())
	m.Dispose()
	assert.Empty(t, m.ListCaches())
}
