package memcache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegrid/codeindex/internal/xerrors"
)

// namedCache erases a MemoryCache's value type so the manager can hold
// caches of differing K/V behind one registry (spec.md §4.8's
// CacheManager is untyped at the Go level — callers type-assert the
// concrete *MemoryCache[K, V] they created).
type namedCache interface {
	Clear()
	GetStats() Stats
	Dispose()
}

// GlobalStats aggregates hits/misses/size/memory across every cache a
// manager owns.
type GlobalStats struct {
	Hits      int64
	Misses    int64
	Size      int
	MemoryUse int64
	Caches    int
}

// WarmupResult reports how many entries a warmup call loaded successfully.
type WarmupResult struct {
	Loaded int
	Failed int
}

// GlobalEvent is a cache event re-scoped to the manager level: a
// Event[K] with its key type erased and the owning cache's name
// attached, so a listener registered on the manager can observe
// every cache it owns regardless of each one's K/V pair.
type GlobalEvent struct {
	CacheName string
	Kind      EventKind
	Key       any
	Timestamp time.Time
}

// GlobalListener receives every event emitted by every cache a
// Manager owns. A listener that panics is isolated, matching the
// per-cache Listener contract.
type GlobalListener func(GlobalEvent)

type globalListenerEntry struct {
	id int
	fn GlobalListener
}

// Manager is a named-cache registry (spec.md §4.8's CacheManager):
// createCache/getCache/deleteCache and friends, plus global stats
// aggregation and a manager-wide event listener registry fed by every
// cache it owns.
type Manager struct {
	mu     sync.RWMutex
	caches map[string]namedCache

	listenersMu sync.RWMutex
	listeners   []globalListenerEntry
	nextID      int
	logger      *slog.Logger
}

// NewManager constructs an empty cache manager.
func NewManager() *Manager {
	return &Manager{
		caches: make(map[string]namedCache),
		logger: slog.Default().With("component", "memcache.manager"),
	}
}

// AddGlobalEventListener registers a listener that observes events
// from every cache the manager owns, present and future (spec.md
// §4.8's addGlobalEventListener). The returned handle can later be
// passed to RemoveGlobalEventListener.
func (m *Manager) AddGlobalEventListener(l GlobalListener) ListenerHandle {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, globalListenerEntry{id: id, fn: l})
	return ListenerHandle(id)
}

// RemoveGlobalEventListener unregisters a listener previously added
// with AddGlobalEventListener (spec.md §4.8's removeGlobalEventListener).
func (m *Manager) RemoveGlobalEventListener(h ListenerHandle) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	for i, entry := range m.listeners {
		if entry.id == int(h) {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Manager) dispatchGlobal(ev GlobalEvent) {
	m.listenersMu.RLock()
	snapshot := append([]globalListenerEntry(nil), m.listeners...)
	m.listenersMu.RUnlock()

	for _, entry := range snapshot {
		m.dispatchOne(entry.fn, ev)
	}
}

// dispatchOne isolates a global listener panic so one bad observer
// cannot break event delivery for every other cache and listener,
// matching MemoryCache's own dispatch.
func (m *Manager) dispatchOne(l GlobalListener, ev GlobalEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("global cache listener panicked", "cache", ev.CacheName, "event", ev.Kind, "recover", r)
		}
	}()
	l(ev)
}

// CreateCache registers a new MemoryCache under name. Fails if the name
// is already taken (spec.md §4.8). Every event the new cache emits is
// also fanned out to the manager's own global listeners.
func CreateCache[K comparable, V any](m *Manager, name string, opts Options) (*MemoryCache[K, V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.caches[name]; exists {
		return nil, xerrors.CacheExists(name)
	}

	c := New[K, V](opts)
	c.AddListener(func(ev Event[K]) {
		m.dispatchGlobal(GlobalEvent{CacheName: name, Kind: ev.Kind, Key: ev.Key, Timestamp: ev.Timestamp})
	})
	m.caches[name] = c
	return c, nil
}

// GetCache retrieves a previously created cache by name, type-asserting
// it to *MemoryCache[K, V]. The second return is false if the name is
// unknown or was created with a different K/V pair.
func GetCache[K comparable, V any](m *Manager, name string) (*MemoryCache[K, V], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.caches[name]
	if !ok {
		return nil, false
	}
	typed, ok := c.(*MemoryCache[K, V])
	return typed, ok
}

// HasCache reports whether name is registered.
func (m *Manager) HasCache(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.caches[name]
	return ok
}

// DeleteCache disposes and unregisters the cache named name.
func (m *Manager) DeleteCache(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caches[name]
	if !ok {
		return false
	}
	c.Dispose()
	delete(m.caches, name)
	return true
}

// DeleteCaches removes every cache whose name appears in names.
func (m *Manager) DeleteCaches(names []string) int {
	deleted := 0
	for _, n := range names {
		if m.DeleteCache(n) {
			deleted++
		}
	}
	return deleted
}

// ListCaches returns the names of every registered cache.
func (m *Manager) ListCaches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	return names
}

// ClearCache clears one cache's contents without unregistering it.
func (m *Manager) ClearCache(name string) bool {
	m.mu.RLock()
	c, ok := m.caches[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	c.Clear()
	return true
}

// ClearCaches clears every cache named in names.
func (m *Manager) ClearCaches(names []string) int {
	cleared := 0
	for _, n := range names {
		if m.ClearCache(n) {
			cleared++
		}
	}
	return cleared
}

// ClearAll clears every registered cache.
func (m *Manager) ClearAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.caches {
		c.Clear()
	}
}

// WarmupCache sets every entry in data into the cache named name,
// reporting how many loaded versus failed (spec.md §4.8). Entries fail
// only when the named cache does not exist or the type parameters do
// not match.
func WarmupCache[K comparable, V any](m *Manager, name string, data map[K]V) WarmupResult {
	c, ok := GetCache[K, V](m, name)
	if !ok {
		return WarmupResult{Failed: len(data)}
	}
	result := WarmupResult{}
	for k, v := range data {
		c.Set(k, v, 0)
		result.Loaded++
	}
	return result
}

// GetGlobalStats aggregates hits/misses/size/memory across every
// registered cache.
func (m *Manager) GetGlobalStats() GlobalStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var g GlobalStats
	g.Caches = len(m.caches)
	for _, c := range m.caches {
		s := c.GetStats()
		g.Hits += s.Hits
		g.Misses += s.Misses
		g.Size += s.Size
		g.MemoryUse += s.MemoryUse
	}
	return g
}

// Dispose disposes every registered cache and empties the registry.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.Dispose()
	}
	m.caches = make(map[string]namedCache)
}
