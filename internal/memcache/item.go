package memcache

import "time"

// Item is the stored record behind every key (spec.md §3's CacheItem<V>).
// Its lifecycle is driven entirely by the owning cache: creation on set,
// mutation on get (access fields), removal on delete, eviction, or
// expiration.
type Item[V any] struct {
	Value          V
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
	ExpiresAt      *time.Time
	SizeHint       int
}

func (it *Item[V]) expired(now time.Time) bool {
	return it.ExpiresAt != nil && !it.ExpiresAt.After(now)
}
