package evict

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// lruUnbounded is large enough that the embedded simplelru.LRU never
// self-evicts; capacity pressure is decided by the owning MemoryCache,
// not by this tracker. LRU only borrows simplelru's doubly-linked-list
// move-to-front/evict-tail bookkeeping (spec.md §4.8).
const lruUnbounded = 1 << 30

// LRU evicts the least-recently-touched key. OnSet and OnAccess move the
// key to the head of an internal recency list; SelectEvictionKey returns
// the tail.
type LRU[K comparable] struct {
	order *simplelru.LRU[K, struct{}]
}

// NewLRU constructs an LRU strategy.
func NewLRU[K comparable]() *LRU[K] {
	order, err := simplelru.NewLRU[K, struct{}](lruUnbounded, nil)
	if err != nil {
		panic(err)
	}
	return &LRU[K]{order: order}
}

func (l *LRU[K]) OnSet(key K, _ ItemMeta) {
	l.order.Add(key, struct{}{})
}

func (l *LRU[K]) OnAccess(key K, _ ItemMeta) {
	l.order.Get(key)
}

func (l *LRU[K]) OnDelete(key K) {
	l.order.Remove(key)
}

func (l *LRU[K]) SelectEvictionKey(_ map[K]ItemMeta) (K, bool) {
	key, _, ok := l.order.RemoveOldest()
	return key, ok
}

func (l *LRU[K]) Clear() {
	l.order.Purge()
}
