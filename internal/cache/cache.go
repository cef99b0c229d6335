/*
Package cache implements the bounded in-memory LRU layer that sits in front
of the persistent store, per spec.md §4.5. It never originates data: every
entry is either a clone of something the store already holds, or is written
through at the same time as the corresponding durable write (the coherence
rule in spec.md §4.5 and §9 "Background LRU coherence").

Each of the four caches, plus the single-slot latest-block, is independent
and individually locked; callers never hold more than one cache's lock at a
time, matching the "reads acquire the LRU lock briefly, release it, do the
store read, then re-acquire to insert" guidance in spec.md §9 — two readers
racing on the same miss may both re-insert the same (immutable) value, which
is harmless.
*/
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/defich/ocean/internal/metrics"
)

// Cache is a generic, metrics-instrumented wrapper over a fixed-size LRU,
// one per logical table named in spec.md §4.5.
type Cache[K comparable, V any] struct {
	name string
	mu   sync.Mutex
	lru  *lru.Cache
}

// New creates a bounded cache of the given capacity. size must be positive;
// callers pick it per-table (spec.md does not prescribe exact sizes, only
// that each cache is "bounded").
func New[K comparable, V any](name string, size int) *Cache[K, V] {
	l, err := lru.New(size)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// programming error at call sites that all pass constants.
		panic(err)
	}
	return &Cache[K, V]{name: name, lru: l}
}

// Get returns the cached value for key, or ok=false on a miss. Mirrors the
// storage API but is permitted to return "not present" liberally, per
// spec.md §4.5.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	v, ok := c.lru.Get(key)
	c.mu.Unlock()

	if !ok {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		var zero V
		return zero, false
	}
	metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	return v.(V), true
}

// Put inserts or overwrites key's cached value, used both on cache-miss
// backfill and on write-through from a durable write.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	c.lru.Add(key, value)
	c.mu.Unlock()
}

// Remove evicts key, used on invalidation (spec.md §4.5: "both the durable
// column and the cache entry are removed").
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	c.lru.Remove(key)
	c.mu.Unlock()
}

// Slot is the single-entry analogue of Cache, used for latest-block (spec.md
// §4.5: "a single-slot latest-block").
type Slot[V any] struct {
	name string
	mu   sync.RWMutex
	set  bool
	val  V
}

// NewSlot creates an empty single-entry slot.
func NewSlot[V any](name string) *Slot[V] {
	return &Slot[V]{name: name}
}

// Get returns the slot's current value, or ok=false if never set.
func (s *Slot[V]) Get() (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		metrics.CacheMissesTotal.WithLabelValues(s.name).Inc()
		var zero V
		return zero, false
	}
	metrics.CacheHitsTotal.WithLabelValues(s.name).Inc()
	return s.val, true
}

// Set overwrites the slot's value.
func (s *Slot[V]) Set(value V) {
	s.mu.Lock()
	s.val = value
	s.set = true
	s.mu.Unlock()
}

// Clear empties the slot, used when invalidation removes the tip block and
// the new latest-block must be looked up fresh from the store.
func (s *Slot[V]) Clear() {
	s.mu.Lock()
	s.set = false
	var zero V
	s.val = zero
	s.mu.Unlock()
}
