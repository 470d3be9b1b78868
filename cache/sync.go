package cache

import (
	"slices"
	"sync"

	"github.com/IvanBrykalov/memocache/policy"
)

// Synchronized serializes access to a Cache with a single mutex.
//
// GetOrAdd holds the lock across the loader call, so for any missing key
// the loader runs at most once even under concurrent callers. The price is
// that no two loads run in parallel, for the same key or for different ones.
// Hits take the lock too, since an LRU hit reorders the shared order list.
//
// The loader must not call back into the same Synchronized: the mutex is
// not reentrant.
type Synchronized[K comparable, V any] struct {
	mu sync.Mutex
	c  *Cache[K, V]
}

// NewSynchronized wraps c. c must not be used directly afterwards.
func NewSynchronized[K comparable, V any](c *Cache[K, V]) *Synchronized[K, V] {
	return &Synchronized[K, V]{c: c}
}

// Synchronized is shorthand for NewSynchronized(c).
func (c *Cache[K, V]) Synchronized() *Synchronized[K, V] { return NewSynchronized(c) }

// GetOrAdd see Cache.GetOrAdd.
func (s *Synchronized[K, V]) GetOrAdd(k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.GetOrAdd(k)
}

// GetValueUncached see Cache.GetValueUncached.
func (s *Synchronized[K, V]) GetValueUncached(k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.GetValueUncached(k)
}

// TryGetValue see Cache.TryGetValue. Under LRU a hit reorders, so it locks like a write.
func (s *Synchronized[K, V]) TryGetValue(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.TryGetValue(k)
}

// ContainsKey see Cache.ContainsKey.
func (s *Synchronized[K, V]) ContainsKey(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.ContainsKey(k)
}

// Set see Cache.Set.
func (s *Synchronized[K, V]) Set(k K, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Set(k, v)
}

// Remove see Cache.Remove. Disposal runs under the lock.
func (s *Synchronized[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Remove(k)
}

// Touch see Cache.Touch.
func (s *Synchronized[K, V]) Touch(k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Touch(k)
}

// Clear see Cache.Clear. Disposal runs under the lock.
func (s *Synchronized[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Clear()
}

// Len returns the number of cached entries.
func (s *Synchronized[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Len()
}

// Capacity returns the entry count limit.
func (s *Synchronized[K, V]) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Capacity()
}

// SetCapacity see Cache.SetCapacity.
func (s *Synchronized[K, V]) SetCapacity(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.SetCapacity(n)
}

// SetBehavior see Cache.SetBehavior.
func (s *Synchronized[K, V]) SetBehavior(b policy.Behavior) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.SetBehavior(b)
}

// Keys returns a copy of the keys in eviction order.
// Ranging over a live sequence would need the lock for the whole loop.
func (s *Synchronized[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(s.c.Keys())
}

// Values returns a copy of the values in eviction order.
func (s *Synchronized[K, V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(s.c.Values())
}

// Snapshot returns a consistent copy of configuration and content.
func (s *Synchronized[K, V]) Snapshot() Snapshot[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Snapshot()
}

// DeepClone returns an unsynchronized, independent copy of the cache.
func (s *Synchronized[K, V]) DeepClone() *Cache[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.DeepClone()
}
