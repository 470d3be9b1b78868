package cache

import "iter"

// All returns the entries from the front of the order (next victim) to the
// back (most recent). The sequence is lazy and restartable: each range walks
// the live order list, so it reflects every change made before it starts.
//
// Mutating the cache inside the loop body panics with
// ErrModifiedDuringIteration. Reordering reads (TryGetValue, GetOrAdd hits
// under LRU) count as mutations.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		version := c.version
		for i := c.order.front(); i != nilSlot; {
			s := c.slots.at(i)
			k, v, next := s.key, s.val, s.after
			if !yield(k, v) {
				return
			}
			if c.version != version {
				panic(ErrModifiedDuringIteration)
			}
			i = next
		}
	}
}

// Keys returns the keys in eviction order. See All.
func (c *Cache[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range c.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns the values in eviction order. See All.
func (c *Cache[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range c.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// entries collects the current content in order.
func (c *Cache[K, V]) entries() []Entry[K, V] {
	out := make([]Entry[K, V], 0, c.count)
	for i := c.order.front(); i != nilSlot; {
		s := c.slots.at(i)
		out = append(out, Entry[K, V]{Key: s.key, Value: s.val})
		i = s.after
	}
	return out
}
