// Package cache provides a generic, bounded memoizing cache: values missing
// from the cache are computed by a loader, stored, and evicted under a FIFO
// or LRU discipline once the cache is full.
//
// Design
//
//   - Storage: entries live in a slot arena addressed by integer index. Freed
//     slots go onto a free list and are reused before the arena grows, so an
//     insert/evict cycle allocates nothing.
//
//   - Index: a power-of-two table of bucket heads with separate chaining
//     through the slots. Key equality and hashing come from a pluggable
//     Comparer (DefaultComparer, FoldStringComparer).
//
//   - Order: an intrusive doubly linked list over slot indices. Its front is
//     always the eviction victim; its back the most recent entry.
//
//   - Policies: policy.DropOldest never reorders on reads (FIFO);
//     policy.DropLeastRecentlyUsed moves every read hit to the back (LRU).
//     Touch reorders explicitly under either behavior.
//
//   - Capacity: an insertion that would exceed Capacity first evicts from the
//     front. With EnsureCapacity, lowering the capacity evicts immediately;
//     without it the new limit applies on the next insertion.
//
//   - Disposal: with DisposeDroppedValues, values implementing Disposer (or
//     io.Closer) are disposed once when evicted, removed or cleared. A failed
//     disposal never keeps the entry alive; the error goes to OnDisposeError
//     or the logger.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size/Load signals.
//     NoopMetrics is the default; metrics/prom exports them to Prometheus.
//
// Basic usage
//
//	c, err := cache.New(func(k string) (int, error) {
//	    return len(k), nil
//	}, cache.Options[string, int]{
//	    Capacity: 1024,
//	    Behavior: policy.DropLeastRecentlyUsed,
//	})
//	if err != nil {
//	    return err
//	}
//	n, err := c.GetOrAdd("hello") // loader runs once
//	n, err = c.GetOrAdd("hello")  // hit
//
//	for k, v := range c.All() { // front (next victim) to back
//	    fmt.Println(k, v)
//	}
//
// Concurrency
//
// Cache is not synchronized. Synchronized wraps it with one mutex held for
// the whole of every call, including the loader call of GetOrAdd, so a
// missing key is loaded at most once.
package cache
