package cache

import "github.com/IvanBrykalov/memocache/policy"

// Entry is one key/value pair of a Snapshot.
type Entry[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// Snapshot is the full state of a cache: its configuration and its entries
// from the front of the order to the back.
type Snapshot[K comparable, V any] struct {
	Capacity             int             `json:"capacity"`
	Behavior             policy.Behavior `json:"behavior"`
	EnsureCapacity       bool            `json:"ensure_capacity"`
	DisposeDroppedValues bool            `json:"dispose_dropped_values"`
	Entries              []Entry[K, V]   `json:"entries"`
}

// Snapshot captures configuration and ordered content.
// Values are copied by assignment.
func (c *Cache[K, V]) Snapshot() Snapshot[K, V] {
	return Snapshot[K, V]{
		Capacity:             c.opt.Capacity,
		Behavior:             c.opt.Behavior,
		EnsureCapacity:       c.opt.EnsureCapacity,
		DisposeDroppedValues: c.opt.DisposeDroppedValues,
		Entries:              c.entries(),
	}
}

// NewFromSnapshot builds a cache equivalent to the one snap was taken from.
// Capacity, Behavior, EnsureCapacity and DisposeDroppedValues come from snap;
// the remaining fields (Comparer, hooks) from opt. Entries are inserted in
// order, so a snapshot larger than its capacity keeps its newest entries.
func NewFromSnapshot[K comparable, V any](load Loader[K, V], snap Snapshot[K, V], opt Options[K, V]) (*Cache[K, V], error) {
	if snap.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	opt.Capacity = snap.Capacity
	opt.Behavior = snap.Behavior
	opt.EnsureCapacity = snap.EnsureCapacity
	opt.DisposeDroppedValues = snap.DisposeDroppedValues

	c, err := New(load, opt)
	if err != nil {
		return nil, err
	}
	for _, e := range snap.Entries {
		if err := c.Set(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DeepClone returns an independent cache with the same configuration, the
// same entries and the same order. The clone shares the loader and the
// Options hooks; values implementing Cloner are cloned.
//
// The clone also shares Options.Metrics and reports its own size to it on
// creation. A Size gauge fed by both caches reflects whichever changed last;
// give the clone its own Metrics when both are observed.
func (c *Cache[K, V]) DeepClone() *Cache[K, V] {
	d := &Cache[K, V]{load: c.load, opt: c.opt}
	d.initStorage(max(c.count, prealloc(c.opt.Capacity, c.opt.EnsureCapacity)))
	for i := c.order.front(); i != nilSlot; {
		s := c.slots.at(i)
		j := d.slots.alloc()
		ds := d.slots.at(j)
		ds.key, ds.val, ds.hash = s.key, cloneValue(s.val), s.hash
		d.index.insert(j)
		d.order.pushBack(j)
		d.count++
		i = s.after
	}
	d.opt.Metrics.Size(d.count)
	return d
}

func cloneValue[V any](v V) V {
	if cl, ok := any(v).(Cloner[V]); ok {
		return cl.Clone()
	}
	return v
}
