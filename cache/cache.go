package cache

import (
	"time"

	"github.com/IvanBrykalov/memocache/policy"
)

// Cache is a bounded memoizing key/value store.
//
// Entries live in a slot arena, are found through a chained hash index and
// are ordered by an intrusive list whose front is the next eviction victim.
// Every operation is O(1) expected, plus the loader call on a miss.
//
// Cache is not safe for concurrent use. Wrap it with Synchronized when it
// is shared between goroutines.
type Cache[K comparable, V any] struct {
	load Loader[K, V]
	opt  Options[K, V]

	slots arena[K, V]
	index hashIndex[K, V]
	order orderList[K, V]
	count int

	// version changes on every structural mutation; iterators compare it.
	version uint64
}

// New constructs a cache computing missing values with load.
// It returns ErrNoLoader, ErrInvalidCapacity or ErrInvalidBehavior when the
// configuration is unusable.
func New[K comparable, V any](load Loader[K, V], opt Options[K, V]) (*Cache[K, V], error) {
	if load == nil {
		return nil, ErrNoLoader
	}
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	c := &Cache[K, V]{load: load, opt: opt}
	c.initStorage(prealloc(opt.Capacity, opt.EnsureCapacity))
	return c, nil
}

func (c *Cache[K, V]) initStorage(hint int) {
	c.slots.init(hint)
	c.index.init(&c.slots, c.opt.Comparer, hint)
	c.order.init(&c.slots)
	c.count = 0
}

// GetOrAdd returns the cached value for k, computing and storing it on a
// miss. Under LRU a hit makes k the most recent entry. A loader error is
// returned unchanged and nothing is stored.
func (c *Cache[K, V]) GetOrAdd(k K) (V, error) {
	var zero V
	if isNilKey(k) {
		return zero, ErrNilKey
	}
	hash := c.opt.Comparer.Hash(k)
	if i := c.index.find(k, hash); i != nilSlot {
		return c.hit(i), nil
	}
	c.opt.Metrics.Miss()

	v, err := c.callLoader(k)
	if err != nil {
		return zero, err
	}
	c.put(k, hash, v)
	return v, nil
}

// GetValueUncached always runs the loader. A present key has its value
// replaced in place without moving in the order; an absent key is added as
// the most recent entry.
func (c *Cache[K, V]) GetValueUncached(k K) (V, error) {
	var zero V
	if isNilKey(k) {
		return zero, ErrNilKey
	}
	v, err := c.callLoader(k)
	if err != nil {
		return zero, err
	}
	c.put(k, c.opt.Comparer.Hash(k), v)
	return v, nil
}

// TryGetValue returns the cached value for k without ever calling the
// loader. Under LRU a hit makes k the most recent entry. A nil key has no
// error path here: it is reported as absent, since it can never be stored.
func (c *Cache[K, V]) TryGetValue(k K) (V, bool) {
	if !isNilKey(k) {
		if i := c.index.find(k, c.opt.Comparer.Hash(k)); i != nilSlot {
			return c.hit(i), true
		}
	}
	c.opt.Metrics.Miss()
	var zero V
	return zero, false
}

// ContainsKey reports whether k is cached. It never computes and never
// reorders. A nil key is reported as absent rather than rejected.
func (c *Cache[K, V]) ContainsKey(k K) bool {
	if isNilKey(k) {
		return false
	}
	return c.index.find(k, c.opt.Comparer.Hash(k)) != nilSlot
}

// Set stores v under k without calling the loader. Like GetValueUncached,
// an existing key keeps its position.
func (c *Cache[K, V]) Set(k K, v V) error {
	if isNilKey(k) {
		return ErrNilKey
	}
	c.put(k, c.opt.Comparer.Hash(k), v)
	return nil
}

// Remove deletes k and disposes its value when configured.
// It reports whether k was present; a nil key is never present.
func (c *Cache[K, V]) Remove(k K) bool {
	if isNilKey(k) {
		return false
	}
	i := c.index.find(k, c.opt.Comparer.Hash(k))
	if i == nilSlot {
		return false
	}
	key, v := c.drop(i)
	c.opt.Metrics.Size(c.count)
	c.dispose(key, v)
	return true
}

// Touch makes k the most recent entry regardless of Behavior.
// It returns ErrNotFound when k is absent.
func (c *Cache[K, V]) Touch(k K) error {
	if isNilKey(k) {
		return ErrNilKey
	}
	i := c.index.find(k, c.opt.Comparer.Hash(k))
	if i == nilSlot {
		return ErrNotFound
	}
	if c.order.moveToBack(i) {
		c.version++
	}
	return nil
}

// Clear drops every entry and releases the backing storage.
// Values are disposed after the cache is already empty.
func (c *Cache[K, V]) Clear() {
	var dropped []Entry[K, V]
	if c.opt.DisposeDroppedValues {
		dropped = c.entries()
	}
	c.initStorage(prealloc(c.opt.Capacity, c.opt.EnsureCapacity))
	c.version++
	c.opt.Metrics.Size(0)
	for _, e := range dropped {
		c.dispose(e.Key, e.Value)
	}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int { return c.count }

// Capacity returns the entry count limit.
func (c *Cache[K, V]) Capacity() int { return c.opt.Capacity }

// SetCapacity changes the entry count limit. With EnsureCapacity the cache
// evicts down to n immediately, victims taken from the front of the order;
// otherwise the limit applies on the next insertion.
func (c *Cache[K, V]) SetCapacity(n int) error {
	if n <= 0 {
		return ErrInvalidCapacity
	}
	c.opt.Capacity = n
	if c.opt.EnsureCapacity {
		c.shrinkTo(n)
		c.slots.reserve(prealloc(n, true))
	}
	return nil
}

// Behavior returns the eviction behavior.
func (c *Cache[K, V]) Behavior() policy.Behavior { return c.opt.Behavior }

// SetBehavior switches the eviction behavior. The current order is kept.
func (c *Cache[K, V]) SetBehavior(b policy.Behavior) error {
	if !b.Valid() {
		return ErrInvalidBehavior
	}
	c.opt.Behavior = b
	return nil
}

// EnsureCapacity reports whether capacity is enforced eagerly.
func (c *Cache[K, V]) EnsureCapacity() bool { return c.opt.EnsureCapacity }

// SetEnsureCapacity toggles eager capacity enforcement. Turning it on
// evicts down to Capacity and pre-sizes storage.
func (c *Cache[K, V]) SetEnsureCapacity(on bool) {
	c.opt.EnsureCapacity = on
	if on {
		c.shrinkTo(c.opt.Capacity)
		c.slots.reserve(prealloc(c.opt.Capacity, true))
	}
}

// DisposeDroppedValues reports whether dropped values are disposed.
func (c *Cache[K, V]) DisposeDroppedValues() bool { return c.opt.DisposeDroppedValues }

// SetDisposeDroppedValues toggles disposal of dropped values.
func (c *Cache[K, V]) SetDisposeDroppedValues(on bool) { c.opt.DisposeDroppedValues = on }

// Oldest returns the entry at the front of the order: the next victim.
func (c *Cache[K, V]) Oldest() (K, V, bool) { return c.peek(c.order.front()) }

// Newest returns the entry at the back of the order.
func (c *Cache[K, V]) Newest() (K, V, bool) { return c.peek(c.order.back()) }

// ---- helpers ----

func (c *Cache[K, V]) peek(i int) (K, V, bool) {
	if i == nilSlot {
		var (
			k K
			v V
		)
		return k, v, false
	}
	s := c.slots.at(i)
	return s.key, s.val, true
}

// hit applies the read-hit rule of the active behavior and returns the value.
func (c *Cache[K, V]) hit(i int) V {
	if c.opt.Behavior.ReordersOnHit() && c.order.moveToBack(i) {
		c.version++
	}
	c.opt.Metrics.Hit()
	return c.slots.at(i).val
}

func (c *Cache[K, V]) callLoader(k K) (V, error) {
	start := time.Now()
	v, err := c.load(k)
	c.opt.Metrics.Load(time.Since(start), err)
	return v, err
}

// put stores v under k: in place when k is present, otherwise as the newest
// entry after making room. The lookup is repeated after every eviction
// because a loader, an OnEvict hook or a Dispose call may have stored k.
func (c *Cache[K, V]) put(k K, hash uint64, v V) {
	for {
		if i := c.index.find(k, hash); i != nilSlot {
			c.slots.at(i).val = v
			return
		}
		if !c.full() {
			break
		}
		c.evictFront(EvictOverflow)
	}

	i := c.slots.alloc()
	s := c.slots.at(i)
	s.key, s.val, s.hash = k, v, hash
	c.index.insert(i)
	c.order.pushBack(i)
	c.count++
	c.version++
	c.opt.Metrics.Size(c.count)
}

// drop unlinks slot i from the index and the order list and frees it.
// It returns the stored key and value; disposal is left to the caller.
func (c *Cache[K, V]) drop(i int) (K, V) {
	k := c.slots.at(i).key
	c.index.remove(i)
	c.order.unlink(i)
	v := c.slots.release(i)
	c.count--
	c.version++
	return k, v
}
