package cache

import (
	"io"
	"log/slog"
)

// full reports whether an insertion must evict first.
// A capacity lowered without EnsureCapacity is caught up through it.
func (c *Cache[K, V]) full() bool {
	return c.count > 0 && c.count >= c.opt.Capacity
}

// shrinkTo evicts from the front until at most n entries remain.
// It uses the same victim rule as overflow eviction.
func (c *Cache[K, V]) shrinkTo(n int) {
	if c.count <= n {
		return
	}
	for c.count > n {
		c.evictFront(EvictShrink)
	}
	c.opt.Metrics.Size(c.count)
}

// evictFront drops the current victim. The slot is always freed, even when
// disposing its value fails.
func (c *Cache[K, V]) evictFront(reason EvictReason) {
	k, v := c.drop(c.order.front())
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(k, v, reason)
	}
	c.dispose(k, v)
}

// dispose releases a dropped value when DisposeDroppedValues is set.
// Failures go to OnDisposeError, or to the logger.
func (c *Cache[K, V]) dispose(k K, v V) {
	if !c.opt.DisposeDroppedValues {
		return
	}
	var err error
	switch d := any(v).(type) {
	case Disposer:
		err = d.Dispose()
	case io.Closer:
		err = d.Close()
	default:
		return
	}
	if err == nil {
		return
	}
	if cb := c.opt.OnDisposeError; cb != nil {
		cb(k, err)
		return
	}
	c.opt.Logger.Warn("cache: dispose dropped value",
		slog.Any("key", k),
		slog.Any("err", err),
	)
}
