package cache

import (
	"log/slog"
	"math"
	"time"

	"github.com/IvanBrykalov/memocache/policy"
)

// DefaultCapacity is used when Options.Capacity is zero.
// It is large enough to behave as "no limit" for in-process workloads.
const DefaultCapacity = math.MaxInt32

// maxPrealloc bounds how many slots EnsureCapacity reserves up front.
// Capacities above it still hold; the arena just grows past this point.
const maxPrealloc = 1 << 12

// EvictReason explains why an entry was evicted.
type EvictReason int

const (
	// EvictOverflow: an insertion would have exceeded Capacity.
	EvictOverflow EvictReason = iota
	// EvictShrink: Capacity was lowered while EnsureCapacity was set.
	EvictShrink
)

func (r EvictReason) String() string {
	switch r {
	case EvictOverflow:
		return "overflow"
	case EvictShrink:
		return "shrink"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
	// Load reports one loader call, its duration and its error (nil on success).
	Load(d time.Duration, err error)
}

// Options configures the cache. Defaults are applied in New():
//   - Capacity == 0   => DefaultCapacity
//   - nil Comparer    => DefaultComparer
//   - nil Metrics     => NoopMetrics
//   - nil Logger      => slog.Default()
//
// Behavior has no default: the zero value is rejected with ErrInvalidBehavior.
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Negative values are rejected.
	Capacity int

	// Behavior selects FIFO (policy.DropOldest) or LRU
	// (policy.DropLeastRecentlyUsed) eviction.
	Behavior policy.Behavior

	// EnsureCapacity pre-sizes storage for Capacity entries and makes
	// SetCapacity evict immediately when the new limit is below Len.
	// Without it a lowered capacity is enforced on the next insertion.
	EnsureCapacity bool

	// DisposeDroppedValues disposes every evicted, removed or cleared value
	// that implements Disposer or io.Closer.
	DisposeDroppedValues bool

	// Comparer supplies key equality and hashing.
	Comparer Comparer[K]

	// Observability
	// OnEvict is called for every eviction, before the value is disposed.
	// It runs after the entry is unlinked and may call back into the cache.
	OnEvict func(k K, v V, reason EvictReason)
	// OnDisposeError receives disposal failures. The entry is gone either way.
	// When nil, failures are logged at WARN through Logger.
	OnDisposeError func(k K, err error)
	Metrics        Metrics
	Logger         *slog.Logger
}

// withDefaults validates opt and fills in defaults.
func (opt Options[K, V]) withDefaults() (Options[K, V], error) {
	if opt.Capacity < 0 {
		return opt, ErrInvalidCapacity
	}
	if opt.Capacity == 0 {
		opt.Capacity = DefaultCapacity
	}
	if !opt.Behavior.Valid() {
		return opt, ErrInvalidBehavior
	}
	if opt.Comparer == nil {
		opt.Comparer = DefaultComparer[K]()
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return opt, nil
}

// prealloc returns how many slots to reserve for a given capacity.
func prealloc(capacity int, ensure bool) int {
	if !ensure {
		return 0
	}
	return min(capacity, maxPrealloc)
}
