package cache

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/memocache/policy"
)

var errBoom = errors.New("boom")

var greek = []string{"alpha", "beta", "gamma", "delta", "epsilon"}

// countingLoader returns "v:<key>" and records every call.
type countingLoader struct {
	calls map[string]int
	fail  map[string]bool
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: map[string]int{}, fail: map[string]bool{}}
}

func (l *countingLoader) load(k string) (string, error) {
	l.calls[k]++
	if l.fail[k] {
		return "", errBoom
	}
	return "v:" + k, nil
}

func newTestCache(t *testing.T, l *countingLoader, opt Options[string, string]) *Cache[string, string] {
	t.Helper()
	c, err := New(l.load, opt)
	require.NoError(t, err)
	return c
}

func fill(t *testing.T, c *Cache[string, string], keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, err := c.GetOrAdd(k)
		require.NoError(t, err)
	}
}

func keysOf[K comparable, V any](c *Cache[K, V]) []K { return slices.Collect(c.Keys()) }

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	load := func(k string) (int, error) { return len(k), nil }

	_, err := New[string, int](nil, Options[string, int]{Behavior: policy.DropOldest})
	require.ErrorIs(t, err, ErrNoLoader)

	_, err = New(load, Options[string, int]{Capacity: -1, Behavior: policy.DropOldest})
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(load, Options[string, int]{Capacity: 4})
	require.ErrorIs(t, err, ErrInvalidBehavior, "behavior has no default")

	_, err = New(load, Options[string, int]{Behavior: policy.Behavior(9)})
	require.ErrorIs(t, err, ErrInvalidBehavior)

	c, err := New(load, Options[string, int]{Behavior: policy.DropLeastRecentlyUsed})
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, c.Capacity())
	assert.Equal(t, policy.DropLeastRecentlyUsed, c.Behavior())
	assert.False(t, c.EnsureCapacity())
	assert.False(t, c.DisposeDroppedValues())
}

// capacity=2, FIFO: a re-read does not save alpha from eviction.
func TestScenario_DropOldestIgnoresReads(t *testing.T) {
	t.Parallel()

	l := newCountingLoader()
	c := newTestCache(t, l, Options[string, string]{Capacity: 2, Behavior: policy.DropOldest})

	fill(t, c, "alpha", "beta", "alpha", "gamma")

	assert.False(t, c.ContainsKey("alpha"))
	assert.Equal(t, []string{"beta", "gamma"}, keysOf(c))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, l.calls["alpha"], "second alpha read must be a hit")
	checkInvariants(t, c)
}

// capacity=2, LRU: the alpha hit makes beta the victim.
func TestScenario_DropLeastRecentlyUsedHonorsReads(t *testing.T) {
	t.Parallel()

	l := newCountingLoader()
	c := newTestCache(t, l, Options[string, string]{Capacity: 2, Behavior: policy.DropLeastRecentlyUsed})

	fill(t, c, "alpha", "beta", "alpha", "gamma")

	assert.False(t, c.ContainsKey("beta"))
	assert.Equal(t, []string{"alpha", "gamma"}, keysOf(c))
	assert.Equal(t, 2, c.Len())
	checkInvariants(t, c)
}

// Removing from the middle, head and tail keeps the structures consistent,
// and freed slots are reused before the arena grows.
func TestScenario_RemoveRecyclesSlots(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Behavior: policy.DropOldest})
	fill(t, c, greek...)

	steps := []struct {
		key  string
		want int
	}{
		{"gamma", 4},   // middle
		{"alpha", 3},   // first
		{"epsilon", 2}, // last
		{"beta", 1},
	}
	for _, s := range steps {
		require.True(t, c.Remove(s.key), s.key)
		assert.Equal(t, s.want, c.Len(), "after removing %s", s.key)
		checkInvariants(t, c)
	}
	assert.False(t, c.Remove("beta"), "second removal reports absence")

	fill(t, c, "zeta", "eta")
	assert.Equal(t, 5, c.slots.len(), "free slots must be reused before growing")
	assert.Equal(t, 2, c.slots.nfree)
	assert.Equal(t, []string{"delta", "zeta", "eta"}, keysOf(c))
	checkInvariants(t, c)
}

func TestScenario_TouchReorders(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Behavior: policy.DropOldest})
	fill(t, c, greek...)

	require.NoError(t, c.Touch("gamma"))
	assert.Equal(t, []string{"alpha", "beta", "delta", "epsilon", "gamma"}, keysOf(c))

	require.NoError(t, c.Touch("alpha"))
	oldest, _, _ := c.Oldest()
	newest, _, _ := c.Newest()
	assert.Equal(t, "beta", oldest)
	assert.Equal(t, "alpha", newest)
	checkInvariants(t, c)
}

func TestScenario_ShrinkWithEnsureCapacity(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := newTestCache(t, newCountingLoader(), Options[string, string]{
		Capacity:       5,
		Behavior:       policy.DropOldest,
		EnsureCapacity: true,
		OnEvict: func(k, _ string, reason EvictReason) {
			assert.Equal(t, EvictShrink, reason)
			evicted = append(evicted, k)
		},
	})
	fill(t, c, greek...)

	require.True(t, c.Remove("beta"))
	assert.Equal(t, 4, c.Len())

	require.NoError(t, c.SetCapacity(3))
	assert.Equal(t, 3, c.Len())
	assert.False(t, c.ContainsKey("alpha"))
	assert.False(t, c.ContainsKey("beta"))
	assert.Equal(t, []string{"gamma", "delta", "epsilon"}, keysOf(c))
	assert.Equal(t, []string{"alpha"}, evicted)
	checkInvariants(t, c)
}

// Without EnsureCapacity a lower limit waits for the next insertion.
func TestSetCapacity_LazyWithoutEnsureCapacity(t *testing.T) {
	t.Parallel()

	var reasons []EvictReason
	c := newTestCache(t, newCountingLoader(), Options[string, string]{
		Capacity: 5,
		Behavior: policy.DropLeastRecentlyUsed,
		OnEvict:  func(_, _ string, r EvictReason) { reasons = append(reasons, r) },
	})
	fill(t, c, greek...)

	require.NoError(t, c.SetCapacity(2))
	assert.Equal(t, 5, c.Len(), "shrink is deferred")

	fill(t, c, "zeta")
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"epsilon", "zeta"}, keysOf(c))
	assert.Equal(t, slices.Repeat([]EvictReason{EvictOverflow}, 4), reasons)
	checkInvariants(t, c)
}

func TestSetCapacity_RejectsNonPositive(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Capacity: 3, Behavior: policy.DropOldest})
	require.ErrorIs(t, c.SetCapacity(0), ErrInvalidCapacity)
	require.ErrorIs(t, c.SetCapacity(-5), ErrInvalidCapacity)
	assert.Equal(t, 3, c.Capacity())
}

func TestSetEnsureCapacity_EvictsDownToCapacity(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Capacity: 4, Behavior: policy.DropOldest})
	fill(t, c, greek[:4]...)
	require.NoError(t, c.SetCapacity(2))
	assert.Equal(t, 4, c.Len())

	c.SetEnsureCapacity(true)
	assert.True(t, c.EnsureCapacity())
	assert.Equal(t, []string{"gamma", "delta"}, keysOf(c))
	checkInvariants(t, c)
}

func TestSetBehavior(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Capacity: 2, Behavior: policy.DropOldest})
	require.ErrorIs(t, c.SetBehavior(0), ErrInvalidBehavior)
	assert.Equal(t, policy.DropOldest, c.Behavior())

	require.NoError(t, c.SetBehavior(policy.DropLeastRecentlyUsed))
	fill(t, c, "alpha", "beta", "alpha", "gamma")
	assert.Equal(t, []string{"alpha", "gamma"}, keysOf(c))
}

func TestGetOrAdd_LoaderFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	l := newCountingLoader()
	l.fail["bad"] = true
	c := newTestCache(t, l, Options[string, string]{Capacity: 2, Behavior: policy.DropOldest})
	fill(t, c, "alpha", "beta")
	before := c.Snapshot()

	_, err := c.GetOrAdd("bad")
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, c.Snapshot(), "a failed load must neither insert nor evict")
	assert.False(t, c.ContainsKey("bad"))

	_, err = c.GetOrAdd("bad")
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, l.calls["bad"], "failures are not cached")
	checkInvariants(t, c)
}

func TestGetValueUncached(t *testing.T) {
	t.Parallel()

	n := 0
	c, err := New(func(k string) (string, error) {
		n++
		if k == "bad" {
			return "", errBoom
		}
		return fmt.Sprintf("%s#%d", k, n), nil
	}, Options[string, string]{Capacity: 3, Behavior: policy.DropLeastRecentlyUsed})
	require.NoError(t, err)

	for _, k := range []string{"alpha", "beta", "gamma"} {
		_, err := c.GetOrAdd(k)
		require.NoError(t, err)
	}

	// Existing key: value replaced, position kept even under LRU.
	v, err := c.GetValueUncached("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha#4", v)
	got, _ := c.TryGetValue("beta") // beta becomes most recent
	assert.Equal(t, "beta#2", got)
	assert.Equal(t, []string{"alpha", "gamma", "beta"}, keysOf(c))
	assert.Equal(t, []string{"alpha#4", "gamma#3", "beta#2"}, slices.Collect(c.Values()))

	// New key: appended as most recent, overflow evicts the front.
	v, err = c.GetValueUncached("delta")
	require.NoError(t, err)
	assert.Equal(t, "delta#5", v)
	assert.Equal(t, []string{"gamma", "beta", "delta"}, keysOf(c))

	// Failure keeps the old value.
	_, err = c.GetValueUncached("bad")
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, c.Len())
	checkInvariants(t, c)
}

func TestTryGetValue(t *testing.T) {
	t.Parallel()

	t.Run("fifo does not reorder", func(t *testing.T) {
		t.Parallel()
		l := newCountingLoader()
		c := newTestCache(t, l, Options[string, string]{Behavior: policy.DropOldest})
		fill(t, c, "alpha", "beta")

		v, ok := c.TryGetValue("alpha")
		require.True(t, ok)
		assert.Equal(t, "v:alpha", v)
		assert.Equal(t, []string{"alpha", "beta"}, keysOf(c))

		_, ok = c.TryGetValue("gamma")
		assert.False(t, ok)
		assert.Zero(t, l.calls["gamma"], "TryGetValue never loads")
	})

	t.Run("lru touches on hit", func(t *testing.T) {
		t.Parallel()
		c := newTestCache(t, newCountingLoader(), Options[string, string]{Behavior: policy.DropLeastRecentlyUsed})
		fill(t, c, "alpha", "beta")

		_, ok := c.TryGetValue("alpha")
		require.True(t, ok)
		assert.Equal(t, []string{"beta", "alpha"}, keysOf(c))
	})
}

func TestContainsKey_NeverReorders(t *testing.T) {
	t.Parallel()

	l := newCountingLoader()
	c := newTestCache(t, l, Options[string, string]{Behavior: policy.DropLeastRecentlyUsed})
	fill(t, c, "alpha", "beta")

	assert.True(t, c.ContainsKey("alpha"))
	assert.False(t, c.ContainsKey("gamma"))
	assert.Equal(t, []string{"alpha", "beta"}, keysOf(c))
	assert.Zero(t, l.calls["gamma"])
}

func TestTouch(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Behavior: policy.DropOldest})
	require.ErrorIs(t, c.Touch("ghost"), ErrNotFound)

	fill(t, c, greek...)
	head, tail := c.order.front(), c.order.back()
	version := c.version

	// Touching the most recent key is idempotent.
	require.NoError(t, c.Touch("epsilon"))
	require.NoError(t, c.Touch("epsilon"))
	assert.Equal(t, head, c.order.front())
	assert.Equal(t, tail, c.order.back())
	assert.Equal(t, version, c.version)
	assert.Equal(t, greek, keysOf(c))
}

func TestSet(t *testing.T) {
	t.Parallel()

	l := newCountingLoader()
	c := newTestCache(t, l, Options[string, string]{Capacity: 2, Behavior: policy.DropOldest})

	require.NoError(t, c.Set("alpha", "manual"))
	v, err := c.GetOrAdd("alpha")
	require.NoError(t, err)
	assert.Equal(t, "manual", v)
	assert.Zero(t, l.calls["alpha"])

	require.NoError(t, c.Set("beta", "b"))
	require.NoError(t, c.Set("alpha", "again")) // update keeps position
	assert.Equal(t, []string{"alpha", "beta"}, keysOf(c))

	require.NoError(t, c.Set("gamma", "g"))
	assert.Equal(t, []string{"beta", "gamma"}, keysOf(c))
}

// A hook that stores the incoming key while room is being made must not
// leave two live slots for it.
func TestGetOrAdd_OnEvictStoresIncomingKey(t *testing.T) {
	t.Parallel()

	var c *Cache[string, string]
	c = newTestCache(t, newCountingLoader(), Options[string, string]{
		Capacity: 2,
		Behavior: policy.DropOldest,
		OnEvict: func(k, _ string, _ EvictReason) {
			if k == "alpha" {
				require.NoError(t, c.Set("beta", "from-hook"))
			}
		},
	})
	fill(t, c, "alpha", "gamma")

	v, err := c.GetOrAdd("beta")
	require.NoError(t, err)
	assert.Equal(t, "v:beta", v)
	assert.Equal(t, []string{"gamma", "beta"}, keysOf(c))
	assert.Equal(t, []string{"v:gamma", "v:beta"}, slices.Collect(c.Values()))
	checkInvariants(t, c)
}

type reentrant struct {
	dispose func()
}

func (r *reentrant) Dispose() error {
	if r.dispose != nil {
		r.dispose()
	}
	return nil
}

func TestSet_DisposeStoresIncomingKey(t *testing.T) {
	t.Parallel()

	c, err := New(func(string) (*reentrant, error) { return &reentrant{}, nil }, Options[string, *reentrant]{
		Capacity:             1,
		Behavior:             policy.DropLeastRecentlyUsed,
		DisposeDroppedValues: true,
	})
	require.NoError(t, err)

	fromDispose := &reentrant{}
	require.NoError(t, c.Set("alpha", &reentrant{dispose: func() {
		require.NoError(t, c.Set("beta", fromDispose))
	}}))

	final := &reentrant{}
	require.NoError(t, c.Set("beta", final))
	assert.Equal(t, []string{"beta"}, keysOf(c))
	got, ok := c.TryGetValue("beta")
	require.True(t, ok)
	assert.Same(t, final, got)
	checkInvariants(t, c)
}

func TestNilKeysAreRejected(t *testing.T) {
	t.Parallel()

	c, err := New(func(k *int) (string, error) { return "x", nil }, Options[*int, string]{Behavior: policy.DropOldest})
	require.NoError(t, err)

	_, err = c.GetOrAdd(nil)
	require.ErrorIs(t, err, ErrNilKey)
	_, err = c.GetValueUncached(nil)
	require.ErrorIs(t, err, ErrNilKey)
	require.ErrorIs(t, c.Set(nil, "x"), ErrNilKey)
	require.ErrorIs(t, c.Touch(nil), ErrNilKey)
	assert.False(t, c.Remove(nil))
	assert.False(t, c.ContainsKey(nil))
	_, ok := c.TryGetValue(nil)
	assert.False(t, ok)
	assert.Zero(t, c.Len())

	one := 1
	_, err = c.GetOrAdd(&one)
	require.NoError(t, err)
	assert.True(t, c.ContainsKey(&one))

	anyKeys, err := New(func(k any) (int, error) { return 0, nil }, Options[any, int]{Behavior: policy.DropOldest})
	require.NoError(t, err)
	_, err = anyKeys.GetOrAdd(nil)
	require.ErrorIs(t, err, ErrNilKey)
	_, err = anyKeys.GetOrAdd("ok")
	require.NoError(t, err)
}

func TestClear(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Capacity: 8, Behavior: policy.DropOldest, EnsureCapacity: true})
	fill(t, c, greek...)
	c.Remove("beta")

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, keysOf(c))
	assert.Zero(t, c.slots.len(), "storage is released, not kept as free slots")
	assert.Zero(t, c.slots.nfree)
	_, _, ok := c.Oldest()
	assert.False(t, ok)
	checkInvariants(t, c)

	fill(t, c, "zeta", "eta")
	assert.Equal(t, []string{"zeta", "eta"}, keysOf(c))
	checkInvariants(t, c)
}

func TestOldestNewest(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newCountingLoader(), Options[string, string]{Behavior: policy.DropLeastRecentlyUsed})
	_, _, ok := c.Newest()
	assert.False(t, ok)

	fill(t, c, "alpha", "beta", "gamma")
	k, v, ok := c.Oldest()
	require.True(t, ok)
	assert.Equal(t, "alpha", k)
	assert.Equal(t, "v:alpha", v)

	k, _, _ = c.Newest()
	assert.Equal(t, "gamma", k)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, keysOf(c), "peeking never reorders")
}

// ---- disposal ----

type resource struct {
	name     string
	disposed int
	err      error
}

func (r *resource) Dispose() error {
	r.disposed++
	return r.err
}

type closer struct{ closed int }

func (c *closer) Close() error {
	c.closed++
	return nil
}

func TestDispose_EvictRemoveClear(t *testing.T) {
	t.Parallel()

	made := map[string]*resource{}
	c, err := New(func(k string) (*resource, error) {
		r := &resource{name: k}
		made[k] = r
		return r, nil
	}, Options[string, *resource]{
		Capacity:             3,
		Behavior:             policy.DropOldest,
		DisposeDroppedValues: true,
	})
	require.NoError(t, err)

	for _, k := range greek { // alpha and beta overflow
		_, err := c.GetOrAdd(k)
		require.NoError(t, err)
	}
	require.True(t, c.Remove("gamma"))
	c.Clear()

	for _, k := range greek {
		assert.Equal(t, 1, made[k].disposed, "%s must be disposed exactly once", k)
	}
}

func TestDispose_Disabled(t *testing.T) {
	t.Parallel()

	r := &resource{}
	c, err := New(func(string) (*resource, error) { return r, nil }, Options[string, *resource]{
		Capacity: 1,
		Behavior: policy.DropOldest,
	})
	require.NoError(t, err)

	_, _ = c.GetOrAdd("alpha")
	_, _ = c.GetOrAdd("beta")
	c.Remove("beta")
	assert.Zero(t, r.disposed)

	c.SetDisposeDroppedValues(true)
	_, _ = c.GetOrAdd("gamma")
	c.Clear()
	assert.Equal(t, 1, r.disposed)
}

func TestDispose_IOCloser(t *testing.T) {
	t.Parallel()

	cl := &closer{}
	c, err := New(func(string) (*closer, error) { return cl, nil }, Options[string, *closer]{
		Behavior:             policy.DropOldest,
		DisposeDroppedValues: true,
	})
	require.NoError(t, err)

	_, _ = c.GetOrAdd("alpha")
	c.Remove("alpha")
	assert.Equal(t, 1, cl.closed)
}

// A failing Dispose never keeps the entry alive; the error is surfaced.
func TestDispose_FailureStillFreesSlot(t *testing.T) {
	t.Parallel()

	type failure struct {
		key string
		err error
	}
	var failures []failure
	c, err := New(func(k string) (*resource, error) {
		return &resource{name: k, err: fmt.Errorf("close %s: %w", k, errBoom)}, nil
	}, Options[string, *resource]{
		Capacity:             1,
		Behavior:             policy.DropOldest,
		DisposeDroppedValues: true,
		OnDisposeError:       func(k string, err error) { failures = append(failures, failure{k, err}) },
	})
	require.NoError(t, err)

	_, _ = c.GetOrAdd("alpha")
	_, err = c.GetOrAdd("beta") // evicts alpha
	require.NoError(t, err, "disposal failure must not fail the insertion")
	assert.False(t, c.ContainsKey("alpha"))
	assert.Equal(t, 1, c.Len())

	require.True(t, c.Remove("beta"))
	assert.Zero(t, c.Len())
	checkInvariants(t, c)

	require.Len(t, failures, 2)
	assert.Equal(t, "alpha", failures[0].key)
	assert.ErrorIs(t, failures[0].err, errBoom)
	assert.Equal(t, "beta", failures[1].key)
}

func TestDispose_FailureLoggedByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := New(func(k string) (*resource, error) {
		return &resource{name: k, err: errBoom}, nil
	}, Options[string, *resource]{
		Behavior:             policy.DropOldest,
		DisposeDroppedValues: true,
		Logger:               slog.New(slog.NewTextHandler(&buf, nil)),
	})
	require.NoError(t, err)

	_, _ = c.GetOrAdd("alpha")
	c.Clear()

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "dispose dropped value")
	assert.Contains(t, out, "key=alpha")
	assert.Contains(t, out, "err=boom")
}

// ---- metrics ----

type recordingMetrics struct {
	hits, misses int
	evicts       map[EvictReason]int
	size         int
	loads        int
	loadErrors   int
}

func (m *recordingMetrics) Hit()                { m.hits++ }
func (m *recordingMetrics) Miss()               { m.misses++ }
func (m *recordingMetrics) Evict(r EvictReason) { m.evicts[r]++ }
func (m *recordingMetrics) Size(entries int)    { m.size = entries }
func (m *recordingMetrics) Load(_ time.Duration, err error) {
	m.loads++
	if err != nil {
		m.loadErrors++
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := &recordingMetrics{evicts: map[EvictReason]int{}}
	l := newCountingLoader()
	l.fail["bad"] = true
	c := newTestCache(t, l, Options[string, string]{
		Capacity:       3,
		Behavior:       policy.DropLeastRecentlyUsed,
		EnsureCapacity: true,
		Metrics:        m,
	})

	fill(t, c, "alpha", "beta", "alpha", "gamma", "delta") // 4 misses, 1 hit, 1 overflow
	_, _ = c.GetOrAdd("bad")
	_, _ = c.TryGetValue("nope")
	require.NoError(t, c.SetCapacity(1))

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 6, m.misses)
	assert.Equal(t, 5, m.loads)
	assert.Equal(t, 1, m.loadErrors)
	assert.Equal(t, 1, m.evicts[EvictOverflow])
	assert.Equal(t, 2, m.evicts[EvictShrink])
	assert.Equal(t, 1, m.size)
}

func TestEvictReason_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "overflow", EvictOverflow.String())
	assert.Equal(t, "shrink", EvictShrink.String())
	assert.Equal(t, "unknown", EvictReason(99).String())
}
