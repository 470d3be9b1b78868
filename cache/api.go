package cache

// Loader computes the value for a missing key.
// It is called synchronously on a miss (and on every GetValueUncached).
// A non-nil error is returned to the caller unchanged and leaves the cache
// untouched.
type Loader[K comparable, V any] func(k K) (V, error)

// Disposer is implemented by values that hold resources.
// When Options.DisposeDroppedValues is set, every value the cache drops
// (eviction, Remove, Clear) is disposed exactly once. Values implementing
// io.Closer are closed instead when they do not implement Disposer.
type Disposer interface {
	Dispose() error
}

// Cloner is implemented by values that must not be shared between a cache
// and its DeepClone. Values that do not implement it are copied by
// assignment.
type Cloner[V any] interface {
	Clone() V
}
