package cache

import "errors"

var (
	// ErrNoLoader is returned by New when the loader is nil.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrNilKey is returned when a nil pointer, channel or interface key is
	// passed to GetOrAdd, GetValueUncached, Set or Touch. TryGetValue,
	// ContainsKey and Remove report such a key as absent instead.
	ErrNilKey = errors.New("cache: nil key")

	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("cache: capacity must be > 0")

	// ErrInvalidBehavior is returned for an undefined eviction behavior.
	ErrInvalidBehavior = errors.New("cache: invalid eviction behavior")

	// ErrNotFound is returned by Touch when the key is absent.
	ErrNotFound = errors.New("cache: key not found")

	// ErrModifiedDuringIteration is the panic value raised when the cache
	// is mutated while Keys, Values or All is being ranged over.
	ErrModifiedDuringIteration = errors.New("cache: modified during iteration")
)
