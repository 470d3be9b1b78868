package cache

// nilSlot marks the absence of a slot index (end of a chain or list).
const nilSlot = -1

// slot is one fixed-position cell of the arena. It stores the entry
// alongside the links threading it through the hash index and the order list.
//
// A live slot is reachable from both structures. A free slot sits on the
// arena's free list, linked through next.
type slot[K comparable, V any] struct {
	key K
	val V

	// Cached key hash; avoids re-hashing on rehash and chain walks.
	hash uint64

	// Bucket chain link while live, free-list link while free.
	next int

	// Order list links: prev is towards the front (oldest / least recently
	// used), after towards the back (newest / most recently used).
	prev  int
	after int

	live bool
}
