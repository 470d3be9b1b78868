package cache

import "slices"

// arena owns every slot. Indices handed out by alloc stay valid until the
// slot is released; the backing array is never compacted.
type arena[K comparable, V any] struct {
	slots []slot[K, V]
	free  int // head of the free list
	nfree int
}

func (a *arena[K, V]) init(prealloc int) {
	a.slots = make([]slot[K, V], 0, prealloc)
	a.free = nilSlot
	a.nfree = 0
}

// at returns the slot at i. The pointer is invalidated by the next alloc.
func (a *arena[K, V]) at(i int) *slot[K, V] { return &a.slots[i] }

// len returns the number of slots ever allocated (live + free).
func (a *arena[K, V]) len() int { return len(a.slots) }

// alloc returns a recycled slot when the free list is non-empty and only
// appends otherwise.
func (a *arena[K, V]) alloc() int {
	if i := a.free; i != nilSlot {
		s := &a.slots[i]
		a.free = s.next
		a.nfree--
		s.next = nilSlot
		s.live = true
		return i
	}
	a.slots = append(a.slots, slot[K, V]{next: nilSlot, prev: nilSlot, after: nilSlot, live: true})
	return len(a.slots) - 1
}

// release clears slot i, pushes it onto the free list and returns the value
// it held. The caller must already have unlinked it from the index and the
// order list.
func (a *arena[K, V]) release(i int) V {
	s := &a.slots[i]
	v := s.val
	*s = slot[K, V]{next: a.free, prev: nilSlot, after: nilSlot}
	a.free = i
	a.nfree++
	return v
}

// reserve makes room for n slots in total without further reallocation.
func (a *arena[K, V]) reserve(n int) {
	if extra := n - len(a.slots); extra > 0 {
		a.slots = slices.Grow(a.slots, extra)
	}
}
