package cache

import "github.com/IvanBrykalov/memocache/internal/util"

const minBuckets = 8

// hashIndex maps keys to live slots through separate chaining.
// buckets[b] is the first slot of chain b; slots link through slot.next.
// The bucket count is always a power of two.
type hashIndex[K comparable, V any] struct {
	buckets []int
	n       int
	a       *arena[K, V]
	cmp     Comparer[K]
}

func (h *hashIndex[K, V]) init(a *arena[K, V], cmp Comparer[K], hint int) {
	h.a = a
	h.cmp = cmp
	h.reset(hint)
}

// reset drops every chain and sizes the table for hint entries.
func (h *hashIndex[K, V]) reset(hint int) {
	h.buckets = newBuckets(util.BucketsFor(hint, minBuckets))
	h.n = 0
}

func newBuckets(n int) []int {
	b := make([]int, n)
	for i := range b {
		b[i] = nilSlot
	}
	return b
}

func (h *hashIndex[K, V]) bucket(hash uint64) int {
	return int(hash & uint64(len(h.buckets)-1))
}

// find returns the live slot holding k, or nilSlot.
func (h *hashIndex[K, V]) find(k K, hash uint64) int {
	for i := h.buckets[h.bucket(hash)]; i != nilSlot; {
		s := h.a.at(i)
		if s.hash == hash && h.cmp.Equal(s.key, k) {
			return i
		}
		i = s.next
	}
	return nilSlot
}

// insert chains slot i (its hash already set) at the head of its bucket.
func (h *hashIndex[K, V]) insert(i int) {
	s := h.a.at(i)
	b := h.bucket(s.hash)
	s.next = h.buckets[b]
	h.buckets[b] = i
	h.n++
	if h.n > len(h.buckets)/4*3 {
		h.grow()
	}
}

// remove splices slot i out of its bucket chain.
func (h *hashIndex[K, V]) remove(i int) {
	s := h.a.at(i)
	b := h.bucket(s.hash)
	if h.buckets[b] == i {
		h.buckets[b] = s.next
	} else {
		for p := h.buckets[b]; p != nilSlot; {
			ps := h.a.at(p)
			if ps.next == i {
				ps.next = s.next
				break
			}
			p = ps.next
		}
	}
	s.next = nilSlot
	h.n--
}

// grow doubles the bucket count and re-chains every live slot.
// Only bucket links change; the order list is untouched.
func (h *hashIndex[K, V]) grow() {
	h.buckets = newBuckets(len(h.buckets) * 2)
	for i := range h.a.slots {
		s := &h.a.slots[i]
		if !s.live {
			continue
		}
		b := h.bucket(s.hash)
		s.next = h.buckets[b]
		h.buckets[b] = i
	}
}
