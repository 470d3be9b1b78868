package cache

// orderList is an intrusive doubly linked list threaded through the arena's
// prev/after fields. head is the eviction victim (oldest or least recently
// used), tail the most recent entry.
type orderList[K comparable, V any] struct {
	head int
	tail int
	a    *arena[K, V]
}

func (l *orderList[K, V]) init(a *arena[K, V]) {
	l.a = a
	l.reset()
}

func (l *orderList[K, V]) reset() {
	l.head, l.tail = nilSlot, nilSlot
}

func (l *orderList[K, V]) front() int { return l.head }
func (l *orderList[K, V]) back() int  { return l.tail }

// pushBack links slot i as the new tail in O(1).
func (l *orderList[K, V]) pushBack(i int) {
	s := l.a.at(i)
	s.prev = l.tail
	s.after = nilSlot
	if l.tail != nilSlot {
		l.a.at(l.tail).after = i
	} else {
		l.head = i
	}
	l.tail = i
}

// unlink detaches slot i from wherever it sits in O(1).
func (l *orderList[K, V]) unlink(i int) {
	s := l.a.at(i)
	if s.prev != nilSlot {
		l.a.at(s.prev).after = s.after
	} else {
		l.head = s.after
	}
	if s.after != nilSlot {
		l.a.at(s.after).prev = s.prev
	} else {
		l.tail = s.prev
	}
	s.prev, s.after = nilSlot, nilSlot
}

// moveToBack makes slot i the most recent entry. It reports whether the
// order changed; touching the current tail is a no-op.
func (l *orderList[K, V]) moveToBack(i int) bool {
	if i == l.tail {
		return false
	}
	l.unlink(i)
	l.pushBack(i)
	return true
}
