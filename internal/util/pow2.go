package util

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && (x&(x-1)) == 0
}

// NextPow2 returns the smallest power of two >= x.
// x == 0 yields 1; a result that would overflow 64 bits is clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// BucketsFor returns a power-of-two bucket count able to hold n entries
// without exceeding a 3/4 load factor. The result is never below floor;
// a floor that is not a power of two is rounded up to one.
func BucketsFor(n, floor int) int {
	if n < 0 {
		n = 0
	}
	if floor > 0 && !IsPowerOfTwo(uint64(floor)) {
		floor = int(NextPow2(uint64(floor)))
	}
	b := int(NextPow2((4*uint64(n) + 2) / 3))
	if b < floor {
		b = floor
	}
	return b
}
