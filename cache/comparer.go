package cache

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spaolacci/murmur3"

	"github.com/IvanBrykalov/memocache/internal/util"
)

// Comparer supplies key equality and hashing to the hash index.
// Equal keys must hash equally.
type Comparer[K comparable] interface {
	Equal(a, b K) bool
	Hash(k K) uint64
}

type defaultComparer[K comparable] struct{}

func (defaultComparer[K]) Equal(a, b K) bool { return a == b }
func (defaultComparer[K]) Hash(k K) uint64   { return util.Hash64(k) }

// DefaultComparer uses Go equality (==) and a 64-bit hash of the key.
func DefaultComparer[K comparable]() Comparer[K] { return defaultComparer[K]{} }

type foldStringComparer struct{}

// FoldStringComparer compares string keys case-insensitively
// (strings.EqualFold semantics) and hashes them with murmur3.
func FoldStringComparer() Comparer[string] { return foldStringComparer{} }

func (foldStringComparer) Equal(a, b string) bool { return strings.EqualFold(a, b) }

// Hash feeds the fold-canonical form of every rune to murmur3, so any two
// strings that EqualFold agrees on produce the same hash.
func (foldStringComparer) Hash(s string) uint64 {
	h := murmur3.New64()
	var buf [64]byte
	n := 0
	for _, r := range s {
		if n+utf8.UTFMax > len(buf) {
			_, _ = h.Write(buf[:n])
			n = 0
		}
		n += utf8.EncodeRune(buf[n:], foldRune(r))
	}
	_, _ = h.Write(buf[:n])
	return h.Sum64()
}

// foldRune maps r to the smallest rune of its simple case-folding orbit.
func foldRune(r rune) rune {
	if r < utf8.RuneSelf {
		if 'a' <= r && r <= 'z' {
			r -= 'a' - 'A'
		}
		return r
	}
	m := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < m {
			m = f
		}
	}
	return m
}

// isNilKey reports whether k is a nil pointer, channel or interface.
// Such keys are rejected before any structural change.
func isNilKey[K comparable](k K) bool {
	switch any(k).(type) {
	case string, int, int64, int32, uint64, uint32, uint:
		return false
	case nil:
		return true
	}
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
