// Package policy defines the eviction behaviors supported by the cache.
//
// The set is closed: a cache either drops the oldest inserted entry (FIFO)
// or the least recently used one (LRU). Both share the same victim rule,
// the front of the cache's order list; they differ only in whether a read
// hit moves the entry to the back.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBehavior is returned when a behavior name cannot be parsed.
var ErrUnknownBehavior = errors.New("policy: unknown eviction behavior")

// Behavior selects the eviction discipline.
// The zero value is deliberately invalid; callers must pick one.
type Behavior uint8

const (
	// DropOldest evicts by insertion time. Reads never reorder entries.
	DropOldest Behavior = iota + 1
	// DropLeastRecentlyUsed evicts by recency. Every read hit moves the
	// entry to the most-recent end.
	DropLeastRecentlyUsed
)

// Valid reports whether b is one of the defined behaviors.
func (b Behavior) Valid() bool {
	return b == DropOldest || b == DropLeastRecentlyUsed
}

// ReordersOnHit reports whether a successful read should touch the entry.
func (b Behavior) ReordersOnHit() bool { return b == DropLeastRecentlyUsed }

func (b Behavior) String() string {
	switch b {
	case DropOldest:
		return "drop-oldest"
	case DropLeastRecentlyUsed:
		return "drop-lru"
	default:
		return fmt.Sprintf("Behavior(%d)", uint8(b))
	}
}

// Parse converts a human-readable name into a Behavior.
// Matching is case-insensitive; "fifo" and "lru" are accepted as shorthands.
func Parse(s string) (Behavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo", "oldest", "drop-oldest":
		return DropOldest, nil
	case "lru", "drop-lru", "drop-least-recently-used":
		return DropLeastRecentlyUsed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBehavior, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Behavior) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBehavior, uint8(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so a Behavior can be
// bound directly to a flag (flag.TextVar) or decoded from JSON.
func (b *Behavior) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
