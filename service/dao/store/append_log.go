package store

import "sync"

// AppendLog is an append-only sequence used for the audit and decision logs.
// Entries are never mutated or removed; insertion order is the chronological
// order, and Append returns the monotonic sequence number assigned to the
// entry.
type AppendLog[T any] struct {
	mu      sync.RWMutex
	entries []T
}

func NewAppendLog[T any]() *AppendLog[T] {
	return &AppendLog[T]{}
}

// Append adds an entry and returns its zero-based sequence number.
func (l *AppendLog[T]) Append(entry T) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return len(l.entries) - 1
}

// Len returns the number of entries appended so far.
func (l *AppendLog[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Tail returns a copy of the most recent limit entries, oldest first. A
// non-positive limit returns all entries.
func (l *AppendLog[T]) Tail(limit int) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := 0
	if limit > 0 && len(l.entries) > limit {
		start = len(l.entries) - limit
	}
	out := make([]T, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}
