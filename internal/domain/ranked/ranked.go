package ranked

import "github.com/kailas-cloud/askdex/internal/domain/match"

// Set is the globally ordered list of matches for one question,
// descending by weighted score. Immutable after creation.
type Set struct {
	items []match.Match
}

// FromOrdered wraps matches that are already in ranking order. The slice is copied.
func FromOrdered(items []match.Match) Set {
	if len(items) == 0 {
		return Set{}
	}
	cp := make([]match.Match, len(items))
	copy(cp, items)
	return Set{items: cp}
}

// Len returns the number of matches.
func (s Set) Len() int { return len(s.items) }

// IsEmpty reports whether nothing matched.
func (s Set) IsEmpty() bool { return len(s.items) == 0 }

// At returns the match at position i.
func (s Set) At(i int) match.Match { return s.items[i] }

// Best returns the top match. ok is false for an empty set.
func (s Set) Best() (m match.Match, ok bool) {
	if len(s.items) == 0 {
		return match.Match{}, false
	}
	return s.items[0], true
}

// Top returns a copy of at most n leading matches.
func (s Set) Top(n int) []match.Match {
	if n > len(s.items) {
		n = len(s.items)
	}
	if n <= 0 {
		return nil
	}
	out := make([]match.Match, n)
	copy(out, s.items[:n])
	return out
}

// All returns a copy of every match in order.
func (s Set) All() []match.Match { return s.Top(len(s.items)) }
