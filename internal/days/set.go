package days

import "sort"

// Set is an unordered membership view over valid dates.
type Set map[string]struct{}

// NewSet builds a Set from raw dates, dropping invalid values.
func NewSet(raw []string) Set {
	set := make(Set, len(raw))
	for _, d := range raw {
		if IsValid(d) {
			set[d] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s Set) Has(d string) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the members in ascending order. The result is never nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	// Canonical dates sort chronologically as plain strings.
	sort.Strings(out)
	return out
}

// Normalize filters raw to valid dates, removes duplicates and sorts the
// result ascending. It is idempotent and never returns nil, so an empty set
// still encodes as a JSON array.
func Normalize(raw []string) []string {
	return NewSet(raw).Sorted()
}

// NormalizeValues is Normalize for untyped decoded JSON: anything that is
// not a string is dropped.
func NormalizeValues(raw []any) []string {
	strs := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			strs = append(strs, s)
		}
	}
	return Normalize(strs)
}

// Union returns the normalized union of a and b.
func Union(a, b []string) []string {
	set := NewSet(a)
	for d := range NewSet(b) {
		set[d] = struct{}{}
	}
	return set.Sorted()
}

// Add returns dates with more added.
func Add(dates []string, more ...string) []string {
	return Union(dates, more)
}

// Remove returns dates without any of drop.
func Remove(dates []string, drop ...string) []string {
	set := NewSet(dates)
	for _, d := range drop {
		delete(set, d)
	}
	return set.Sorted()
}
