// Package kv implements the HttpDict contract: a string-to-string mapping
// where a missing key never fails, it just reads back empty.
package kv

import "strconv"

// Pair is a single stored entry.
type Pair struct {
	Key, Value string
}

// Dict is an associative container over (string, string) pairs, backed by
// a linear-scan slice rather than a map: request/response header sets are
// small enough that a map's overhead rarely pays for itself, and a slice
// preserves insertion order for wire serialization.
type Dict struct {
	pairs []Pair
}

// New returns an empty Dict.
func New() *Dict {
	return new(Dict)
}

// NewPrealloc returns a Dict with its backing slice pre-sized to n.
func NewPrealloc(n int) *Dict {
	return &Dict{pairs: make([]Pair, 0, n)}
}

// Reset empties d's pairs while keeping the backing array, and returns d
// for chaining into a field assignment.
func (d *Dict) Reset() *Dict {
	d.pairs = d.pairs[:0]
	return d
}

// Set stores value under key, overwriting any prior value for key (last
// write wins, per the request parser's query-string rule).
func (d *Dict) Set(key, value string) {
	for i := range d.pairs {
		if d.pairs[i].Key == key {
			d.pairs[i].Value = value
			return
		}
	}

	d.pairs = append(d.pairs, Pair{Key: key, Value: value})
}

// Add appends a new pair without checking for an existing key, used where
// duplicate keys are meaningful (none currently are, but mirrors the
// teacher's Storage.Add for symmetry).
func (d *Dict) Add(key, value string) {
	d.pairs = append(d.pairs, Pair{Key: key, Value: value})
}

// Get returns the value stored under key and whether it was found.
func (d *Dict) Get(key string) (string, bool) {
	for _, p := range d.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

// Value returns the value for key, or "" if absent — the HttpDict
// "read of a missing key never fails" contract.
func (d *Dict) Value(key string) string {
	v, _ := d.Get(key)
	return v
}

// IntOr parses the value for key as an int, returning or on a missing or
// unparseable entry.
func (d *Dict) IntOr(key string, or int) int {
	v, ok := d.Get(key)
	if !ok {
		return or
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return or
	}

	return n
}

// Len returns the number of stored pairs.
func (d *Dict) Len() int {
	return len(d.pairs)
}

// Pairs returns the underlying pairs in insertion order. The returned
// slice must not be mutated by the caller.
func (d *Dict) Pairs() []Pair {
	return d.pairs
}

// Keys returns all stored keys in insertion order.
func (d *Dict) Keys() []string {
	keys := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		keys[i] = p.Key
	}

	return keys
}
