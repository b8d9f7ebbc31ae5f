// Package change suppresses repeated values so only differences reach the display
package change

// Filter holds the last forwarded value of one data domain. It starts at the
// zero value of T and is only replaced when an offered value differs.
//
// A Filter is owned by a single job body and is not safe for concurrent use.
type Filter[T any] struct {
	last  T
	equal func(a, b T) bool
}

// New creates a filter that compares values with equal
func New[T any](equal func(a, b T) bool) *Filter[T] {
	return &Filter[T]{equal: equal}
}

// NewComparable creates a filter for types whose == is a full field-wise comparison
func NewComparable[T comparable]() *Filter[T] {
	return New(func(a, b T) bool { return a == b })
}

// Offer compares v against the last forwarded value. When they differ v
// becomes the new snapshot, and the previous snapshot is returned with
// changed set to true.
func (f *Filter[T]) Offer(v T) (prev T, changed bool) {
	if f.equal(f.last, v) {
		return f.last, false
	}
	prev = f.last
	f.last = v
	return prev, true
}

// Last returns the current snapshot
func (f *Filter[T]) Last() T {
	return f.last
}
