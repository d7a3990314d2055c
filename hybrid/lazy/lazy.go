// Package lazy holds values built on first use and kept until reset.
package lazy

import "sync"

// Value is either built (holds a value) or empty. The zero Value is empty.
type Value[T any] struct {
	mu    sync.Mutex
	val   T
	valid bool
}

// Get returns the held value, building it with build when empty. A failed
// build leaves the Value empty.
func (v *Value[T]) Get(build func() (T, error)) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.valid {
		return v.val, nil
	}
	val, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	v.val, v.valid = val, true
	return val, nil
}

// Peek returns the held value without building it.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val, v.valid
}

// IsBuilt reports whether the Value holds a value.
func (v *Value[T]) IsBuilt() bool {
	_, ok := v.Peek()
	return ok
}

// Reset empties the Value; the next Get builds it again.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.val, v.valid = zero, false
}
