// Package vector provides a growable, comparator-aware array list.
package vector

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrIndexOutOfRange indicates an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("index out of vector range")

	// ErrEmpty indicates an operation that requires at least one item.
	ErrEmpty = errors.New("vector is empty")

	// ErrNoComparator indicates a search or sort on a vector built without a comparator.
	ErrNoComparator = errors.New("vector has no comparator")
)

// Comparator returns a negative number when a < b, zero when equal and a
// positive number when a > b.
type Comparator[T any] func(a, b T) int

// Vector is an ordered list backed by a slice whose capacity doubles when full.
// A Vector is not safe for concurrent mutation.
type Vector[T any] struct {
	items []T
	cmp   Comparator[T]
}

// New creates a vector with the given initial capacity and comparator.
// A non-positive capacity is raised to 1. cmp may be nil if the vector is never
// searched or sorted.
func New[T any](initialCap int, cmp Comparator[T]) *Vector[T] {
	if initialCap <= 0 {
		initialCap = 1
	}
	return &Vector[T]{
		items: make([]T, 0, initialCap),
		cmp:   cmp,
	}
}

// From creates a vector holding a copy of items.
func From[T any](items []T, cmp Comparator[T]) *Vector[T] {
	v := New(len(items), cmp)
	v.AddAll(items...)
	return v
}

// Add appends item to the end of the vector.
func (v *Vector[T]) Add(item T) {
	if len(v.items) == cap(v.items) {
		grown := make([]T, len(v.items), cap(v.items)*2)
		copy(grown, v.items)
		v.items = grown
	}
	v.items = append(v.items, item)
}

// AddAll appends items in order.
func (v *Vector[T]) AddAll(items ...T) {
	for _, item := range items {
		v.Add(item)
	}
}

// Remove removes and returns the last item.
func (v *Vector[T]) Remove() (T, error) {
	var zero T
	if v.IsEmpty() {
		return zero, ErrEmpty
	}
	last := len(v.items) - 1
	item := v.items[last]
	v.items[last] = zero
	v.items = v.items[:last]
	return item, nil
}

// RemoveAtIndex removes and returns the item at index, shifting later items left.
func (v *Vector[T]) RemoveAtIndex(index int) (T, error) {
	var zero T
	if err := v.checkIndex(index); err != nil {
		return zero, err
	}
	item := v.items[index]
	copy(v.items[index:], v.items[index+1:])
	v.items[len(v.items)-1] = zero
	v.items = v.items[:len(v.items)-1]
	return item, nil
}

// Contains reports whether an item equal to item (per the comparator) is present.
func (v *Vector[T]) Contains(item T) (bool, error) {
	idx, err := v.GetIndex(item)
	if err != nil {
		return false, err
	}
	return idx != -1, nil
}

// GetIndex returns the index of the first item equal to item, or -1.
func (v *Vector[T]) GetIndex(item T) (int, error) {
	if v.cmp == nil {
		return -1, ErrNoComparator
	}
	for i, candidate := range v.items {
		if v.cmp(candidate, item) == 0 {
			return i, nil
		}
	}
	return -1, nil
}

// GetLastIndex returns the index of the last item equal to item, or -1.
func (v *Vector[T]) GetLastIndex(item T) (int, error) {
	if v.cmp == nil {
		return -1, ErrNoComparator
	}
	for i := len(v.items) - 1; i >= 0; i-- {
		if v.cmp(v.items[i], item) == 0 {
			return i, nil
		}
	}
	return -1, nil
}

// Get returns the item at index.
func (v *Vector[T]) Get(index int) (T, error) {
	if err := v.checkIndex(index); err != nil {
		var zero T
		return zero, err
	}
	return v.items[index], nil
}

// Set replaces the item at index.
func (v *Vector[T]) Set(index int, item T) error {
	if err := v.checkIndex(index); err != nil {
		return err
	}
	v.items[index] = item
	return nil
}

// ToArray returns a copy of all items.
func (v *Vector[T]) ToArray() []T {
	return slices.Clone(v.items)
}

// ToSubArray returns a copy of the items in [start, end).
func (v *Vector[T]) ToSubArray(start, end int) ([]T, error) {
	if start < 0 || end > len(v.items) || start > end {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrIndexOutOfRange, start, end, len(v.items))
	}
	out := make([]T, end-start)
	copy(out, v.items[start:end])
	return out, nil
}

// Sort orders the items using the vector comparator. The sort is stable.
func (v *Vector[T]) Sort() error {
	if v.cmp == nil {
		return ErrNoComparator
	}
	slices.SortStableFunc(v.items, v.cmp)
	return nil
}

// Len returns the number of items.
func (v *Vector[T]) Len() int {
	return len(v.items)
}

// Cap returns the current backing capacity.
func (v *Vector[T]) Cap() int {
	return cap(v.items)
}

// IsEmpty reports whether the vector holds no items.
func (v *Vector[T]) IsEmpty() bool {
	return len(v.items) == 0
}

// Each calls fn for every item in order until fn returns false.
func (v *Vector[T]) Each(fn func(index int, item T) bool) {
	for i, item := range v.items {
		if !fn(i, item) {
			return
		}
	}
}

// Clear removes all items but keeps the allocated capacity.
func (v *Vector[T]) Clear() {
	clear(v.items)
	v.items = v.items[:0]
}

func (v *Vector[T]) checkIndex(index int) error {
	if index < 0 || index >= len(v.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(v.items))
	}
	return nil
}
