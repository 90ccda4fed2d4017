// Package heap provides a binary min-heap ordered by a comparator.
package heap

import "errors"

// ErrEmpty is returned by Delete and Peek on an empty heap.
var ErrEmpty = errors.New("heap is empty")

// MinHeap keeps the smallest item (per cmp) at the root.
type MinHeap[T any] struct {
	items []T
	cmp   func(a, b T) int
}

// New creates an empty heap. cmp must not be nil.
func New[T any](cmp func(a, b T) int) *MinHeap[T] {
	return &MinHeap[T]{cmp: cmp}
}

// Heapify builds a heap from a copy of items in O(n).
func Heapify[T any](items []T, cmp func(a, b T) int) *MinHeap[T] {
	h := &MinHeap[T]{items: append([]T(nil), items...), cmp: cmp}
	for i := len(h.items)/2 - 1; i >= 0; i-- {
		h.down(i)
	}
	return h
}

// Insert adds item to the heap.
func (h *MinHeap[T]) Insert(item T) {
	h.items = append(h.items, item)
	h.up(len(h.items) - 1)
}

// AddAll inserts every item.
func (h *MinHeap[T]) AddAll(items ...T) {
	for _, item := range items {
		h.Insert(item)
	}
}

// Delete removes and returns the smallest item.
func (h *MinHeap[T]) Delete() (T, error) {
	var zero T
	if len(h.items) == 0 {
		return zero, ErrEmpty
	}
	root := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items[last] = zero
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.down(0)
	}
	return root, nil
}

// Peek returns the smallest item without removing it.
func (h *MinHeap[T]) Peek() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.items[0], nil
}

// Len returns the number of items.
func (h *MinHeap[T]) Len() int { return len(h.items) }

// IsEmpty reports whether the heap holds no items.
func (h *MinHeap[T]) IsEmpty() bool { return len(h.items) == 0 }

// Clear removes all items.
func (h *MinHeap[T]) Clear() {
	clear(h.items)
	h.items = h.items[:0]
}

func (h *MinHeap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.cmp(h.items[i], h.items[parent]) >= 0 {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap[T]) down(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.cmp(h.items[left], h.items[smallest]) < 0 {
			smallest = left
		}
		if right < n && h.cmp(h.items[right], h.items[smallest]) < 0 {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
