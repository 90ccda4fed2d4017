// Package deque provides a double-ended queue on a circular buffer.
package deque

import "errors"

// ErrEmpty is returned when reading or deleting from an empty deque.
var ErrEmpty = errors.New("deque is empty")

// ArrayDeque is a double-ended queue. The buffer doubles when full.
type ArrayDeque[T any] struct {
	buf   []T
	front int // index of the first item
	count int
}

// New creates a deque with the given initial capacity (minimum 1).
func New[T any](initialCap int) *ArrayDeque[T] {
	if initialCap <= 0 {
		initialCap = 1
	}
	return &ArrayDeque[T]{buf: make([]T, initialCap)}
}

// InsertFront adds item before the current front.
func (d *ArrayDeque[T]) InsertFront(item T) {
	d.growIfFull()
	d.front = (d.front - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.front] = item
	d.count++
}

// InsertRear adds item after the current rear.
func (d *ArrayDeque[T]) InsertRear(item T) {
	d.growIfFull()
	d.buf[(d.front+d.count)%len(d.buf)] = item
	d.count++
}

// DeleteFront removes and returns the front item.
func (d *ArrayDeque[T]) DeleteFront() (T, error) {
	var zero T
	if d.count == 0 {
		return zero, ErrEmpty
	}
	item := d.buf[d.front]
	d.buf[d.front] = zero
	d.front = (d.front + 1) % len(d.buf)
	d.count--
	return item, nil
}

// DeleteRear removes and returns the rear item.
func (d *ArrayDeque[T]) DeleteRear() (T, error) {
	var zero T
	if d.count == 0 {
		return zero, ErrEmpty
	}
	idx := (d.front + d.count - 1) % len(d.buf)
	item := d.buf[idx]
	d.buf[idx] = zero
	d.count--
	return item, nil
}

// GetFront returns the front item.
func (d *ArrayDeque[T]) GetFront() (T, error) {
	if d.count == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return d.buf[d.front], nil
}

// GetRear returns the rear item.
func (d *ArrayDeque[T]) GetRear() (T, error) {
	if d.count == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return d.buf[(d.front+d.count-1)%len(d.buf)], nil
}

// IsEmpty reports whether the deque holds no items.
func (d *ArrayDeque[T]) IsEmpty() bool { return d.count == 0 }

// Len returns the number of items.
func (d *ArrayDeque[T]) Len() int { return d.count }

// ToArray returns the items from front to rear.
func (d *ArrayDeque[T]) ToArray() []T {
	out := make([]T, d.count)
	for i := range out {
		out[i] = d.buf[(d.front+i)%len(d.buf)]
	}
	return out
}

func (d *ArrayDeque[T]) growIfFull() {
	if d.count < len(d.buf) {
		return
	}
	grown := make([]T, len(d.buf)*2)
	for i := 0; i < d.count; i++ {
		grown[i] = d.buf[(d.front+i)%len(d.buf)]
	}
	d.buf = grown
	d.front = 0
}
