// Package list provides singly and doubly linked lists with index access.
package list

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange indicates an index outside the list.
	ErrIndexOutOfRange = errors.New("index out of list range")

	// ErrEmpty indicates an operation on an empty list.
	ErrEmpty = errors.New("list is empty")

	// ErrNoComparator indicates a search on a list built without a comparator.
	ErrNoComparator = errors.New("list has no comparator")
)

// Comparator returns zero when a and b are equal.
type Comparator[T any] func(a, b T) int

type node[T any] struct {
	item T
	next *node[T]
}

// LinkedList is a singly linked list with head and tail pointers.
type LinkedList[T any] struct {
	head   *node[T]
	tail   *node[T]
	length int
	cmp    Comparator[T]
}

// NewLinked creates an empty singly linked list. cmp may be nil.
func NewLinked[T any](cmp Comparator[T]) *LinkedList[T] {
	return &LinkedList[T]{cmp: cmp}
}

// AddFirst inserts item at the head.
func (l *LinkedList[T]) AddFirst(item T) {
	n := &node[T]{item: item, next: l.head}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.length++
}

// AddLast appends item at the tail.
func (l *LinkedList[T]) AddLast(item T) {
	n := &node[T]{item: item}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.length++
}

// AddAtIndex inserts item so that it ends up at index. Index Len() appends.
func (l *LinkedList[T]) AddAtIndex(index int, item T) error {
	if index < 0 || index > l.length {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, l.length)
	}
	if index == 0 {
		l.AddFirst(item)
		return nil
	}
	if index == l.length {
		l.AddLast(item)
		return nil
	}
	prev := l.nodeAt(index - 1)
	prev.next = &node[T]{item: item, next: prev.next}
	l.length++
	return nil
}

// AddAll appends items in order.
func (l *LinkedList[T]) AddAll(items ...T) {
	for _, item := range items {
		l.AddLast(item)
	}
}

// DeleteFirst removes and returns the head item.
func (l *LinkedList[T]) DeleteFirst() (T, error) {
	var zero T
	if l.head == nil {
		return zero, ErrEmpty
	}
	n := l.head
	l.head = n.next
	if l.head == nil {
		l.tail = nil
	}
	l.length--
	return n.item, nil
}

// DeleteLast removes and returns the tail item.
func (l *LinkedList[T]) DeleteLast() (T, error) {
	if l.length <= 1 {
		return l.DeleteFirst()
	}
	prev := l.nodeAt(l.length - 2)
	item := prev.next.item
	prev.next = nil
	l.tail = prev
	l.length--
	return item, nil
}

// DeleteAtIndex removes and returns the item at index.
func (l *LinkedList[T]) DeleteAtIndex(index int) (T, error) {
	var zero T
	if index < 0 || index >= l.length {
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, l.length)
	}
	if index == 0 {
		return l.DeleteFirst()
	}
	prev := l.nodeAt(index - 1)
	target := prev.next
	prev.next = target.next
	if target == l.tail {
		l.tail = prev
	}
	l.length--
	return target.item, nil
}

// Contains reports whether an item equal to item is present.
func (l *LinkedList[T]) Contains(item T) (bool, error) {
	idx, err := l.GetIndex(item)
	return idx != -1, err
}

// GetIndex returns the index of the first item equal to item, or -1.
func (l *LinkedList[T]) GetIndex(item T) (int, error) {
	if l.cmp == nil {
		return -1, ErrNoComparator
	}
	i := 0
	for n := l.head; n != nil; n = n.next {
		if l.cmp(item, n.item) == 0 {
			return i, nil
		}
		i++
	}
	return -1, nil
}

// GetFirst returns the head item.
func (l *LinkedList[T]) GetFirst() (T, error) {
	if l.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.head.item, nil
}

// GetLast returns the tail item.
func (l *LinkedList[T]) GetLast() (T, error) {
	if l.tail == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.tail.item, nil
}

// Get returns the item at index.
func (l *LinkedList[T]) Get(index int) (T, error) {
	if index < 0 || index >= l.length {
		var zero T
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, l.length)
	}
	return l.nodeAt(index).item, nil
}

// ToArray returns the items in order.
func (l *LinkedList[T]) ToArray() []T {
	out := make([]T, 0, l.length)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.item)
	}
	return out
}

// Len returns the number of items.
func (l *LinkedList[T]) Len() int { return l.length }

// IsEmpty reports whether the list holds no items.
func (l *LinkedList[T]) IsEmpty() bool { return l.length == 0 }

// Clear removes all items.
func (l *LinkedList[T]) Clear() {
	l.head = nil
	l.tail = nil
	l.length = 0
}

func (l *LinkedList[T]) nodeAt(index int) *node[T] {
	n := l.head
	for ; index > 0; index-- {
		n = n.next
	}
	return n
}
