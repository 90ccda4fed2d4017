package list

import "fmt"

// Element is a node of a DoublyLinkedList. Holding an *Element lets callers
// unlink or move it in O(1).
type Element[T any] struct {
	Value T
	prev  *Element[T]
	next  *Element[T]
	owner *DoublyLinkedList[T]
}

// Next returns the following element or nil.
func (e *Element[T]) Next() *Element[T] { return e.next }

// Prev returns the preceding element or nil.
func (e *Element[T]) Prev() *Element[T] { return e.prev }

// DoublyLinkedList is a linked list with forward and backward links.
type DoublyLinkedList[T any] struct {
	head   *Element[T]
	tail   *Element[T]
	length int
	cmp    Comparator[T]
}

// NewDoubly creates an empty doubly linked list. cmp may be nil.
func NewDoubly[T any](cmp Comparator[T]) *DoublyLinkedList[T] {
	return &DoublyLinkedList[T]{cmp: cmp}
}

// AddFirst inserts item at the head and returns its element.
func (l *DoublyLinkedList[T]) AddFirst(item T) *Element[T] {
	e := &Element[T]{Value: item, owner: l}
	l.linkFront(e)
	return e
}

// AddLast appends item at the tail and returns its element.
func (l *DoublyLinkedList[T]) AddLast(item T) *Element[T] {
	e := &Element[T]{Value: item, owner: l, prev: l.tail}
	if l.tail == nil {
		l.head = e
	} else {
		l.tail.next = e
	}
	l.tail = e
	l.length++
	return e
}

// AddAtIndex inserts item so that it ends up at index. Index Len() appends.
func (l *DoublyLinkedList[T]) AddAtIndex(index int, item T) error {
	if index < 0 || index > l.length {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, l.length)
	}
	switch index {
	case 0:
		l.AddFirst(item)
	case l.length:
		l.AddLast(item)
	default:
		at := l.elementAt(index)
		e := &Element[T]{Value: item, owner: l, prev: at.prev, next: at}
		at.prev.next = e
		at.prev = e
		l.length++
	}
	return nil
}

// AddAll appends items in order.
func (l *DoublyLinkedList[T]) AddAll(items ...T) {
	for _, item := range items {
		l.AddLast(item)
	}
}

// DeleteFirst removes and returns the head item.
func (l *DoublyLinkedList[T]) DeleteFirst() (T, error) {
	if l.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.Remove(l.head), nil
}

// DeleteLast removes and returns the tail item.
func (l *DoublyLinkedList[T]) DeleteLast() (T, error) {
	if l.tail == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.Remove(l.tail), nil
}

// DeleteAtIndex removes and returns the item at index.
func (l *DoublyLinkedList[T]) DeleteAtIndex(index int) (T, error) {
	if index < 0 || index >= l.length {
		var zero T
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, l.length)
	}
	return l.Remove(l.elementAt(index)), nil
}

// Remove unlinks e and returns its value. e must belong to l.
func (l *DoublyLinkedList[T]) Remove(e *Element[T]) T {
	if e.owner != l {
		return e.Value
	}
	if e.prev == nil {
		l.head = e.next
	} else {
		e.prev.next = e.next
	}
	if e.next == nil {
		l.tail = e.prev
	} else {
		e.next.prev = e.prev
	}
	e.prev, e.next, e.owner = nil, nil, nil
	l.length--
	return e.Value
}

// MoveToFront relinks e at the head.
func (l *DoublyLinkedList[T]) MoveToFront(e *Element[T]) {
	if e.owner != l || l.head == e {
		return
	}
	l.Remove(e)
	e.owner = l
	l.linkFront(e)
}

// Contains reports whether an item equal to item is present.
func (l *DoublyLinkedList[T]) Contains(item T) (bool, error) {
	idx, err := l.GetIndex(item)
	return idx != -1, err
}

// GetIndex returns the index of the first item equal to item, or -1.
func (l *DoublyLinkedList[T]) GetIndex(item T) (int, error) {
	if l.cmp == nil {
		return -1, ErrNoComparator
	}
	i := 0
	for e := l.head; e != nil; e = e.next {
		if l.cmp(item, e.Value) == 0 {
			return i, nil
		}
		i++
	}
	return -1, nil
}

// Front returns the head element or nil.
func (l *DoublyLinkedList[T]) Front() *Element[T] { return l.head }

// Back returns the tail element or nil.
func (l *DoublyLinkedList[T]) Back() *Element[T] { return l.tail }

// GetFirst returns the head item.
func (l *DoublyLinkedList[T]) GetFirst() (T, error) {
	if l.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.head.Value, nil
}

// GetLast returns the tail item.
func (l *DoublyLinkedList[T]) GetLast() (T, error) {
	if l.tail == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.tail.Value, nil
}

// Get returns the item at index, walking from whichever end is closer.
func (l *DoublyLinkedList[T]) Get(index int) (T, error) {
	if index < 0 || index >= l.length {
		var zero T
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, l.length)
	}
	return l.elementAt(index).Value, nil
}

// ToArray returns the items from head to tail.
func (l *DoublyLinkedList[T]) ToArray() []T {
	out := make([]T, 0, l.length)
	for e := l.head; e != nil; e = e.next {
		out = append(out, e.Value)
	}
	return out
}

// Len returns the number of items.
func (l *DoublyLinkedList[T]) Len() int { return l.length }

// IsEmpty reports whether the list holds no items.
func (l *DoublyLinkedList[T]) IsEmpty() bool { return l.length == 0 }

// Clear removes all items.
func (l *DoublyLinkedList[T]) Clear() {
	for e := l.head; e != nil; {
		next := e.next
		e.prev, e.next, e.owner = nil, nil, nil
		e = next
	}
	l.head = nil
	l.tail = nil
	l.length = 0
}

func (l *DoublyLinkedList[T]) linkFront(e *Element[T]) {
	e.prev = nil
	e.next = l.head
	if l.head == nil {
		l.tail = e
	} else {
		l.head.prev = e
	}
	l.head = e
	l.length++
}

func (l *DoublyLinkedList[T]) elementAt(index int) *Element[T] {
	if index < l.length/2 {
		e := l.head
		for ; index > 0; index-- {
			e = e.next
		}
		return e
	}
	e := l.tail
	for i := l.length - 1; i > index; i-- {
		e = e.prev
	}
	return e
}
