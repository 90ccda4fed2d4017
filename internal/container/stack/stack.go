// Package stack provides a LIFO stack backed by a doubly linked list.
package stack

import (
	"errors"

	"github.com/sha1n/mcp-symdex-server/internal/container/list"
)

// ErrEmpty is returned by Pop and Peek on an empty stack.
var ErrEmpty = errors.New("stack is empty")

// Stack is a last-in first-out collection.
type Stack[T any] struct {
	items *list.DoublyLinkedList[T]
}

// New creates an empty stack.
func New[T any]() *Stack[T] {
	return &Stack[T]{items: list.NewDoubly[T](nil)}
}

// Push places item on top of the stack.
func (s *Stack[T]) Push(item T) {
	s.items.AddLast(item)
}

// AddAll pushes items in order, so the last one ends up on top.
func (s *Stack[T]) AddAll(items ...T) {
	s.items.AddAll(items...)
}

// Pop removes and returns the top item.
func (s *Stack[T]) Pop() (T, error) {
	item, err := s.items.DeleteLast()
	if err != nil {
		return item, ErrEmpty
	}
	return item, nil
}

// Peek returns the top item without removing it.
func (s *Stack[T]) Peek() (T, error) {
	item, err := s.items.GetLast()
	if err != nil {
		return item, ErrEmpty
	}
	return item, nil
}

// ToArray returns the items from top to bottom.
func (s *Stack[T]) ToArray() []T {
	out := make([]T, 0, s.items.Len())
	for e := s.items.Back(); e != nil; e = e.Prev() {
		out = append(out, e.Value)
	}
	return out
}

// Len returns the number of items.
func (s *Stack[T]) Len() int { return s.items.Len() }

// IsEmpty reports whether the stack holds no items.
func (s *Stack[T]) IsEmpty() bool { return s.items.IsEmpty() }

// Clear removes all items.
func (s *Stack[T]) Clear() { s.items.Clear() }
