// Package hashset provides an open-addressing hash set with a pluggable hasher.
package hashset

import "github.com/cespare/xxhash/v2"

const (
	minCapacity = 8
	maxLoad     = 0.75
)

// Hasher maps an item to a 64-bit hash.
type Hasher[T any] func(T) uint64

// StringHasher hashes strings with xxhash.
func StringHasher(s string) uint64 { return xxhash.Sum64String(s) }

// BytesHasher hashes byte slices with xxhash.
func BytesHasher(b []byte) uint64 { return xxhash.Sum64(b) }

type slot[T any] struct {
	item T
	used bool
	dead bool
}

// HashSet stores distinct items using linear probing. Deleted slots are
// tombstoned and reclaimed on the next resize.
type HashSet[T any] struct {
	slots []slot[T]
	count int
	dead  int
	hash  Hasher[T]
	equal func(a, b T) bool
}

// New creates an empty set.
func New[T any](hash Hasher[T], equal func(a, b T) bool) *HashSet[T] {
	return &HashSet[T]{
		slots: make([]slot[T], minCapacity),
		hash:  hash,
		equal: equal,
	}
}

// NewStrings creates a set of strings.
func NewStrings() *HashSet[string] {
	return New(StringHasher, func(a, b string) bool { return a == b })
}

// Insert adds item and reports whether it was newly added.
func (s *HashSet[T]) Insert(item T) bool {
	if float64(s.count+s.dead+1) > maxLoad*float64(len(s.slots)) {
		s.resize()
	}
	idx, found := s.find(item)
	if found {
		return false
	}
	if s.slots[idx].dead {
		s.dead--
	}
	s.slots[idx] = slot[T]{item: item, used: true}
	s.count++
	return true
}

// Delete removes item and reports whether it was present.
func (s *HashSet[T]) Delete(item T) bool {
	idx, found := s.find(item)
	if !found {
		return false
	}
	var zero T
	s.slots[idx] = slot[T]{item: zero, dead: true}
	s.count--
	s.dead++
	return true
}

// Contains reports whether item is in the set.
func (s *HashSet[T]) Contains(item T) bool {
	_, found := s.find(item)
	return found
}

// ToArray returns the items in unspecified order.
func (s *HashSet[T]) ToArray() []T {
	out := make([]T, 0, s.count)
	for _, sl := range s.slots {
		if sl.used {
			out = append(out, sl.item)
		}
	}
	return out
}

// Len returns the number of items.
func (s *HashSet[T]) Len() int { return s.count }

// IsEmpty reports whether the set holds no items.
func (s *HashSet[T]) IsEmpty() bool { return s.count == 0 }

// Clear removes all items and shrinks the table.
func (s *HashSet[T]) Clear() {
	s.slots = make([]slot[T], minCapacity)
	s.count = 0
	s.dead = 0
}

// find returns the slot holding item, or the first reusable slot on its probe path.
func (s *HashSet[T]) find(item T) (int, bool) {
	mask := uint64(len(s.slots) - 1)
	idx := s.hash(item) & mask
	firstFree := -1
	for range s.slots {
		sl := &s.slots[idx]
		switch {
		case sl.used:
			if s.equal(sl.item, item) {
				return int(idx), true
			}
		case sl.dead:
			if firstFree == -1 {
				firstFree = int(idx)
			}
		default:
			if firstFree == -1 {
				firstFree = int(idx)
			}
			return firstFree, false
		}
		idx = (idx + 1) & mask
	}
	return firstFree, false
}

func (s *HashSet[T]) resize() {
	size := len(s.slots)
	if float64(s.count+1) > maxLoad*float64(size)/2 {
		size *= 2
	}
	old := s.slots
	s.slots = make([]slot[T], size)
	s.count = 0
	s.dead = 0
	for _, sl := range old {
		if sl.used {
			idx, _ := s.find(sl.item)
			s.slots[idx] = slot[T]{item: sl.item, used: true}
			s.count++
		}
	}
}
