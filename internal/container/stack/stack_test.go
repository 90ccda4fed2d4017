package stack

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStack_PushPop(t *testing.T) {
	s := New[int]()
	s.Push(1)
	s.AddAll(2, 3)

	if top, _ := s.Peek(); top != 3 {
		t.Errorf("Peek() = %d, want 3", top)
	}
	if diff := cmp.Diff([]int{3, 2, 1}, s.ToArray()); diff != "" {
		t.Errorf("ToArray() mismatch (-want +got):\n%s", diff)
	}

	for _, want := range []int{3, 2, 1} {
		got, err := s.Pop()
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got != want {
			t.Errorf("Pop() = %d, want %d", got, want)
		}
	}

	if !s.IsEmpty() {
		t.Error("Expected stack to be empty")
	}
	if _, err := s.Pop(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Pop on empty error = %v, want ErrEmpty", err)
	}
	if _, err := s.Peek(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Peek on empty error = %v, want ErrEmpty", err)
	}
}

func TestStack_Clear(t *testing.T) {
	s := New[string]()
	s.AddAll("a", "b")
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}
