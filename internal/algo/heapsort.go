// Package algo holds comparator-driven sorting and searching over slices.
package algo

// HeapSort sorts items in place in ascending order per cmp.
// It is not stable and runs in O(n log n) with O(1) extra space.
func HeapSort[T any](items []T, cmp func(a, b T) int) {
	n := len(items)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(items, n, i, cmp)
	}
	for end := n - 1; end > 0; end-- {
		items[0], items[end] = items[end], items[0]
		siftDown(items, end, 0, cmp)
	}
}

// siftDown restores the max-heap property for the subtree rooted at i within items[:n].
func siftDown[T any](items []T, n, i int, cmp func(a, b T) int) {
	for {
		largest := i
		left, right := 2*i+1, 2*i+2
		if left < n && cmp(items[left], items[largest]) > 0 {
			largest = left
		}
		if right < n && cmp(items[right], items[largest]) > 0 {
			largest = right
		}
		if largest == i {
			return
		}
		items[i], items[largest] = items[largest], items[i]
		i = largest
	}
}
