package algo

// BinarySearch returns the index of an element of sorted that compares equal
// to target, or -1. cmp is called as cmp(target, element).
func BinarySearch[T, K any](sorted []T, target K, cmp func(target K, elem T) int) int {
	lo, hi := 0, len(sorted)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch c := cmp(target, sorted[mid]); {
		case c == 0:
			return mid
		case c < 0:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return -1
}

// ExponentialSearch finds target in sorted by doubling the probe bound and
// then binary searching the last range. It runs in O(log i) where i is the
// position of the target, which favours lookups near the front.
// cmp is called as cmp(target, element). Returns -1 if absent.
func ExponentialSearch[T, K any](sorted []T, target K, cmp func(target K, elem T) int) int {
	n := len(sorted)
	if n == 0 {
		return -1
	}
	if cmp(target, sorted[0]) == 0 {
		return 0
	}
	bound := 1
	for bound < n && cmp(target, sorted[bound]) > 0 {
		bound *= 2
	}
	lo := bound / 2
	hi := min(bound, n-1)
	idx := BinarySearch(sorted[lo:hi+1], target, cmp)
	if idx == -1 {
		return -1
	}
	return lo + idx
}

// LowerBound returns the first index whose element is not less than target.
func LowerBound[T, K any](sorted []T, target K, cmp func(target K, elem T) int) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if cmp(target, sorted[mid]) > 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
