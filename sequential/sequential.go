// Package sequential provides the single-threaded building blocks of the
// tree merge sort: a two-way merge, a boundary search over sorted ranges,
// and a plain recursive merge sort.
//
// The merge sort is what every rank runs on its local partition at the
// leaves of the process tree, and it doubles as the sequential baseline the
// parallel sort is timed against.
package sequential

import "fmt"

// Merge merges the sorted slices a and b into dst, which must have room
// for exactly len(a)+len(b) elements and must not overlap a or b. On equal
// values the element from a is placed first.
func Merge(dst, a, b []int64) {
	if len(dst) != len(a)+len(b) {
		panic(fmt.Sprintf("merge destination has %v elements, want %v", len(dst), len(a)+len(b)))
	}
	for {
		if len(b) == 0 {
			copy(dst, a)
			return
		}
		n := 0
		for n < len(a) && a[n] <= b[0] {
			n++
		}
		copy(dst, a[:n])
		dst, a = dst[n:], a[n:]

		if len(a) == 0 {
			copy(dst, b)
			return
		}
		n = 0
		for n < len(b) && b[n] < a[0] {
			n++
		}
		copy(dst, b[:n])
		dst, b = dst[n:], b[n:]
	}
}

/*
Search returns the largest index i of the sorted slice a with a[i] <= key,
or -1 if key is smaller than every element of a.

The first and last elements are checked before narrowing: key < a[0]
yields -1, key == a[0] yields 0, and key >= a[len(a)-1] yields
len(a)-1. Otherwise a binary search finds the first element greater than
key, and the index before it is returned.

Search panics if a is empty.
*/
func Search(key int64, a []int64) int {
	if len(a) == 0 {
		panic("boundary search on an empty range")
	}
	last := len(a) - 1
	switch {
	case key < a[0]:
		return -1
	case key == a[0]:
		return 0
	case key >= a[last]:
		return last
	}
	// a[0] < key < a[last], so the first element greater than key lies in
	// a[1:last+1].
	low, high := 1, last
	for low < high {
		mid := int(uint(low+high) >> 1)
		if key < a[mid] {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return high - 1
}

// SearchRange is Search over the inclusive range a[start..finish]. The
// result is an index into a, or -1. SearchRange panics if start > finish
// or if the range is not within a.
func SearchRange(key int64, a []int64, start, finish int) int {
	if start > finish || start < 0 || finish >= len(a) {
		panic(fmt.Sprintf("invalid search range %v:%v over %v elements", start, finish, len(a)))
	}
	i := Search(key, a[start:finish+1])
	if i < 0 {
		return -1
	}
	return start + i
}

// MergeSort sorts v in increasing order. It splits at the midpoint, sorts
// both halves recursively, and merges them through a scratch buffer of
// len(v) elements that is shared by all merge steps.
func MergeSort(v []int64) {
	if len(v) < 2 {
		return
	}
	mergeSort(v, make([]int64, len(v)))
}

func mergeSort(v, scratch []int64) {
	if len(v) < 2 {
		return
	}
	mid := (len(v)-1)/2 + 1
	mergeSort(v[:mid], scratch[:mid])
	mergeSort(v[mid:], scratch[mid:])
	Merge(scratch, v[:mid], v[mid:])
	copy(v, scratch)
}
