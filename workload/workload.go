// Package workload produces input vectors for sorting runs and checks their
// results.
package workload

import (
	"math/rand/v2"

	"github.com/exascience/pmerge/parallel"
)

// Generate returns the values 1..n in an order shuffled by r.
func Generate(n int, r *rand.Rand) []int64 {
	v := make([]int64, n)
	parallel.Range(0, n, 0, func(low, high int) {
		for k := low; k < high; k++ {
			v[k] = int64(k + 1)
		}
	})
	r.Shuffle(n, func(i, j int) {
		v[i], v[j] = v[j], v[i]
	})
	return v
}

// IsIdentity reports whether v[k] == k+1 for every k, which is what sorting
// the output of Generate must produce.
func IsIdentity(v []int64) bool {
	return parallel.RangeAnd(0, len(v), 0, func(low, high int) bool {
		for k := low; k < high; k++ {
			if v[k] != int64(k+1) {
				return false
			}
		}
		return true
	})
}

// IsSorted reports whether v is in non-decreasing order.
func IsSorted(v []int64) bool {
	if len(v) < 2 {
		return true
	}
	return parallel.RangeAnd(1, len(v), 0, func(low, high int) bool {
		for k := low; k < high; k++ {
			if v[k] < v[k-1] {
				return false
			}
		}
		return true
	})
}

// SamePermutation reports whether a and b hold the same multiset of values.
func SamePermutation(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int64]int, len(a))
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		if counts[x] == 0 {
			return false
		}
		counts[x]--
	}
	return true
}
