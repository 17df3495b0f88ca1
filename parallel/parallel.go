// Package parallel provides data-parallel loops over integer ranges. The
// workload package uses them to generate and check large vectors.
package parallel

import (
	"sync"

	"github.com/exascience/pmerge/internal"
)

// Range receives a range, a batch count n, and a range function f, divides
// the range into batches, and invokes the range function for each of these
// batches in parallel, covering the half-open interval from low to high.
//
// If n is 0, a reasonable default is used that takes runtime.GOMAXPROCS(0)
// into account. Range panics if high < low, or if n < 0.
//
// If one or more range function invocations panic, Range eventually panics
// with the left-most recovered panic value.
func Range(low, high, n int, f func(low, high int)) {
	RangeAnd(low, high, n, func(low, high int) bool {
		f(low, high)
		return true
	})
}

// RangeAnd is like Range for a range predicate, combining the results of
// all batches with the && operator. All batches run to completion even when
// one of them returns false.
func RangeAnd(low, high, n int, f func(low, high int) bool) bool {
	var recur func(int, int, int) bool
	recur = func(low, high, n int) bool {
		if n == 1 {
			return f(low, high)
		}
		batchSize := ((high - low - 1) / n) + 1
		half := n / 2
		mid := low + batchSize*half
		if mid >= high {
			return f(low, high)
		}
		var b1 bool
		var p interface{}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			b1 = recur(mid, high, n-half)
		}()
		b0 := recur(low, mid, half)
		wg.Wait()
		if p != nil {
			panic(p)
		}
		return b0 && b1
	}
	return recur(low, high, internal.ComputeNofBatches(low, high, n))
}
