// Package internal holds helpers shared by the pmerge packages.
package internal

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
)

// ComputeNofBatches divides the size of the range (high - low) by n. If n is 0,
// a default is used that takes runtime.GOMAXPROCS(0) into account.
func ComputeNofBatches(low, high, n int) (batches int) {
	switch size := high - low; {
	case size > 0:
		switch {
		case n == 0:
			batches = 2 * runtime.GOMAXPROCS(0)
		case n > 0:
			batches = n
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
		if batches > size {
			batches = size
		}
	case size == 0:
		batches = 1
	default:
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	return
}

// ChunkBounds returns the half-open bounds of chunk i when a range of size
// elements is cut into n chunks of size/n elements each, with the last chunk
// absorbing the remainder.
func ChunkBounds(size, n, i int) (low, high int) {
	if n <= 0 || i < 0 || i >= n || size < n {
		panic(fmt.Sprintf("invalid chunk %v of %v over %v elements", i, n, size))
	}
	chunk := size / n
	low = i * chunk
	if i == n-1 {
		return low, size
	}
	return low, low + chunk
}

type runtimeError struct{ error }

func (runtimeError) RuntimeError() {}

// WrapPanic adds stack trace information to a recovered panic.
func WrapPanic(p interface{}) interface{} {
	if p != nil {
		s := fmt.Sprintf("%v\n%s\nrethrown at", p, debug.Stack())
		if _, isError := p.(error); isError {
			r := errors.New(s)
			if _, isRuntimeError := p.(runtime.Error); isRuntimeError {
				return runtimeError{r}
			}
			return r
		}
		return s
	}
	return nil
}

// PanicError turns a recovered panic into an error value that carries the
// stack of the panicking goroutine.
func PanicError(p interface{}) error {
	switch w := WrapPanic(p).(type) {
	case nil:
		return nil
	case error:
		return w
	default:
		return fmt.Errorf("%v", w)
	}
}
