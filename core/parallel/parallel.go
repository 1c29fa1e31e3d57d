// Package parallel runs row-wise computations over contiguous chunks.
//
// Callers pass functions that write only to the rows they own (a basis row,
// a hat-matrix diagonal entry), so results do not depend on scheduling and
// stay bit-identical between sequential and concurrent runs.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the row count below which work runs sequentially.
const DefaultThreshold = 2048

// Parallelize splits [0, items) into one contiguous chunk per CPU core and
// runs fn on each chunk concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) directly when items does not
// exceed threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

// Rows calls fn once per row index using DefaultThreshold.
func Rows(items int, fn func(i int)) {
	ParallelizeWithThreshold(items, DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
