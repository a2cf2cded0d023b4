// Package parallel fans work out over index ranges. The bench uses it to fit
// one classifier per cross-validation fold.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per worker, and
// calls fn(start, end) for each range concurrently. maxWorkers <= 0 means
// runtime.NumCPU().
func Parallelize(items, maxWorkers int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := maxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach calls fn(i) for every i in [0, items) across workers and returns
// the error of the lowest index that failed, so the reported error does
// not depend on scheduling.
func ForEach(items, maxWorkers int, fn func(i int) error) error {
	errs := make([]error, items)
	Parallelize(items, maxWorkers, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = fn(i)
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
