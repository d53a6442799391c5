package images

import (
	"runtime"
	"sync"
)

// Parallel splits [0, dataSize) into contiguous partitions and runs fn on
// each partition in its own goroutine.
//
// Partitions never overlap, so fn may write to index-addressed output without
// locking as long as it only touches indices inside [partStart, partEnd).
//
// Arguments:
// - dataSize: The size of the data to process.
// - workers: Upper bound on goroutines; values < 1 mean runtime.NumCPU().
// - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(len(candidates), 4, func(start, end int) {
//	    for i := start; i < end; i++ {
//	        overlaps[i] = Overlap(anchor, candidates[i])
//	    }
//	})
func Parallel(dataSize, workers int, fn func(partStart, partEnd int)) {
	if dataSize <= 0 {
		return
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	// For small data sizes, parallel processing overhead isn't worth it.
	if workers == 1 || dataSize < workers*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets any remaining data.
		if i == workers-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}
	wg.Wait()
}
