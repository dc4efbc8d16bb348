package postprocess

import (
	"runtime"
	"sync"
)

// parallelFor calls fn for every index in [0,n) splitting the indexes
// across NumCPU workers.  Worker w handles i = w, w+numWorkers, ... so fn
// must only write to state owned by index i.
func parallelFor(n int, fn func(i int)) {

	if n == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > n {
		numWorkers = n
	}

	if numWorkers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			defer wg.Done()

			for i := w; i < n; i += numWorkers {
				fn(i)
			}
		}(w)
	}

	wg.Wait()
}
