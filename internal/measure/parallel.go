package measure

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRanges делит [0, n) на непересекающиеся куски и обрабатывает их параллельно.
// Каждый кусок пишет только в свои ячейки, поэтому результат не зависит от порядка.
func parallelRanges(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += size {
		lo := lo
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
