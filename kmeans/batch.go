package kmeans

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelBatch is a CPU implementation of BatchClusterer that shards the
// assignment step across goroutines. Each shard touches a disjoint label
// range, so no synchronization beyond the join is needed.
type ParallelBatch struct {
	// Workers caps the goroutine count; 0 means GOMAXPROCS.
	Workers int
}

// Execute assigns every point to its nearest centroid.
func (p *ParallelBatch) Execute(points, centroids []float32, dim int, labels []uint32) error {
	n := len(points) / dim
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = 1
	}

	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			assignScan(points[lo*dim:hi*dim], centroids, dim, labels[lo:hi])
			return nil
		})
	}
	return g.Wait()
}
