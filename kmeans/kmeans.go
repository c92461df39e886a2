// Package kmeans implements the Lloyd-style quantizer behind the SOG
// codebooks: fixed iteration count, seedable initialization, and swappable
// assignment backends (exhaustive scan, centroid k-d tree, or an external
// batch clusterer such as a GPU kernel).
package kmeans

import (
	"fmt"
	"math/rand"

	"github.com/splatforge/splatforge/kdtree"
)

// BatchClusterer assigns every point to its nearest centroid in one call.
// Implementations must agree with the exhaustive CPU scan up to ties.
// The GPU compute path satisfies this interface.
type BatchClusterer interface {
	Execute(points, centroids []float32, dim int, labels []uint32) error
}

// Backend selects the assignment strategy.
type Backend int

const (
	// BackendAuto picks the k-d tree for low dimensions, scan otherwise.
	BackendAuto Backend = iota
	// BackendScan compares every point against every centroid.
	BackendScan
	// BackendKDTree searches a k-d tree rebuilt over the centroids each
	// iteration.
	BackendKDTree
)

const autoKDTreeMaxDim = 8

// Options configure a Cluster run.
type Options struct {
	Iterations int
	Seed       int64
	Backend    Backend
	Batch      BatchClusterer
}

// Option mutates clustering options.
type Option func(*Options)

// WithIterations sets the exact Lloyd iteration count.
func WithIterations(n int) Option { return func(o *Options) { o.Iterations = n } }

// WithSeed seeds centroid initialization for reproducible codebooks.
func WithSeed(seed int64) Option { return func(o *Options) { o.Seed = seed } }

// WithBackend selects the CPU assignment backend.
func WithBackend(b Backend) Option { return func(o *Options) { o.Backend = b } }

// WithBatch routes the assignment step through an external batch clusterer.
func WithBatch(b BatchClusterer) Option { return func(o *Options) { o.Batch = b } }

func defaultOptions() Options {
	return Options{Iterations: 10, Seed: 0x5eed, Backend: BackendAuto}
}

// Cluster quantizes the flat point table (n x dim) into k centroids and a
// label per point. When n < k the points themselves become the centroids
// under the identity labeling and no iteration runs.
func Cluster(points []float32, dim, k int, opts ...Option) ([]float32, []uint32, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if dim <= 0 || len(points)%dim != 0 {
		return nil, nil, fmt.Errorf("kmeans: point table length %d not divisible by dim %d", len(points), dim)
	}
	n := len(points) / dim

	if n < k {
		centroids := make([]float32, len(points))
		copy(centroids, points)
		labels := make([]uint32, n)
		for i := range labels {
			labels[i] = uint32(i)
		}
		return centroids, labels, nil
	}

	rng := rand.New(rand.NewSource(o.Seed))
	centroids := make([]float32, k*dim)
	for i, p := range rng.Perm(n)[:k] {
		copy(centroids[i*dim:(i+1)*dim], points[p*dim:(p+1)*dim])
	}

	labels := make([]uint32, n)
	sums := make([]float32, k*dim)
	counts := make([]int, k)

	for iter := 0; iter < o.Iterations; iter++ {
		if err := assign(points, centroids, dim, labels, &o); err != nil {
			return nil, nil, err
		}

		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}
		for i := 0; i < n; i++ {
			c := int(labels[i])
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += points[i*dim+d]
			}
		}
		for c := 0; c < k; c++ {
			// Empty clusters retain their previous centroid.
			if counts[c] == 0 {
				continue
			}
			inv := 1 / float32(counts[c])
			for d := 0; d < dim; d++ {
				centroids[c*dim+d] = sums[c*dim+d] * inv
			}
		}
	}

	// Labels reflect the final centroids.
	if err := assign(points, centroids, dim, labels, &o); err != nil {
		return nil, nil, err
	}
	return centroids, labels, nil
}

func assign(points, centroids []float32, dim int, labels []uint32, o *Options) error {
	if o.Batch != nil {
		return o.Batch.Execute(points, centroids, dim, labels)
	}
	backend := o.Backend
	if backend == BackendAuto {
		if dim <= autoKDTreeMaxDim {
			backend = BackendKDTree
		} else {
			backend = BackendScan
		}
	}
	switch backend {
	case BackendKDTree:
		tree := kdtree.New(centroids, dim)
		n := len(points) / dim
		for i := 0; i < n; i++ {
			idx, _ := tree.Nearest(points[i*dim : (i+1)*dim])
			labels[i] = uint32(idx)
		}
	default:
		assignScan(points, centroids, dim, labels)
	}
	return nil
}

func assignScan(points, centroids []float32, dim int, labels []uint32) {
	n := len(points) / dim
	k := len(centroids) / dim
	for i := 0; i < n; i++ {
		p := points[i*dim : (i+1)*dim]
		best, bestDist := 0, sqDist(p, centroids[:dim])
		for c := 1; c < k; c++ {
			d := sqDist(p, centroids[c*dim:(c+1)*dim])
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = uint32(best)
	}
}

func sqDist(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
