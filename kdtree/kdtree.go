// Package kdtree implements a static balanced k-d tree over a fixed table
// of centroids, used to accelerate the k-means assignment step.
package kdtree

import "sort"

// Tree is a balanced k-d tree over k points of dim components each, stored
// as one flat float32 slice (row-major).
type Tree struct {
	points  []float32
	dim     int
	indices []int32 // point indices arranged in in-order tree layout
}

// New builds a tree over the flat point table. At depth d the split axis is
// d mod dim and the split point is the median of the current slice.
func New(points []float32, dim int) *Tree {
	n := len(points) / dim
	indices := make([]int32, n)
	for i := range indices {
		indices[i] = int32(i)
	}
	t := &Tree{points: points, dim: dim, indices: indices}
	t.build(0, n, 0)
	return t
}

func (t *Tree) build(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	axis := depth % t.dim
	slice := t.indices[lo:hi]
	sort.Slice(slice, func(a, b int) bool {
		va := t.points[int(slice[a])*t.dim+axis]
		vb := t.points[int(slice[b])*t.dim+axis]
		if va != vb {
			return va < vb
		}
		return slice[a] < slice[b]
	})
	mid := (lo + hi) / 2
	t.build(lo, mid, depth+1)
	t.build(mid+1, hi, depth+1)
}

// Nearest returns the index of the point closest to p under squared
// Euclidean distance, together with that squared distance.
func (t *Tree) Nearest(p []float32) (int, float32) {
	best := int32(-1)
	bestDist := float32(0)
	first := true
	t.search(p, 0, len(t.indices), 0, &best, &bestDist, &first)
	return int(best), bestDist
}

func (t *Tree) search(p []float32, lo, hi, depth int, best *int32, bestDist *float32, first *bool) {
	if hi <= lo {
		return
	}
	mid := (lo + hi) / 2
	idx := t.indices[mid]

	d := t.sqDist(p, int(idx))
	if *first || d < *bestDist {
		*first = false
		*best = idx
		*bestDist = d
	}

	if hi-lo == 1 {
		return
	}

	axis := depth % t.dim
	delta := p[axis] - t.points[int(idx)*t.dim+axis]

	near, farLo, farHi := 0, 0, 0
	if delta < 0 {
		near, farLo, farHi = 0, mid+1, hi
	} else {
		near, farLo, farHi = 1, lo, mid
	}
	if near == 0 {
		t.search(p, lo, mid, depth+1, best, bestDist, first)
	} else {
		t.search(p, mid+1, hi, depth+1, best, bestDist, first)
	}

	// Visit the far side only when the splitting plane is closer than the
	// best match found so far.
	if delta*delta < *bestDist {
		t.search(p, farLo, farHi, depth+1, best, bestDist, first)
	}
}

func (t *Tree) sqDist(p []float32, idx int) float32 {
	base := idx * t.dim
	var sum float32
	for i := 0; i < t.dim; i++ {
		d := p[i] - t.points[base+i]
		sum += d * d
	}
	return sum
}
