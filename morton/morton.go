// Package morton orders splat indices along a 3D Morton curve so that
// spatially close points land in the same compressed chunk.
package morton

import (
	"math"
	"sort"
)

// maxRun is the largest group of identical codes left unsplit. Runs longer
// than this recurse with extents recomputed from the run itself.
const maxRun = 256

// Part1By2 spreads the low 10 bits of x so they occupy every third bit.
func Part1By2(x uint32) uint32 {
	x &= 0x000003ff
	x = (x ^ (x << 16)) & 0xff0000ff
	x = (x ^ (x << 8)) & 0x0300f00f
	x = (x ^ (x << 4)) & 0x030c30c3
	x = (x ^ (x << 2)) & 0x09249249
	return x
}

// Encode interleaves three 10-bit coordinates into a 30-bit Morton code.
func Encode(ix, iy, iz uint32) uint32 {
	return Part1By2(ix) | Part1By2(iy)<<1 | Part1By2(iz)<<2
}

// Order returns a permutation of [0, len(x)) clustering spatially close
// points. The coordinate slices must have equal length.
func Order(x, y, z []float32) []int {
	indices := make([]int, len(x))
	for i := range indices {
		indices[i] = i
	}
	order(x, y, z, indices)
	return indices
}

// order sorts the given index slice in place by recursive Morton code.
func order(x, y, z []float32, indices []int) {
	if len(indices) <= 1 {
		return
	}

	minX, maxX := extent(x, indices)
	minY, maxY := extent(y, indices)
	minZ, maxZ := extent(z, indices)
	if !finite(minX) || !finite(maxX) || !finite(minY) || !finite(maxY) || !finite(minZ) || !finite(maxZ) {
		// Non-finite extents: leave this sub-range as-is.
		return
	}

	codes := make([]uint32, len(indices))
	for j, i := range indices {
		codes[j] = Encode(quantize(x[i], minX, maxX), quantize(y[i], minY, maxY), quantize(z[i], minZ, maxZ))
	}

	// Equal codes keep their original index order so results are
	// deterministic before the recursive step.
	perm := make([]int, len(indices))
	for j := range perm {
		perm[j] = j
	}
	sort.Slice(perm, func(a, b int) bool {
		if codes[perm[a]] != codes[perm[b]] {
			return codes[perm[a]] < codes[perm[b]]
		}
		return indices[perm[a]] < indices[perm[b]]
	})

	sorted := make([]int, len(indices))
	sortedCodes := make([]uint32, len(indices))
	for j, p := range perm {
		sorted[j] = indices[p]
		sortedCodes[j] = codes[p]
	}
	copy(indices, sorted)

	// Recurse on oversized runs of one code.
	start := 0
	for start < len(indices) {
		end := start + 1
		for end < len(indices) && sortedCodes[end] == sortedCodes[start] {
			end++
		}
		// A run spanning the whole range means every extent is degenerate;
		// recursing could not refine it further.
		if end-start > maxRun && end-start < len(indices) {
			order(x, y, z, indices[start:end])
		}
		start = end
	}
}

func quantize(v, min, max float32) uint32 {
	if max <= min {
		return 0
	}
	q := int32((v - min) * 1024 / (max - min))
	if q < 0 {
		q = 0
	} else if q > 1023 {
		q = 1023
	}
	return uint32(q)
}

func extent(vs []float32, indices []int) (float32, float32) {
	min, max := vs[indices[0]], vs[indices[0]]
	for _, i := range indices[1:] {
		v := vs[i]
		if math.IsNaN(float64(v)) {
			// A NaN coordinate makes the extent non-finite.
			return v, v
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
