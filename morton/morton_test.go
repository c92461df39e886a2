package morton

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPart1By2(t *testing.T) {
	assert.Equal(t, uint32(0), Part1By2(0))
	assert.Equal(t, uint32(1), Part1By2(1))
	assert.Equal(t, uint32(0b1001), Part1By2(0b11))
	// Only the low 10 bits participate.
	assert.Equal(t, Part1By2(0x3ff), Part1By2(0xffffffff))
}

func TestEncodeOrdering(t *testing.T) {
	// The origin corner precedes the far corner.
	assert.Less(t, Encode(0, 0, 0), Encode(1023, 1023, 1023))
	// Single-axis steps toggle distinct bit positions.
	assert.Equal(t, uint32(1), Encode(1, 0, 0))
	assert.Equal(t, uint32(2), Encode(0, 1, 0))
	assert.Equal(t, uint32(4), Encode(0, 0, 1))
}

func TestOrderIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n = 5000
	x := make([]float32, n)
	y := make([]float32, n)
	z := make([]float32, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float32()*20 - 10
		y[i] = rng.Float32()*20 - 10
		z[i] = rng.Float32()*20 - 10
	}

	perm := Order(x, y, z)
	require.Len(t, perm, n)

	seen := make([]bool, n)
	for _, p := range perm {
		require.False(t, seen[p], "index %d appears twice", p)
		seen[p] = true
	}
}

func TestOrderClustersNeighbors(t *testing.T) {
	// Two well-separated blobs must not interleave.
	var x, y, z []float32
	for i := 0; i < 64; i++ {
		x = append(x, float32(i%4)*0.01)
		y = append(y, float32(i/4%4)*0.01)
		z = append(z, float32(i/16)*0.01)
	}
	for i := 0; i < 64; i++ {
		x = append(x, 100+float32(i%4)*0.01)
		y = append(y, 100+float32(i/4%4)*0.01)
		z = append(z, 100+float32(i/16)*0.01)
	}

	perm := Order(x, y, z)
	firstBlob := 0
	for _, p := range perm[:64] {
		if p < 64 {
			firstBlob++
		}
	}
	assert.Equal(t, 64, firstBlob)
}

func TestOrderIdenticalPoints(t *testing.T) {
	// More than maxRun identical points must terminate and stay ordered by
	// original index.
	const n = 600
	x := make([]float32, n)
	y := make([]float32, n)
	z := make([]float32, n)
	perm := Order(x, y, z)
	require.Len(t, perm, n)
	for i, p := range perm {
		assert.Equal(t, i, p)
	}
}

func TestOrderNonFiniteExtent(t *testing.T) {
	x := []float32{0, float32(math.NaN()), 2, 3}
	y := []float32{0, 1, 2, 3}
	z := []float32{0, 1, 2, 3}
	perm := Order(x, y, z)
	// Identity is retained for the affected range.
	assert.Equal(t, []int{0, 1, 2, 3}, perm)
}
