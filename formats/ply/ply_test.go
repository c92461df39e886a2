package ply

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

// randomGaussianTable builds an n-row float32 Gaussian table with unit-ish
// quaternions and plausible ranges.
func randomGaussianTable(t *testing.T, rng *rand.Rand, n, bands int) *table.Table {
	t.Helper()
	col := func(name string, gen func() float32) table.Column {
		data := make([]float32, n)
		for i := range data {
			data[i] = gen()
		}
		return table.NewColumn(name, data)
	}

	cols := []table.Column{
		col("x", func() float32 { return rng.Float32()*10 - 5 }),
		col("y", func() float32 { return rng.Float32()*10 - 5 }),
		col("z", func() float32 { return rng.Float32()*10 - 5 }),
		col("scale_0", func() float32 { return rng.Float32()*4 - 6 }),
		col("scale_1", func() float32 { return rng.Float32()*4 - 6 }),
		col("scale_2", func() float32 { return rng.Float32()*4 - 6 }),
	}
	// Unit quaternions.
	rot := make([][]float32, 4)
	for i := range rot {
		rot[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		q := gmath.Quat{
			W: rng.NormFloat64(), X: rng.NormFloat64(),
			Y: rng.NormFloat64(), Z: rng.NormFloat64(),
		}.Normalize()
		rot[0][i], rot[1][i], rot[2][i], rot[3][i] = float32(q.W), float32(q.X), float32(q.Y), float32(q.Z)
	}
	for i := 0; i < 4; i++ {
		cols = append(cols, table.NewColumn(fmt.Sprintf("rot_%d", i), rot[i]))
	}
	for i := 0; i < 3; i++ {
		cols = append(cols, col(fmt.Sprintf("f_dc_%d", i), func() float32 { return rng.Float32()*2 - 1 }))
	}
	cols = append(cols, col("opacity", func() float32 { return rng.Float32()*8 - 4 }))
	for i := 0; i < 3*table.CoeffsForBand(bands); i++ {
		cols = append(cols, col(fmt.Sprintf("f_rest_%d", i), func() float32 { return rng.Float32() - 0.5 }))
	}
	return table.MustNew(cols...)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	src := randomGaussianTable(t, rng, 1500, 2)
	src.Comments = []string{"generated by splatforge", "second comment"}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, src))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, src.NumRows(), got.NumRows())
	require.Equal(t, src.NumColumns(), got.NumColumns())
	assert.Equal(t, src.Comments, got.Comments)

	for i, want := range src.Columns() {
		gotCol := got.Columns()[i]
		assert.Equal(t, want.Name(), gotCol.Name())
		assert.Equal(t, want.Type(), gotCol.Type())
		assert.Equal(t, table.Float32Data(want), table.Float32Data(gotCol), want.Name())
	}
}

func TestRoundTripMixedTypes(t *testing.T) {
	src := table.MustNew(
		table.NewColumn("a", []int8{-1, 2}),
		table.NewColumn("b", []uint16{3, 65535}),
		table.NewColumn("c", []float64{1.25, -2.5}),
		table.NewColumn("d", []uint32{7, 1 << 30}),
	)
	// Rename element is still vertex; codec does not care about semantics.
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, src))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int8{-1, 2}, got.Column("a").(*table.ColumnOf[int8]).Data)
	assert.Equal(t, []uint16{3, 65535}, got.Column("b").(*table.ColumnOf[uint16]).Data)
	assert.Equal(t, []float64{1.25, -2.5}, table.Float64Data(got.Column("c")))
	assert.Equal(t, []uint32{7, 1 << 30}, got.Column("d").(*table.ColumnOf[uint32]).Data)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(strings.NewReader("not a ply file"))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReadRejectsASCII(t *testing.T) {
	_, err := Read(strings.NewReader("ply\nformat ascii 1.0\nend_header\n"))
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestReadRejectsBigEndian(t *testing.T) {
	_, err := Read(strings.NewReader("ply\nformat binary_big_endian 1.0\nend_header\n"))
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestReadRejectsListProperty(t *testing.T) {
	hdr := "ply\nformat binary_little_endian 1.0\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n"
	_, err := Read(strings.NewReader(hdr))
	var bad *ErrBadHeader
	assert.ErrorAs(t, err, &bad)
}

func TestReadRejectsMultipleElements(t *testing.T) {
	hdr := "ply\nformat binary_little_endian 1.0\nelement vertex 0\nproperty float x\nelement extra 0\nproperty float y\nend_header\n"
	_, err := Read(strings.NewReader(hdr))
	assert.ErrorIs(t, err, ErrNotSingleVertex)
}

func TestReadShortBody(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\nelement vertex 10\nproperty float x\nend_header\n")
	buf.Write(make([]byte, 12)) // 3 rows only
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestReadHeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\n")
	for buf.Len() < maxHeaderLen+100 {
		buf.WriteString("comment padding padding padding padding\n")
	}
	buf.WriteString("end_header\n")
	_, err := Read(&buf)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestCompressedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	src := randomGaussianTable(t, rng, 1000, 0)

	var buf bytes.Buffer
	require.NoError(t, WriteCompressed(&buf, src))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, src.NumRows(), got.NumRows())

	// The writer reorders rows; compare as multisets keyed by nearest
	// original row.
	type splat struct{ x, y, z float32 }
	find := func(s splat) int {
		bestIdx, bestDist := -1, float32(math.MaxFloat32)
		sx := table.Float32Data(src.Column("x"))
		sy := table.Float32Data(src.Column("y"))
		sz := table.Float32Data(src.Column("z"))
		for i := range sx {
			dx, dy, dz := sx[i]-s.x, sy[i]-s.y, sz[i]-s.z
			d := dx*dx + dy*dy + dz*dz
			if d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		return bestIdx
	}

	gx := table.Float32Data(got.Column("x"))
	gy := table.Float32Data(got.Column("y"))
	gz := table.Float32Data(got.Column("z"))

	// Position tolerance: two 11-bit steps of the scene extent, which bounds
	// every chunk range.
	const posTol = 10.0 / 2047 * 2

	for _, i := range []int{0, 1, 99, 500, 999} {
		j := find(splat{gx[i], gy[i], gz[i]})
		require.GreaterOrEqual(t, j, 0)
		assert.InDelta(t, table.Float32Data(src.Column("x"))[j], gx[i], posTol)

		// Scales within two 10-bit steps of an 8-wide range.
		for s := 0; s < 3; s++ {
			name := fmt.Sprintf("scale_%d", s)
			assert.InDelta(t,
				table.Float32Data(src.Column(name))[j],
				table.Float32Data(got.Column(name))[i],
				8.0/1023*2,
			)
		}

		// Quaternions within 2/511 per component after sign
		// canonicalization.
		var sq, gq [4]float64
		for k := 0; k < 4; k++ {
			name := fmt.Sprintf("rot_%d", k)
			sq[k] = float64(table.Float32Data(src.Column(name))[j])
			gq[k] = float64(table.Float32Data(got.Column(name))[i])
		}
		dot := sq[0]*gq[0] + sq[1]*gq[1] + sq[2]*gq[2] + sq[3]*gq[3]
		if dot < 0 {
			for k := range gq {
				gq[k] = -gq[k]
			}
		}
		for k := range sq {
			assert.InDelta(t, sq[k], gq[k], 1.0/511*2, "rot_%d", k)
		}

		// Colors within 2/255 per channel (in biased space).
		for d := 0; d < 3; d++ {
			name := fmt.Sprintf("f_dc_%d", d)
			want := float64(table.Float32Data(src.Column(name))[j])*gmath.C0 + 0.5
			gotV := float64(table.Float32Data(got.Column(name))[i])*gmath.C0 + 0.5
			assert.InDelta(t, want, gotV, 2.0/255, name)
		}
	}
}

func TestCompressedDropsRestColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	src := randomGaussianTable(t, rng, 300, 3)
	var buf bytes.Buffer
	require.NoError(t, WriteCompressed(&buf, src))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, table.RestColumnCount(got))
	assert.Equal(t, 14, got.NumColumns())
}

func TestCompressedRejectsNonGaussian(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("x", []float32{1}))
	var buf bytes.Buffer
	err := WriteCompressed(&buf, tbl)
	var missing *table.ErrMissingColumns
	assert.ErrorAs(t, err, &missing)
}

func TestCompressedChunkCount(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	src := randomGaussianTable(t, rng, 300, 0)
	var buf bytes.Buffer
	require.NoError(t, WriteCompressed(&buf, src))

	data := buf.Bytes()
	header := string(data[:bytes.Index(data, []byte("end_header"))])
	assert.Contains(t, header, "element chunk 2\n")
	assert.Contains(t, header, "element vertex 300\n")
}
