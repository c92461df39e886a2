package splatforge

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

// singleSplat builds a one-row Gaussian table at the given position.
func singleSplat(pos gmath.Vec3, bands int) *table.Table {
	cols := []table.Column{
		table.NewColumn("x", []float32{float32(pos.X)}),
		table.NewColumn("y", []float32{float32(pos.Y)}),
		table.NewColumn("z", []float32{float32(pos.Z)}),
		table.NewColumn("scale_0", []float32{0}),
		table.NewColumn("scale_1", []float32{0}),
		table.NewColumn("scale_2", []float32{0}),
		table.NewColumn("rot_0", []float32{1}),
		table.NewColumn("rot_1", []float32{0}),
		table.NewColumn("rot_2", []float32{0}),
		table.NewColumn("rot_3", []float32{0}),
		table.NewColumn("f_dc_0", []float32{0}),
		table.NewColumn("f_dc_1", []float32{0}),
		table.NewColumn("f_dc_2", []float32{0}),
		table.NewColumn("opacity", []float32{0}),
	}
	for i := 0; i < 3*table.CoeffsForBand(bands); i++ {
		cols = append(cols, table.NewColumn(fmt.Sprintf("f_rest_%d", i), []float32{float32(i) * 0.1}))
	}
	return table.MustNew(cols...)
}

func TestTranslate(t *testing.T) {
	tbl := singleSplat(gmath.Vec3{X: 1}, 0)
	out, err := Translate{Offset: gmath.Vec3{X: 1, Y: 2, Z: 3}}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, float32(2), table.Float32Data(out.Column("x"))[0])
	assert.Equal(t, float32(2), table.Float32Data(out.Column("y"))[0])
	assert.Equal(t, float32(3), table.Float32Data(out.Column("z"))[0])
}

func TestCombinedTRS(t *testing.T) {
	// -r 0,90,0 -t 0,0,1 -s 2 on a splat at (1,0,0) combines into one TRS:
	// p' = R*(s*p) + t = (0,0,-2) + (0,0,1) = (0,0,-1).
	tbl := singleSplat(gmath.Vec3{X: 1}, 0)

	actions := MergeActions([]Action{
		Rotate{Degrees: gmath.Vec3{Y: 90}},
		Translate{Offset: gmath.Vec3{Z: 1}},
		Scale{Factor: 2},
	})
	require.Len(t, actions, 1)

	out, err := actions[0].Apply(tbl)
	require.NoError(t, err)

	assert.InDelta(t, 0, table.Float32Data(out.Column("x"))[0], 1e-6)
	assert.InDelta(t, 0, table.Float32Data(out.Column("y"))[0], 1e-6)
	assert.InDelta(t, -1, table.Float32Data(out.Column("z"))[0], 1e-6)

	// Quaternion is the 90 degree yaw.
	assert.InDelta(t, math.Sqrt2/2, table.Float32Data(out.Column("rot_0"))[0], 1e-6)
	assert.InDelta(t, math.Sqrt2/2, table.Float32Data(out.Column("rot_2"))[0], 1e-6)

	// Log-scales picked up ln(2).
	assert.InDelta(t, math.Ln2, table.Float32Data(out.Column("scale_0"))[0], 1e-6)
}

func TestMergeActionsBreaksOnFilters(t *testing.T) {
	actions := MergeActions([]Action{
		Translate{Offset: gmath.Vec3{X: 1}},
		Translate{Offset: gmath.Vec3{X: 2}},
		FilterNaN{},
		Scale{Factor: 2},
	})
	require.Len(t, actions, 3)

	trs, ok := actions[0].(Transform)
	require.True(t, ok)
	assert.Equal(t, 3.0, trs.Offset.X)
	assert.Equal(t, 1.0, trs.Factor)

	_, ok = actions[1].(FilterNaN)
	assert.True(t, ok)

	trs, ok = actions[2].(Transform)
	require.True(t, ok)
	assert.Equal(t, 2.0, trs.Factor)
}

func TestRotateRotatesHarmonics(t *testing.T) {
	tbl := singleSplat(gmath.Vec3{X: 1}, 2)
	orig := make([]float32, 24)
	for i := range orig {
		orig[i] = table.Float32Data(tbl.Column(fmt.Sprintf("f_rest_%d", i)))[0]
	}

	out, err := Rotate{Degrees: gmath.Vec3{X: 30, Y: 45, Z: -60}}.Apply(tbl)
	require.NoError(t, err)

	changed := false
	for i := range orig {
		if table.Float32Data(out.Column(fmt.Sprintf("f_rest_%d", i)))[0] != orig[i] {
			changed = true
		}
	}
	assert.True(t, changed, "harmonics should rotate")

	// Rotating back restores them.
	out, err = Rotate{Degrees: gmath.Vec3{Z: 60}}.Apply(out)
	require.NoError(t, err)
	out, err = Rotate{Degrees: gmath.Vec3{Y: -45}}.Apply(out)
	require.NoError(t, err)
	out, err = Rotate{Degrees: gmath.Vec3{X: -30}}.Apply(out)
	require.NoError(t, err)
	for i := range orig {
		assert.InDelta(t, orig[i], table.Float32Data(out.Column(fmt.Sprintf("f_rest_%d", i)))[0], 1e-4)
	}
}

func TestScaleRejectsNonPositive(t *testing.T) {
	tbl := singleSplat(gmath.Vec3{}, 0)
	_, err := Scale{Factor: 0}.Apply(tbl)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFilterNaN(t *testing.T) {
	// The E4 scenario: 4 splats, one NaN position, one -Inf opacity; the
	// -Inf opacity survives.
	nan := float32(math.NaN())
	ninf := float32(math.Inf(-1))
	cols := []table.Column{
		table.NewColumn("x", []float32{0, nan, 2, 3}),
		table.NewColumn("y", []float32{0, 1, 2, 3}),
		table.NewColumn("z", []float32{0, 1, 2, 3}),
		table.NewColumn("scale_0", []float32{0, 0, ninf, 0}),
		table.NewColumn("scale_1", []float32{0, 0, 0, 0}),
		table.NewColumn("scale_2", []float32{0, 0, 0, 0}),
		table.NewColumn("rot_0", []float32{1, 1, 1, 1}),
		table.NewColumn("rot_1", []float32{0, 0, 0, 0}),
		table.NewColumn("rot_2", []float32{0, 0, 0, 0}),
		table.NewColumn("rot_3", []float32{0, 0, 0, 0}),
		table.NewColumn("f_dc_0", []float32{0, 0, 0, 0}),
		table.NewColumn("f_dc_1", []float32{0, 0, 0, 0}),
		table.NewColumn("f_dc_2", []float32{0, 0, 0, 0}),
		table.NewColumn("opacity", []float32{0, 0, 0, ninf}),
	}
	tbl := table.MustNew(cols...)

	out, err := FilterNaN{}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, []float32{0, 2, 3}, table.Float32Data(out.Column("x")))
}

func TestFilterNaNRejectsPositiveInfScale(t *testing.T) {
	tbl := singleSplat(gmath.Vec3{}, 0)
	table.Float32Data(tbl.Column("scale_1"))[0] = float32(math.Inf(1))
	out, err := FilterNaN{}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
}

func TestFilterByValue(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("opacity", []float32{-1, 0, 1, 2}),
		table.NewColumn("x", []float32{0, 1, 2, 3}),
	)

	out, err := FilterByValue{Column: "opacity", Cmp: CmpGT, Value: 0}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3}, table.Float32Data(out.Column("x")))

	// Unknown column keeps all rows.
	out, err = FilterByValue{Column: "nope", Cmp: CmpLT, Value: 0}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())

	_, err = FilterByValue{Column: "x", Cmp: "almost", Value: 0}.Apply(tbl)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFilterByValueDeterministic(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("v", []float32{5, 3, 8, 1, 9, 2}))
	a, err := FilterByValue{Column: "v", Cmp: CmpGTE, Value: 3}.Apply(tbl.Clone())
	require.NoError(t, err)
	b, err := FilterByValue{Column: "v", Cmp: CmpGTE, Value: 3}.Apply(tbl.Clone())
	require.NoError(t, err)
	assert.Equal(t, table.Float32Data(a.Column("v")), table.Float32Data(b.Column("v")))
}

func TestFilterBands(t *testing.T) {
	// The E5 scenario: bands 3 -> 1 keeps the first three coefficients of
	// each channel, renumbered channel-major.
	tbl := singleSplat(gmath.Vec3{}, 3)

	out, err := FilterBands{Bands: 1}.Apply(tbl)
	require.NoError(t, err)
	require.Equal(t, 9, table.RestColumnCount(out))

	// Input channel c coefficient j lives at c*15+j and is worth
	// (c*15+j)*0.1; output index is c*3+j.
	for c := 0; c < 3; c++ {
		for j := 0; j < 3; j++ {
			got := table.Float32Data(out.Column(fmt.Sprintf("f_rest_%d", c*3+j)))[0]
			assert.InDelta(t, float64(c*15+j)*0.1, float64(got), 1e-6)
		}
	}
}

func TestFilterBandsNoopWhenFewer(t *testing.T) {
	tbl := singleSplat(gmath.Vec3{}, 1)
	out, err := FilterBands{Bands: 3}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, 9, table.RestColumnCount(out))

	_, err = FilterBands{Bands: 5}.Apply(tbl)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParamIsNoop(t *testing.T) {
	tbl := singleSplat(gmath.Vec3{}, 0)
	out, err := Param{Values: map[string]string{"count": "10"}}.Apply(tbl)
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}
