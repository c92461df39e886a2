package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splatforge/splatforge"
	"github.com/splatforge/splatforge/gmath"
)

func TestParseArgsBasic(t *testing.T) {
	inv, err := parseArgs([]string{"in.ply", "out.sog"})
	require.NoError(t, err)
	require.Len(t, inv.inputs, 1)
	assert.Equal(t, "in.ply", inv.inputs[0].Path)
	assert.Equal(t, "out.sog", inv.output.Path)
	assert.Equal(t, 10, inv.iterations)
	assert.Equal(t, gmath.Vec3{X: 2, Y: 2, Z: -2}, inv.cameraPos)
}

func TestParseArgsActionsAttachToPrecedingFile(t *testing.T) {
	inv, err := parseArgs([]string{
		"-w",
		"a.ply", "-t", "1,2,3", "-r", "0,90,0",
		"b.ply", "-s", "2",
		"out.ply", "-n", "-b", "1",
	})
	require.NoError(t, err)
	assert.True(t, inv.overwrite)
	require.Len(t, inv.inputs, 2)

	require.Len(t, inv.inputs[0].Actions, 2)
	tr, ok := inv.inputs[0].Actions[0].(splatforge.Translate)
	require.True(t, ok)
	assert.Equal(t, gmath.Vec3{X: 1, Y: 2, Z: 3}, tr.Offset)
	_, ok = inv.inputs[0].Actions[1].(splatforge.Rotate)
	assert.True(t, ok)

	require.Len(t, inv.inputs[1].Actions, 1)
	sc, ok := inv.inputs[1].Actions[0].(splatforge.Scale)
	require.True(t, ok)
	assert.Equal(t, 2.0, sc.Factor)

	require.Len(t, inv.output.Actions, 2)
	_, ok = inv.output.Actions[0].(splatforge.FilterNaN)
	assert.True(t, ok)
	fb, ok := inv.output.Actions[1].(splatforge.FilterBands)
	require.True(t, ok)
	assert.Equal(t, 1, fb.Bands)
}

func TestParseArgsValueFilter(t *testing.T) {
	inv, err := parseArgs([]string{"in.ply", "-c", "opacity,gt,0.5", "out.ply"})
	require.NoError(t, err)
	f, ok := inv.inputs[0].Actions[0].(splatforge.FilterByValue)
	require.True(t, ok)
	assert.Equal(t, "opacity", f.Column)
	assert.Equal(t, splatforge.CmpGT, f.Cmp)
	assert.Equal(t, 0.5, f.Value)

	_, err = parseArgs([]string{"in.ply", "-c", "opacity,sorta,0.5", "out.ply"})
	assert.Error(t, err)
}

func TestParseArgsParams(t *testing.T) {
	inv, err := parseArgs([]string{"grid.mjs", "-P", "count=100,spacing=0.5", "out.ply"})
	require.NoError(t, err)
	p, ok := inv.inputs[0].Actions[0].(splatforge.Param)
	require.True(t, ok)
	assert.Equal(t, "100", p.Values["count"])
	assert.Equal(t, "0.5", p.Values["spacing"])
}

func TestParseArgsErrors(t *testing.T) {
	cases := [][]string{
		{"only.ply"},
		{"-t", "1,2,3", "in.ply", "out.ply"}, // action before any file
		{"in.ply", "-t", "1,2", "out.ply"},   // short vector
		{"in.ply", "-b", "7", "out.ply"},     // bad band count
		{"in.ply", "-i"},                     // missing value
		{"in.ply", "--wat", "out.ply"},       // unknown flag
		{"in.ply", "-s", "two", "out.ply"},   // bad scale
	}
	for _, args := range cases {
		_, err := parseArgs(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestParseArgsGlobals(t *testing.T) {
	inv, err := parseArgs([]string{
		"-g", "-i", "25",
		"-p", "1,2,3", "-e", "4,5,6",
		"in.ply", "out.ply",
	})
	require.NoError(t, err)
	assert.True(t, inv.noGPU)
	assert.Equal(t, 25, inv.iterations)
	assert.Equal(t, gmath.Vec3{X: 1, Y: 2, Z: 3}, inv.cameraPos)
	assert.Equal(t, gmath.Vec3{X: 4, Y: 5, Z: 6}, inv.cameraTgt)
}

func TestParseArgsHelpVersion(t *testing.T) {
	inv, err := parseArgs([]string{"-h"})
	require.NoError(t, err)
	assert.True(t, inv.help)

	inv, err = parseArgs([]string{"--version"})
	require.NoError(t, err)
	assert.True(t, inv.version)
}
