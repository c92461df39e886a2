package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splatforge/splatforge/table"
)

type lineGenerator struct {
	count int
}

func (g *lineGenerator) Columns() []string { return []string{"x", "y", "z"} }
func (g *lineGenerator) Count() int        { return g.count }
func (g *lineGenerator) Generate(row map[string]float64, i int) error {
	row["x"] = float64(i)
	row["y"] = 0
	row["z"] = -float64(i)
	return nil
}

func TestBuild(t *testing.T) {
	tbl, err := Build(&lineGenerator{count: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.NumRows())
	assert.Equal(t, []float32{0, 1, 2, 3, 4}, table.Float32Data(tbl.Column("x")))
	assert.Equal(t, []float32{0, -1, -2, -3, -4}, table.Float32Data(tbl.Column("z")))
}

func TestRegisterLookup(t *testing.T) {
	Register("line", func(p Params) (Generator, error) {
		return &lineGenerator{count: 1}, nil
	})
	f, ok := Lookup("line")
	require.True(t, ok)
	g, err := f(Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Count())

	_, ok = Lookup("missing")
	assert.False(t, ok)
}
