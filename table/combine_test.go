package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineIdentity(t *testing.T) {
	tbl := gaussianFixture(t, 3, 1)
	out, err := Combine([]*Table{tbl})
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}

func TestCombineUnion(t *testing.T) {
	a := gaussianFixture(t, 2, 0)
	b := gaussianFixture(t, 3, 0)
	require.NoError(t, b.AddColumn(NewColumn("extra", []uint16{7, 8, 9})))

	out, err := Combine([]*Table{a, b})
	require.NoError(t, err)
	assert.Equal(t, 5, out.NumRows())
	// Union in first-seen order: a's columns then b's novel column last.
	cols := out.Columns()
	assert.Equal(t, a.NumColumns()+1, len(cols))
	assert.Equal(t, "extra", cols[len(cols)-1].Name())

	// Rows absent a column stay at the zero default.
	extra := out.Column("extra")
	assert.Equal(t, 0.0, extra.Get(0))
	assert.Equal(t, 0.0, extra.Get(1))
	assert.Equal(t, 7.0, extra.Get(2))
	assert.Equal(t, 9.0, extra.Get(4))

	// Data copied at the right offsets.
	assert.Equal(t, []float32{0, 1, 0, 1, 2}, Float32Data(out.Column("x")))
}

func TestCombineTypeMismatchMakesTwoColumns(t *testing.T) {
	// Same name with a different element type is a distinct union key.
	a := gaussianFixture(t, 1, 0)
	require.NoError(t, a.AddColumn(NewColumn("tag", []uint8{1})))
	b := gaussianFixture(t, 1, 0)
	require.NoError(t, b.AddColumn(NewColumn("tag", []float32{2})))

	out, err := Combine([]*Table{a, b})
	require.NoError(t, err)
	count := 0
	for _, c := range out.Columns() {
		if c.Name() == "tag" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestCombineRejectsNonGaussian(t *testing.T) {
	a := gaussianFixture(t, 1, 0)
	b := MustNew(NewColumn("x", []float32{1}))
	_, err := Combine([]*Table{a, b})
	var missing *ErrMissingColumns
	assert.ErrorAs(t, err, &missing)
}

func TestCombineOrderingMatchesInputs(t *testing.T) {
	a := gaussianFixture(t, 1, 0)
	b := gaussianFixture(t, 1, 0)
	Float32Data(b.Column("x"))[0] = 100
	out, err := Combine([]*Table{a, b})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 100}, Float32Data(out.Column("x")))
}
