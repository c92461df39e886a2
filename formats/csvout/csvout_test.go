package csvout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splatforge/splatforge/table"
)

func TestWrite(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("x", []float32{0.5, -1}),
		table.NewColumn("count", []uint8{3, 200}),
		table.NewColumn("d", []float64{1.25, 0}),
	)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))

	assert.Equal(t, "x,count,d\n0.5,3,1.25\n-1,200,0\n", buf.String())
}

func TestWriteShortestFloatForm(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("v", []float32{1.0 / 3}))
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	// Shortest round-trip form of float32 1/3.
	assert.Equal(t, "v\n0.33333334\n", buf.String())
}
