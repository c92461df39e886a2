package htmlout

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

func gaussianTable(n int) *table.Table {
	cols := []table.Column{}
	add := func(name string, v float32) {
		data := make([]float32, n)
		for i := range data {
			data[i] = v + float32(i)
		}
		cols = append(cols, table.NewColumn(name, data))
	}
	add("x", 0)
	add("y", 1)
	add("z", 2)
	for i := 0; i < 3; i++ {
		add(fmt.Sprintf("scale_%d", i), -1)
	}
	add("rot_0", 1)
	add("rot_1", 0)
	add("rot_2", 0)
	add("rot_3", 0)
	for i := 0; i < 3; i++ {
		add(fmt.Sprintf("f_dc_%d", i), 0)
	}
	add("opacity", 0)
	return table.MustNew(cols...)
}

func TestWriteSubstitutesTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, gaussianTable(4), &Options{
		CameraPosition: gmath.Vec3{X: 2, Y: 2, Z: -2},
		CameraTarget:   gmath.Vec3{},
	})
	require.NoError(t, err)

	page := buf.String()
	assert.Contains(t, page, "[2, 2, -2]")
	assert.Contains(t, page, "[0, 0, 0]")
	assert.NotContains(t, page, "{{sceneData}}")
	assert.NotContains(t, page, "{{cameraPosition}}")
	// Scene payload is non-trivial base64.
	assert.Contains(t, page, `const sceneData = "`)
	assert.Greater(t, len(page), 1000)
}

func TestWriteRejectsNonGaussian(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("x", []float32{1}))
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, tbl, nil))
}
