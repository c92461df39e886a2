package table

import (
	"fmt"
	"testing"
)

// gaussianFixture builds an n-row Gaussian table with the given SH band
// count. Values are deterministic but non-trivial.
func gaussianFixture(t *testing.T, n, bands int) *Table {
	t.Helper()
	tbl := &Table{}
	add := func(name string, gen func(i int) float32) {
		data := make([]float32, n)
		for i := range data {
			data[i] = gen(i)
		}
		if err := tbl.AddColumn(NewColumn(name, data)); err != nil {
			t.Fatal(err)
		}
	}

	add("x", func(i int) float32 { return float32(i) })
	add("y", func(i int) float32 { return float32(i) * 2 })
	add("z", func(i int) float32 { return float32(i) * 3 })
	for s := 0; s < 3; s++ {
		add(fmt.Sprintf("scale_%d", s), func(i int) float32 { return -float32(s) })
	}
	add("rot_0", func(i int) float32 { return 1 })
	add("rot_1", func(i int) float32 { return 0 })
	add("rot_2", func(i int) float32 { return 0 })
	add("rot_3", func(i int) float32 { return 0 })
	for d := 0; d < 3; d++ {
		add(fmt.Sprintf("f_dc_%d", d), func(i int) float32 { return float32(d) * 0.25 })
	}
	add("opacity", func(i int) float32 { return float32(i) * 0.5 })

	for r := 0; r < 3*CoeffsForBand(bands); r++ {
		add(fmt.Sprintf("f_rest_%d", r), func(i int) float32 { return float32(r) + float32(i)*0.01 })
	}
	return tbl
}
