// Package csvout writes a data table as CSV: a header row of column names,
// then one comma-separated row per splat with numbers in their shortest
// decimal form.
package csvout

import (
	"bufio"
	"io"
	"strconv"

	"github.com/splatforge/splatforge/table"
)

// Write emits the whole table. Integer columns print without a fraction;
// float columns use the shortest representation that round-trips.
func Write(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	cols := t.Columns()
	for i, c := range cols {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(c.Name()); err != nil {
			return err
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	n := t.NumRows()
	for row := 0; row < n; row++ {
		for i, c := range cols {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(cell(c, row)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func cell(c table.Column, row int) string {
	switch col := c.(type) {
	case *table.ColumnOf[float32]:
		return strconv.FormatFloat(float64(col.Data[row]), 'g', -1, 32)
	case *table.ColumnOf[float64]:
		return strconv.FormatFloat(col.Data[row], 'g', -1, 64)
	default:
		return strconv.FormatInt(int64(c.Get(row)), 10)
	}
}
