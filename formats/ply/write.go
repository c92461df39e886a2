package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/splatforge/splatforge/table"
)

// Write encodes the table as a standard binary little-endian PLY with a
// single vertex element. Column declaration order is preserved.
func Write(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "%s\n", formatLine); err != nil {
		return err
	}
	for _, c := range t.Comments {
		if _, err := fmt.Fprintf(bw, "comment %s\n", c); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "element vertex %d\n", t.NumRows()); err != nil {
		return err
	}
	for _, col := range t.Columns() {
		if _, err := fmt.Fprintf(bw, "property %s %s\n", plyTypeName(col.Type()), col.Name()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "%s\n", headerEnd); err != nil {
		return err
	}

	if err := writeBody(bw, t.Columns(), t.NumRows()); err != nil {
		return err
	}
	return bw.Flush()
}

// writeBody emits the row-interleaved binary body, buffering bodyChunkRows
// rows at a time.
func writeBody(w io.Writer, cols []table.Column, n int) error {
	rowSize := 0
	for _, c := range cols {
		rowSize += c.Type().Size()
	}

	buf := make([]byte, rowSize*bodyChunkRows)
	for row := 0; row < n; row += bodyChunkRows {
		rows := min(bodyChunkRows, n-row)
		off := 0
		for r := 0; r < rows; r++ {
			for _, c := range cols {
				encodeValue(c, row+r, buf[off:])
				off += c.Type().Size()
			}
		}
		if _, err := w.Write(buf[:off]); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(col table.Column, row int, b []byte) {
	switch c := col.(type) {
	case *table.ColumnOf[int8]:
		b[0] = byte(c.Data[row])
	case *table.ColumnOf[uint8]:
		b[0] = c.Data[row]
	case *table.ColumnOf[int16]:
		binary.LittleEndian.PutUint16(b, uint16(c.Data[row]))
	case *table.ColumnOf[uint16]:
		binary.LittleEndian.PutUint16(b, c.Data[row])
	case *table.ColumnOf[int32]:
		binary.LittleEndian.PutUint32(b, uint32(c.Data[row]))
	case *table.ColumnOf[uint32]:
		binary.LittleEndian.PutUint32(b, c.Data[row])
	case *table.ColumnOf[float32]:
		binary.LittleEndian.PutUint32(b, math.Float32bits(c.Data[row]))
	case *table.ColumnOf[float64]:
		binary.LittleEndian.PutUint64(b, math.Float64bits(c.Data[row]))
	}
}
