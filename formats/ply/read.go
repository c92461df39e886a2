package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/splatforge/splatforge/table"
)

// Read decodes a PLY stream into a data table. The compressed PlayCanvas
// variant is detected by its property-name set and decompressed
// transparently.
func Read(r io.Reader) (*table.Table, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	header, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	if isCompressed(header) {
		return readCompressed(br, header)
	}

	if len(header.Elements) != 1 || header.Elements[0].Name != "vertex" {
		return nil, ErrNotSingleVertex
	}

	tbl, err := readElement(br, &header.Elements[0])
	if err != nil {
		return nil, err
	}
	tbl.Comments = header.Comments
	return tbl, nil
}

// readHeader parses the text header, stopping after end_header.
func readHeader(br *bufio.Reader) (*Header, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if string(head) != magic {
		return nil, ErrBadMagic
	}

	header := &Header{}
	formatSeen := false
	read := len(magic)
	for {
		line, err := br.ReadString('\n')
		read += len(line)
		if err != nil {
			return nil, fmt.Errorf("ply: truncated header: %w", err)
		}
		if read > maxHeaderLen {
			return nil, ErrHeaderTooLarge
		}
		line = strings.TrimRight(line, "\r\n")
		if line == headerEnd {
			break
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if line != formatLine {
				return nil, ErrUnsupportedEncoding
			}
			formatSeen = true
		case "comment":
			header.Comments = append(header.Comments, strings.TrimPrefix(strings.TrimPrefix(line, "comment"), " "))
		case "element":
			if len(fields) != 3 {
				return nil, &ErrBadHeader{Line: line}
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, &ErrBadHeader{Line: line}
			}
			header.Elements = append(header.Elements, Element{Name: fields[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, &ErrBadHeader{Line: line}
			}
			if len(fields) != 3 {
				// Includes "property list ...": list properties are not
				// part of the splat layout.
				return nil, &ErrBadHeader{Line: line}
			}
			typ, ok := typeNames[fields[1]]
			if !ok {
				return nil, &ErrBadHeader{Line: line}
			}
			el := &header.Elements[len(header.Elements)-1]
			el.Properties = append(el.Properties, Property{Name: fields[2], Type: typ})
		default:
			return nil, &ErrBadHeader{Line: line}
		}
	}
	if !formatSeen {
		return nil, ErrUnsupportedEncoding
	}
	return header, nil
}

// readElement decodes one element's row-interleaved body into a table,
// buffering bodyChunkRows rows at a time.
func readElement(br *bufio.Reader, el *Element) (*table.Table, error) {
	cols := make([]table.Column, len(el.Properties))
	for i, p := range el.Properties {
		cols[i] = table.NewColumnOfType(p.Name, p.Type, el.Count)
	}

	rowSize := el.rowSize()
	buf := make([]byte, rowSize*bodyChunkRows)
	for row := 0; row < el.Count; row += bodyChunkRows {
		rows := min(bodyChunkRows, el.Count-row)
		chunk := buf[:rows*rowSize]
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, fmt.Errorf("ply: short body read at row %d: %w", row, err)
		}
		off := 0
		for r := 0; r < rows; r++ {
			for i, p := range el.Properties {
				decodeValue(cols[i], row+r, p.Type, chunk[off:])
				off += p.Type.Size()
			}
		}
	}

	return table.New(cols...)
}

func decodeValue(col table.Column, row int, t table.Type, b []byte) {
	switch t {
	case table.Int8:
		col.(*table.ColumnOf[int8]).Data[row] = int8(b[0])
	case table.Uint8:
		col.(*table.ColumnOf[uint8]).Data[row] = b[0]
	case table.Int16:
		col.(*table.ColumnOf[int16]).Data[row] = int16(binary.LittleEndian.Uint16(b))
	case table.Uint16:
		col.(*table.ColumnOf[uint16]).Data[row] = binary.LittleEndian.Uint16(b)
	case table.Int32:
		col.(*table.ColumnOf[int32]).Data[row] = int32(binary.LittleEndian.Uint32(b))
	case table.Uint32:
		col.(*table.ColumnOf[uint32]).Data[row] = binary.LittleEndian.Uint32(b)
	case table.Float32:
		col.(*table.ColumnOf[float32]).Data[row] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case table.Float64:
		col.(*table.ColumnOf[float64]).Data[row] = math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}
