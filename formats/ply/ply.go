// Package ply reads and writes the standard Gaussian-splat PLY file and the
// PlayCanvas chunked compressed variant. Only binary little-endian 1.0
// bodies are supported; headers are capped at 128 KiB and comments survive a
// read/write round trip.
package ply

import (
	"errors"
	"fmt"

	"github.com/splatforge/splatforge/table"
)

const (
	magic        = "ply\n"
	formatLine   = "format binary_little_endian 1.0"
	headerEnd    = "end_header"
	maxHeaderLen = 128 * 1024

	// bodyChunkRows is how many rows readers and writers buffer at a time;
	// a PLY body is never materialized as one allocation.
	bodyChunkRows = 1024
)

var (
	// ErrBadMagic is returned when the stream does not start with "ply\n".
	ErrBadMagic = errors.New("ply: bad magic")
	// ErrHeaderTooLarge is returned when no end_header appears within 128 KiB.
	ErrHeaderTooLarge = errors.New("ply: header exceeds 128 KiB")
	// ErrUnsupportedEncoding is returned for ASCII or big-endian bodies.
	ErrUnsupportedEncoding = errors.New("ply: only binary_little_endian 1.0 is supported")
	// ErrNotSingleVertex is returned when a standard PLY carries anything
	// other than a single vertex element.
	ErrNotSingleVertex = errors.New("ply: expected a single vertex element")
)

// ErrBadHeader reports an unparseable header line.
type ErrBadHeader struct {
	Line string
}

func (e *ErrBadHeader) Error() string { return fmt.Sprintf("ply: bad header line %q", e.Line) }

// Property describes one column of an element.
type Property struct {
	Name string
	Type table.Type
}

// Element describes one element declaration.
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// Header is a parsed PLY header.
type Header struct {
	Comments []string
	Elements []Element
}

// typeNames maps PLY property type names onto table element types.
var typeNames = map[string]table.Type{
	"char":   table.Int8,
	"uchar":  table.Uint8,
	"short":  table.Int16,
	"ushort": table.Uint16,
	"int":    table.Int32,
	"uint":   table.Uint32,
	"float":  table.Float32,
	"double": table.Float64,
}

// plyTypeName is the inverse of typeNames.
func plyTypeName(t table.Type) string {
	switch t {
	case table.Int8:
		return "char"
	case table.Uint8:
		return "uchar"
	case table.Int16:
		return "short"
	case table.Uint16:
		return "ushort"
	case table.Int32:
		return "int"
	case table.Uint32:
		return "uint"
	case table.Float32:
		return "float"
	case table.Float64:
		return "double"
	default:
		return "float"
	}
}

// rowSize returns the packed byte width of one element row.
func (e *Element) rowSize() int {
	size := 0
	for _, p := range e.Properties {
		size += p.Type.Size()
	}
	return size
}
