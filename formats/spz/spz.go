// Package spz reads the Niantic .spz format: a gzip-wrapped fixed-layout
// binary holding 24-bit fixed-point positions, byte-quantized scales, colors
// and opacities, compressed rotations and optional spherical harmonics.
package spz

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

const (
	// magic is "NGSP" little-endian.
	magic      = 0x5053474e
	headerSize = 16

	// colorScale is the SPZ-specific color normalization; unrelated to the
	// SH band-0 constant.
	colorScale = 0.15
)

var (
	// ErrBadMagic is returned when the header magic is not NGSP.
	ErrBadMagic = errors.New("spz: bad magic")
	// ErrBadVersion is returned for versions other than 2 or 3.
	ErrBadVersion = errors.New("spz: unsupported version")
	// ErrBadSHDegree is returned for a harmonics degree above 3.
	ErrBadSHDegree = errors.New("spz: unsupported spherical harmonics degree")
	// ErrShort is returned when the body ends before all fields.
	ErrShort = errors.New("spz: short body")
)

// header is the fixed 16-byte SPZ header.
type header struct {
	version        uint32
	numPoints      int
	shDegree       int
	fractionalBits int
	flags          byte
}

// Read decodes an .spz stream. A leading gzip magic (1F 8B) unwraps
// transparently.
func Read(r io.Reader) (*table.Table, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(2)
	if err == nil && head[0] == 0x1F && head[1] == 0x8B {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("spz: gzip: %w", err)
		}
		defer gz.Close()
		return decode(gz)
	}
	return decode(br)
}

func decode(r io.Reader) (*table.Table, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("spz: header: %w", err)
	}
	if binary.LittleEndian.Uint32(raw[0:]) != magic {
		return nil, ErrBadMagic
	}
	h := header{
		version:        binary.LittleEndian.Uint32(raw[4:]),
		numPoints:      int(binary.LittleEndian.Uint32(raw[8:])),
		shDegree:       int(raw[12]),
		fractionalBits: int(raw[13]),
		flags:          raw[14],
	}
	if h.version != 2 && h.version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.version)
	}
	if h.shDegree > 3 {
		return nil, fmt.Errorf("%w: %d", ErrBadSHDegree, h.shDegree)
	}

	n := h.numPoints
	dim := table.CoeffsForBand(h.shDegree)

	read := func(size int) ([]byte, error) {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShort, err)
		}
		return buf, nil
	}

	positions, err := read(n * 9)
	if err != nil {
		return nil, err
	}
	alphas, err := read(n)
	if err != nil {
		return nil, err
	}
	colors, err := read(n * 3)
	if err != nil {
		return nil, err
	}
	scales, err := read(n * 3)
	if err != nil {
		return nil, err
	}
	rotSize := 3
	if h.version == 3 {
		rotSize = 4
	}
	rotations, err := read(n * rotSize)
	if err != nil {
		return nil, err
	}
	var sh []byte
	if dim > 0 {
		sh, err = read(n * dim * 3)
		if err != nil {
			return nil, err
		}
	}

	names := []string{
		"x", "y", "z",
		"scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
		"f_dc_0", "f_dc_1", "f_dc_2",
		"opacity",
	}
	cols := make(map[string][]float32, len(names))
	list := make([]table.Column, 0, len(names)+3*dim)
	for _, name := range names {
		d := make([]float32, n)
		cols[name] = d
		list = append(list, table.NewColumn(name, d))
	}
	rest := make([][]float32, 3*dim)
	for i := range rest {
		rest[i] = make([]float32, n)
		list = append(list, table.NewColumn(fmt.Sprintf("f_rest_%d", i), rest[i]))
	}

	posScale := 1 / float32(uint32(1)<<h.fractionalBits)
	for i := 0; i < n; i++ {
		cols["x"][i] = float32(int24(positions[i*9:])) * posScale
		cols["y"][i] = float32(int24(positions[i*9+3:])) * posScale
		cols["z"][i] = float32(int24(positions[i*9+6:])) * posScale

		cols["opacity"][i] = float32(gmath.InvSigmoid(float64(alphas[i]) / 255))

		for c := 0; c < 3; c++ {
			cols[[3]string{"f_dc_0", "f_dc_1", "f_dc_2"}[c]][i] =
				(float32(colors[i*3+c])/255 - 0.5) / colorScale
			cols[[3]string{"scale_0", "scale_1", "scale_2"}[c]][i] =
				float32(scales[i*3+c])/16 - 10
		}

		var q gmath.Quat
		if h.version == 3 {
			q = unpackRotationV3(binary.LittleEndian.Uint32(rotations[i*4:]))
		} else {
			q = unpackRotationV2(rotations[i*3], rotations[i*3+1], rotations[i*3+2])
		}
		cols["rot_0"][i] = float32(q.W)
		cols["rot_1"][i] = float32(q.X)
		cols["rot_2"][i] = float32(q.Y)
		cols["rot_3"][i] = float32(q.Z)

		// File order is coefficient-major with the channel fastest; the
		// table's f_rest layout is channel-major.
		for j := 0; j < dim; j++ {
			for c := 0; c < 3; c++ {
				rest[c*dim+j][i] = float32(sh[(i*dim+j)*3+c])/128 - 1
			}
		}
	}

	return table.New(list...)
}

// int24 sign-extends a little-endian 24-bit value.
func int24(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}

// unpackRotationV2 reconstructs w from the stored (x, y, z).
func unpackRotationV2(bx, by, bz byte) gmath.Quat {
	x := float64(bx)/127.5 - 1
	y := float64(by)/127.5 - 1
	z := float64(bz)/127.5 - 1
	w2 := 1 - x*x - y*y - z*z
	if w2 < 0 {
		w2 = 0
	}
	return gmath.Quat{W: math.Sqrt(w2), X: x, Y: y, Z: z}
}

// unpackRotationV3 decodes the 32-bit smallest-three packing: a 2-bit index
// of the omitted component over (x, y, z, w), then three 10-bit fields of 9
// magnitude bits and a sign bit.
func unpackRotationV3(packed uint32) gmath.Quat {
	largest := int(packed >> 30)

	var comps [4]float64 // x, y, z, w
	shift := 20
	sumSq := 0.0
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		field := (packed >> shift) & 0x3FF
		mag := float64(field&0x1FF) / 511 / math.Sqrt2
		if field&0x200 != 0 {
			mag = -mag
		}
		comps[i] = mag
		sumSq += mag * mag
		shift -= 10
	}
	rest := 1 - sumSq
	if rest < 0 {
		rest = 0
	}
	comps[largest] = math.Sqrt(rest)
	return gmath.Quat{W: comps[3], X: comps[0], Y: comps[1], Z: comps[2]}
}
