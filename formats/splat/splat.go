// Package splat reads and writes the antimatter15 .splat layout: 32 bytes
// per record holding position, linear scale, byte color and a byte-quantized
// quaternion.
package splat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

// recordSize is the fixed per-splat byte width.
const recordSize = 32

// ErrBadLength is returned when the stream length is not a whole number of
// records.
var ErrBadLength = errors.New("splat: length is not a multiple of 32")

// Read decodes a .splat stream into a Gaussian table.
func Read(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(bufio.NewReaderSize(r, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("splat: %w", err)
	}
	if len(data)%recordSize != 0 {
		return nil, ErrBadLength
	}
	n := len(data) / recordSize

	names := []string{
		"x", "y", "z",
		"scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
		"f_dc_0", "f_dc_1", "f_dc_2",
		"opacity",
	}
	cols := make(map[string][]float32, len(names))
	list := make([]table.Column, 0, len(names))
	for _, name := range names {
		d := make([]float32, n)
		cols[name] = d
		list = append(list, table.NewColumn(name, d))
	}

	for i := 0; i < n; i++ {
		rec := data[i*recordSize:]

		cols["x"][i] = math.Float32frombits(binary.LittleEndian.Uint32(rec[0:]))
		cols["y"][i] = math.Float32frombits(binary.LittleEndian.Uint32(rec[4:]))
		cols["z"][i] = math.Float32frombits(binary.LittleEndian.Uint32(rec[8:]))

		// Stored scales are linear; the table carries log-scale.
		cols["scale_0"][i] = math32.Log(math.Float32frombits(binary.LittleEndian.Uint32(rec[12:])))
		cols["scale_1"][i] = math32.Log(math.Float32frombits(binary.LittleEndian.Uint32(rec[16:])))
		cols["scale_2"][i] = math32.Log(math.Float32frombits(binary.LittleEndian.Uint32(rec[20:])))

		cols["f_dc_0"][i] = byteToDC(rec[24])
		cols["f_dc_1"][i] = byteToDC(rec[25])
		cols["f_dc_2"][i] = byteToDC(rec[26])
		cols["opacity"][i] = float32(gmath.InvSigmoid(float64(rec[27]) / 255))

		q := gmath.Quat{
			W: float64(rec[28])/127.5 - 1,
			X: float64(rec[29])/127.5 - 1,
			Y: float64(rec[30])/127.5 - 1,
			Z: float64(rec[31])/127.5 - 1,
		}.Normalize() // zero length becomes the identity
		cols["rot_0"][i] = float32(q.W)
		cols["rot_1"][i] = float32(q.X)
		cols["rot_2"][i] = float32(q.Y)
		cols["rot_3"][i] = float32(q.Z)
	}

	return table.New(list...)
}

// Write encodes a Gaussian table as .splat records. Spherical-harmonic rest
// coefficients are not representable and are dropped.
func Write(w io.Writer, t *table.Table) error {
	if err := table.CheckGaussian(t); err != nil {
		return err
	}

	get := func(name string) []float32 { return table.Float32Data(t.Column(name)) }
	x, y, z := get("x"), get("y"), get("z")
	s0, s1, s2 := get("scale_0"), get("scale_1"), get("scale_2")
	r0, r1, r2, r3 := get("rot_0"), get("rot_1"), get("rot_2"), get("rot_3")
	d0, d1, d2 := get("f_dc_0"), get("f_dc_1"), get("f_dc_2")
	op := get("opacity")
	for _, s := range [][]float32{x, y, z, s0, s1, s2, r0, r1, r2, r3, d0, d1, d2, op} {
		if s == nil {
			return fmt.Errorf("splat: write requires float32 gaussian columns")
		}
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	var rec [recordSize]byte
	for i := 0; i < t.NumRows(); i++ {
		binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(x[i]))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(y[i]))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(z[i]))
		binary.LittleEndian.PutUint32(rec[12:], math.Float32bits(math32.Exp(s0[i])))
		binary.LittleEndian.PutUint32(rec[16:], math.Float32bits(math32.Exp(s1[i])))
		binary.LittleEndian.PutUint32(rec[20:], math.Float32bits(math32.Exp(s2[i])))

		rec[24] = dcToByte(d0[i])
		rec[25] = dcToByte(d1[i])
		rec[26] = dcToByte(d2[i])
		rec[27] = byte(clamp(gmath.Sigmoid(float64(op[i]))*255+0.5, 0, 255))

		q := gmath.Quat{W: float64(r0[i]), X: float64(r1[i]), Y: float64(r2[i]), Z: float64(r3[i])}.Normalize()
		rec[28] = quatByte(q.W)
		rec[29] = quatByte(q.X)
		rec[30] = quatByte(q.Y)
		rec[31] = quatByte(q.Z)

		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func byteToDC(b byte) float32 {
	return float32((float64(b)/255 - 0.5) / gmath.C0)
}

func dcToByte(dc float32) byte {
	return byte(clamp((float64(dc)*gmath.C0+0.5)*255+0.5, 0, 255))
}

func quatByte(c float64) byte {
	return byte(clamp((c+1)*127.5+0.5, 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
