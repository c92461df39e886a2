package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/morton"
	"github.com/splatforge/splatforge/table"
)

// chunkSize is the number of splats per compressed chunk.
const chunkSize = 256

// scaleClamp bounds log-scales before quantization.
const scaleClamp = 20

// numChunkProperties must match the length of chunkProperties.
const numChunkProperties = 18

var chunkProperties = []string{
	"min_x", "min_y", "min_z", "max_x", "max_y", "max_z",
	"min_scale_x", "min_scale_y", "min_scale_z",
	"max_scale_x", "max_scale_y", "max_scale_z",
	"min_r", "min_g", "min_b", "max_r", "max_g", "max_b",
}

var packedProperties = []string{
	"packed_position", "packed_rotation", "packed_scale", "packed_color",
}

// isCompressed reports whether the header describes the PlayCanvas
// compressed variant: a chunk element plus packed vertex properties.
func isCompressed(h *Header) bool {
	var hasChunk, hasPacked bool
	for _, el := range h.Elements {
		if el.Name == "chunk" {
			hasChunk = true
		}
		if el.Name == "vertex" {
			for _, p := range el.Properties {
				if p.Name == "packed_position" {
					hasPacked = true
				}
			}
		}
	}
	return hasChunk && hasPacked
}

// chunkHeader carries one chunk's quantization ranges.
type chunkHeader [numChunkProperties]float32

// WriteCompressed Morton-orders the Gaussian table and emits the chunked
// bit-packed PLY variant. Spherical-harmonic rest coefficients are not
// representable in this format and are dropped.
func WriteCompressed(w io.Writer, t *table.Table) error {
	if err := table.CheckGaussian(t); err != nil {
		return err
	}

	x := table.Float32Data(t.Column("x"))
	y := table.Float32Data(t.Column("y"))
	z := table.Float32Data(t.Column("z"))
	if x == nil || y == nil || z == nil {
		return fmt.Errorf("ply: compressed write requires float32 position columns")
	}
	ordered := t.Permute(morton.Order(x, y, z))

	n := ordered.NumRows()
	numChunks := (n + chunkSize - 1) / chunkSize
	headers := make([]chunkHeader, numChunks)
	packed := make([]uint32, n*4)

	cols := coreColumns{
		x:  table.Float32Data(ordered.Column("x")),
		y:  table.Float32Data(ordered.Column("y")),
		z:  table.Float32Data(ordered.Column("z")),
		sx: table.Float32Data(ordered.Column("scale_0")),
		sy: table.Float32Data(ordered.Column("scale_1")),
		sz: table.Float32Data(ordered.Column("scale_2")),
		r:  table.Float32Data(ordered.Column("f_dc_0")),
		g:  table.Float32Data(ordered.Column("f_dc_1")),
		b:  table.Float32Data(ordered.Column("f_dc_2")),
		w0: table.Float32Data(ordered.Column("rot_0")),
		w1: table.Float32Data(ordered.Column("rot_1")),
		w2: table.Float32Data(ordered.Column("rot_2")),
		w3: table.Float32Data(ordered.Column("rot_3")),
		op: table.Float32Data(ordered.Column("opacity")),
	}
	if !cols.valid() {
		return fmt.Errorf("ply: compressed write requires float32 gaussian columns")
	}

	// Chunks are independent; encode them concurrently into disjoint
	// output ranges so the result stays deterministic.
	var g errgroup.Group
	for c := 0; c < numChunks; c++ {
		g.Go(func() error {
			lo := c * chunkSize
			hi := min(lo+chunkSize, n)
			encodeChunk(&cols, lo, hi, &headers[c], packed[lo*4:hi*4])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := fmt.Fprintf(bw, "%s%s\n", magic, formatLine); err != nil {
		return err
	}
	for _, c := range t.Comments {
		if _, err := fmt.Fprintf(bw, "comment %s\n", c); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "element chunk %d\n", numChunks); err != nil {
		return err
	}
	for _, p := range chunkProperties {
		if _, err := fmt.Fprintf(bw, "property float %s\n", p); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "element vertex %d\n", n); err != nil {
		return err
	}
	for _, p := range packedProperties {
		if _, err := fmt.Fprintf(bw, "property uint %s\n", p); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "%s\n", headerEnd); err != nil {
		return err
	}

	var scratch [4]byte
	for c := range headers {
		for _, v := range headers[c] {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			if _, err := bw.Write(scratch[:]); err != nil {
				return err
			}
		}
	}
	for _, v := range packed {
		binary.LittleEndian.PutUint32(scratch[:], v)
		if _, err := bw.Write(scratch[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type coreColumns struct {
	x, y, z          []float32
	sx, sy, sz       []float32
	r, g, b          []float32
	w0, w1, w2, w3   []float32
	op               []float32
}

func (c *coreColumns) valid() bool {
	for _, s := range [][]float32{c.x, c.y, c.z, c.sx, c.sy, c.sz, c.r, c.g, c.b, c.w0, c.w1, c.w2, c.w3, c.op} {
		if s == nil {
			return false
		}
	}
	return true
}

func clampScale(v float32) float32 {
	if v < -scaleClamp {
		return -scaleClamp
	}
	if v > scaleClamp {
		return scaleClamp
	}
	return v
}

// colorValue biases a DC coefficient into the packable range.
func colorValue(dc float32) float32 {
	return dc*float32(gmath.C0) + 0.5
}

func encodeChunk(cols *coreColumns, lo, hi int, hdr *chunkHeader, out []uint32) {
	type rng struct{ min, max float32 }
	initRange := func() rng { return rng{min: math32.Inf(1), max: math32.Inf(-1)} }
	grow := func(r *rng, v float32) {
		if v < r.min {
			r.min = v
		}
		if v > r.max {
			r.max = v
		}
	}

	var px, py, pz, sx, sy, sz, cr, cg, cb rng
	for _, r := range []*rng{&px, &py, &pz, &sx, &sy, &sz, &cr, &cg, &cb} {
		*r = initRange()
	}
	for i := lo; i < hi; i++ {
		grow(&px, cols.x[i])
		grow(&py, cols.y[i])
		grow(&pz, cols.z[i])
		grow(&sx, clampScale(cols.sx[i]))
		grow(&sy, clampScale(cols.sy[i]))
		grow(&sz, clampScale(cols.sz[i]))
		grow(&cr, colorValue(cols.r[i]))
		grow(&cg, colorValue(cols.g[i]))
		grow(&cb, colorValue(cols.b[i]))
	}

	*hdr = chunkHeader{
		px.min, py.min, pz.min, px.max, py.max, pz.max,
		sx.min, sy.min, sz.min, sx.max, sy.max, sz.max,
		cr.min, cg.min, cb.min, cr.max, cg.max, cb.max,
	}

	norm := func(v float32, r rng) float32 {
		if r.max <= r.min {
			return 0
		}
		return (v - r.min) / (r.max - r.min)
	}

	for i := lo; i < hi; i++ {
		j := (i - lo) * 4
		out[j+0] = pack111011(norm(cols.x[i], px), norm(cols.y[i], py), norm(cols.z[i], pz))
		out[j+1] = packRotation(cols.w0[i], cols.w1[i], cols.w2[i], cols.w3[i])
		out[j+2] = pack111011(
			norm(clampScale(cols.sx[i]), sx),
			norm(clampScale(cols.sy[i]), sy),
			norm(clampScale(cols.sz[i]), sz),
		)
		out[j+3] = pack8888(
			norm(colorValue(cols.r[i]), cr),
			norm(colorValue(cols.g[i]), cg),
			norm(colorValue(cols.b[i]), cb),
			float32(gmath.Sigmoid(float64(cols.op[i]))),
		)
	}
}

func packUnorm(v float32, bits int) uint32 {
	scale := float32(uint32(1)<<bits - 1)
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return uint32(v*scale + 0.5)
}

func pack111011(x, y, z float32) uint32 {
	return packUnorm(x, 11)<<21 | packUnorm(y, 10)<<11 | packUnorm(z, 11)
}

func pack8888(r, g, b, a float32) uint32 {
	return packUnorm(r, 8)<<24 | packUnorm(g, 8)<<16 | packUnorm(b, 8)<<8 | packUnorm(a, 8)
}

// packRotation encodes a quaternion in smallest-three form: the index of the
// largest-magnitude component in the top two bits, the remaining three
// components (sign-adjusted so the largest is positive, scaled by sqrt 2 and
// biased to [0,1]) in 10-bit fields.
func packRotation(w, x, y, z float32) uint32 {
	q := gmath.Quat{W: float64(w), X: float64(x), Y: float64(y), Z: float64(z)}.Normalize()
	comps := [4]float64{q.W, q.X, q.Y, q.Z}

	largest := 0
	for i := 1; i < 4; i++ {
		if math.Abs(comps[i]) > math.Abs(comps[largest]) {
			largest = i
		}
	}
	if comps[largest] < 0 {
		for i := range comps {
			comps[i] = -comps[i]
		}
	}

	packed := uint32(largest) << 30
	shift := 20
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		v := float32(comps[i]*math.Sqrt2*0.5 + 0.5)
		packed |= packUnorm(v, 10) << shift
		shift -= 10
	}
	return packed
}

// readCompressed decodes the chunked variant back into a standard Gaussian
// table of float32 columns.
func readCompressed(br *bufio.Reader, h *Header) (*table.Table, error) {
	var chunkEl, vertexEl *Element
	for i := range h.Elements {
		switch h.Elements[i].Name {
		case "chunk":
			chunkEl = &h.Elements[i]
		case "vertex":
			vertexEl = &h.Elements[i]
		}
	}
	if chunkEl == nil || vertexEl == nil {
		return nil, &ErrBadHeader{Line: "missing chunk or vertex element"}
	}

	chunkTbl, err := readElement(br, chunkEl)
	if err != nil {
		return nil, err
	}
	vertexTbl, err := readElement(br, vertexEl)
	if err != nil {
		return nil, err
	}

	chunks := make(map[string][]float32, len(chunkProperties))
	for _, name := range chunkProperties {
		data := table.Float32Data(chunkTbl.Column(name))
		if data == nil {
			return nil, &ErrBadHeader{Line: "chunk property " + name}
		}
		chunks[name] = data
	}
	var packed [4][]uint32
	for i, name := range packedProperties {
		col := vertexTbl.Column(name)
		if col == nil {
			return nil, &ErrBadHeader{Line: "vertex property " + name}
		}
		u, ok := col.(*table.ColumnOf[uint32])
		if !ok {
			return nil, &ErrBadHeader{Line: "vertex property " + name}
		}
		packed[i] = u.Data
	}

	n := vertexEl.Count
	names := []string{
		"x", "y", "z",
		"scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
		"f_dc_0", "f_dc_1", "f_dc_2",
		"opacity",
	}
	out := make(map[string][]float32, len(names))
	colList := make([]table.Column, 0, len(names))
	for _, name := range names {
		data := make([]float32, n)
		out[name] = data
		colList = append(colList, table.NewColumn(name, data))
	}

	if (n+chunkSize-1)/chunkSize > chunkEl.Count {
		return nil, &ErrBadHeader{Line: "chunk count does not cover vertices"}
	}

	lerp := func(min, max, t float32) float32 { return min + (max-min)*t }
	for i := 0; i < n; i++ {
		c := i / chunkSize

		pos := packed[0][i]
		out["x"][i] = lerp(chunks["min_x"][c], chunks["max_x"][c], unpackUnorm(pos>>21, 11))
		out["y"][i] = lerp(chunks["min_y"][c], chunks["max_y"][c], unpackUnorm(pos>>11, 10))
		out["z"][i] = lerp(chunks["min_z"][c], chunks["max_z"][c], unpackUnorm(pos, 11))

		w, xq, yq, zq := unpackRotation(packed[1][i])
		out["rot_0"][i] = w
		out["rot_1"][i] = xq
		out["rot_2"][i] = yq
		out["rot_3"][i] = zq

		sc := packed[2][i]
		out["scale_0"][i] = lerp(chunks["min_scale_x"][c], chunks["max_scale_x"][c], unpackUnorm(sc>>21, 11))
		out["scale_1"][i] = lerp(chunks["min_scale_y"][c], chunks["max_scale_y"][c], unpackUnorm(sc>>11, 10))
		out["scale_2"][i] = lerp(chunks["min_scale_z"][c], chunks["max_scale_z"][c], unpackUnorm(sc, 11))

		col := packed[3][i]
		out["f_dc_0"][i] = (lerp(chunks["min_r"][c], chunks["max_r"][c], unpackUnorm(col>>24, 8)) - 0.5) / float32(gmath.C0)
		out["f_dc_1"][i] = (lerp(chunks["min_g"][c], chunks["max_g"][c], unpackUnorm(col>>16, 8)) - 0.5) / float32(gmath.C0)
		out["f_dc_2"][i] = (lerp(chunks["min_b"][c], chunks["max_b"][c], unpackUnorm(col>>8, 8)) - 0.5) / float32(gmath.C0)
		out["opacity"][i] = float32(gmath.InvSigmoid(float64(unpackUnorm(col, 8))))
	}

	tbl, err := table.New(colList...)
	if err != nil {
		return nil, err
	}
	tbl.Comments = h.Comments
	return tbl, nil
}

func unpackUnorm(v uint32, bits int) float32 {
	mask := uint32(1)<<bits - 1
	return float32(v&mask) / float32(mask)
}

// unpackRotation inverts packRotation, reconstructing the omitted component
// so the quaternion has unit norm.
func unpackRotation(packed uint32) (w, x, y, z float32) {
	largest := int(packed >> 30)
	const invNorm = math.Sqrt2

	var comps [4]float64
	shift := 20
	sumSq := 0.0
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		u := float64(unpackUnorm(packed>>shift, 10))
		c := (u - 0.5) * invNorm
		comps[i] = c
		sumSq += c * c
		shift -= 10
	}
	rest := 1 - sumSq
	if rest < 0 {
		rest = 0
	}
	comps[largest] = math.Sqrt(rest)
	return float32(comps[0]), float32(comps[1]), float32(comps[2]), float32(comps[3])
}
