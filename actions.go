package splatforge

import (
	"fmt"
	"math"

	"github.com/splatforge/splatforge/generate"
	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

// Action is one step of a per-file transform sequence. Actions apply
// left-to-right; geometric actions mutate the table in place, filters
// replace it.
type Action interface {
	Apply(t *table.Table) (*table.Table, error)
}

// Translate adds an offset to every position.
type Translate struct {
	Offset gmath.Vec3
}

// Apply implements Action.
func (a Translate) Apply(t *table.Table) (*table.Table, error) {
	return transformTRS(t, a.Offset, gmath.QuatIdentity, 1)
}

// Transform is a combined translate/rotate/scale with mat4 TRS semantics:
// positions transform as p' = R*(s*p) + t. Runs of Translate, Rotate and
// Scale actions merge into one Transform before application (see
// MergeActions).
type Transform struct {
	Offset   gmath.Vec3
	Rotation gmath.Quat
	Factor   float64
}

// Apply implements Action.
func (a Transform) Apply(t *table.Table) (*table.Table, error) {
	if a.Factor <= 0 {
		return nil, fmt.Errorf("%w: scale factor must be positive, got %g", ErrInvalidArgument, a.Factor)
	}
	return transformTRS(t, a.Offset, a.Rotation, a.Factor)
}

// MergeActions folds each maximal run of Translate/Rotate/Scale actions
// into a single Transform: offsets add, rotations compose, factors
// multiply. Filters and other actions break runs.
func MergeActions(actions []Action) []Action {
	var out []Action
	var pending *Transform
	flush := func() {
		if pending != nil {
			out = append(out, *pending)
			pending = nil
		}
	}
	start := func() *Transform {
		if pending == nil {
			pending = &Transform{Rotation: gmath.QuatIdentity, Factor: 1}
		}
		return pending
	}

	for _, a := range actions {
		switch a := a.(type) {
		case Translate:
			p := start()
			p.Offset = p.Offset.Add(a.Offset)
		case Rotate:
			p := start()
			q := gmath.QuatFromEulerDegrees(a.Degrees.X, a.Degrees.Y, a.Degrees.Z)
			p.Rotation = q.Mul(p.Rotation)
		case Scale:
			p := start()
			p.Factor *= a.Factor
		case Transform:
			p := start()
			p.Offset = p.Offset.Add(a.Offset)
			p.Rotation = a.Rotation.Mul(p.Rotation)
			p.Factor *= a.Factor
		default:
			flush()
			out = append(out, a)
		}
	}
	flush()
	return out
}

// Rotate rotates the scene by Euler angles in degrees (X, then Y, then Z):
// positions, row quaternions and spherical harmonics all turn together.
type Rotate struct {
	Degrees gmath.Vec3
}

// Apply implements Action.
func (a Rotate) Apply(t *table.Table) (*table.Table, error) {
	q := gmath.QuatFromEulerDegrees(a.Degrees.X, a.Degrees.Y, a.Degrees.Z)
	return transformTRS(t, gmath.Vec3{}, q, 1)
}

// Scale scales positions uniformly and shifts log-scales by ln(s).
type Scale struct {
	Factor float64
}

// Apply implements Action.
func (a Scale) Apply(t *table.Table) (*table.Table, error) {
	if a.Factor <= 0 {
		return nil, fmt.Errorf("%w: scale factor must be positive, got %g", ErrInvalidArgument, a.Factor)
	}
	return transformTRS(t, gmath.Vec3{}, gmath.QuatIdentity, a.Factor)
}

// transformTRS applies p' = R*(s*p) + t, left-multiplies row quaternions
// and rotates SH coefficients.
func transformTRS(t *table.Table, offset gmath.Vec3, q gmath.Quat, s float64) (*table.Table, error) {
	if err := table.CheckGaussian(t); err != nil {
		return nil, err
	}
	bands, err := table.SHBands(t)
	if err != nil {
		return nil, err
	}

	get := func(name string) []float32 { return table.Float32Data(t.Column(name)) }
	x, y, z := get("x"), get("y"), get("z")
	s0, s1, s2 := get("scale_0"), get("scale_1"), get("scale_2")
	r0, r1, r2, r3 := get("rot_0"), get("rot_1"), get("rot_2"), get("rot_3")
	for _, c := range [][]float32{x, y, z, s0, s1, s2, r0, r1, r2, r3} {
		if c == nil {
			return nil, fmt.Errorf("transform requires float32 gaussian columns")
		}
	}

	m := gmath.SetTRS(offset, q, s)
	rotating := q != gmath.QuatIdentity
	scaling := s != 1
	lnS := float32(math.Log(s))

	for i := range x {
		p := m.TransformPoint(gmath.Vec3{X: float64(x[i]), Y: float64(y[i]), Z: float64(z[i])})
		x[i], y[i], z[i] = float32(p.X), float32(p.Y), float32(p.Z)
	}

	if scaling {
		for i := range s0 {
			s0[i] += lnS
			s1[i] += lnS
			s2[i] += lnS
		}
	}

	if rotating {
		for i := range r0 {
			row := gmath.Quat{W: float64(r0[i]), X: float64(r1[i]), Y: float64(r2[i]), Z: float64(r3[i])}
			out := q.Mul(row)
			r0[i], r1[i], r2[i], r3[i] = float32(out.W), float32(out.X), float32(out.Y), float32(out.Z)
		}

		if bands > 0 {
			rest := table.RestData(t, bands)
			if rest == nil {
				return nil, fmt.Errorf("transform requires float32 f_rest columns")
			}
			coeffs := table.CoeffsForBand(bands)
			sh := gmath.NewSHRotation(gmath.Mat3FromQuat(q))
			vec := make([]float32, coeffs)
			for i := range x {
				for ch := 0; ch < 3; ch++ {
					for j := 0; j < coeffs; j++ {
						vec[j] = rest[ch*coeffs+j][i]
					}
					sh.Apply(vec)
					for j := 0; j < coeffs; j++ {
						rest[ch*coeffs+j][i] = vec[j]
					}
				}
			}
		}
	}

	return t, nil
}

// FilterNaN drops rows containing non-finite values, with two tolerated
// exceptions: infinite opacity (fully transparent or opaque) and
// negative-infinite log-scales (zero linear scale).
type FilterNaN struct{}

// Apply implements Action.
func (FilterNaN) Apply(t *table.Table) (*table.Table, error) {
	cols := t.Columns()
	type floatCol struct {
		data      []float32
		data64    []float64
		allowPInf bool
		allowNInf bool
	}
	var checks []floatCol
	for _, c := range cols {
		name := c.Name()
		isOpacity := name == "opacity"
		isScale := name == "scale_0" || name == "scale_1" || name == "scale_2"
		switch c.Type() {
		case table.Float32:
			checks = append(checks, floatCol{
				data:      table.Float32Data(c),
				allowPInf: isOpacity,
				allowNInf: isOpacity || isScale,
			})
		case table.Float64:
			checks = append(checks, floatCol{
				data64:    table.Float64Data(c),
				allowPInf: isOpacity,
				allowNInf: isOpacity || isScale,
			})
		}
	}

	ok := func(v float64, c *floatCol) bool {
		if math.IsNaN(v) {
			return false
		}
		if math.IsInf(v, 1) {
			return c.allowPInf
		}
		if math.IsInf(v, -1) {
			return c.allowNInf
		}
		return true
	}

	return t.Filter(func(i int) bool {
		for idx := range checks {
			c := &checks[idx]
			if c.data != nil {
				if !ok(float64(c.data[i]), c) {
					return false
				}
			} else if !ok(c.data64[i], c) {
				return false
			}
		}
		return true
	}), nil
}

// Comparators accepted by FilterByValue.
const (
	CmpLT  = "lt"
	CmpLTE = "lte"
	CmpGT  = "gt"
	CmpGTE = "gte"
	CmpEQ  = "eq"
	CmpNEQ = "neq"
)

// FilterByValue keeps rows where column Cmp Value holds. An unknown column
// keeps every row.
type FilterByValue struct {
	Column string
	Cmp    string
	Value  float64
}

// Apply implements Action.
func (a FilterByValue) Apply(t *table.Table) (*table.Table, error) {
	var pred func(v float64) bool
	switch a.Cmp {
	case CmpLT:
		pred = func(v float64) bool { return v < a.Value }
	case CmpLTE:
		pred = func(v float64) bool { return v <= a.Value }
	case CmpGT:
		pred = func(v float64) bool { return v > a.Value }
	case CmpGTE:
		pred = func(v float64) bool { return v >= a.Value }
	case CmpEQ:
		pred = func(v float64) bool { return v == a.Value }
	case CmpNEQ:
		pred = func(v float64) bool { return v != a.Value }
	default:
		return nil, fmt.Errorf("%w: unknown comparator %q", ErrInvalidArgument, a.Cmp)
	}

	col := t.Column(a.Column)
	if col == nil {
		return t, nil
	}
	return t.Filter(func(i int) bool { return pred(col.Get(i)) }), nil
}

// FilterBands reduces the table's spherical harmonics to at most Bands,
// renumbering the retained coefficients into channel-major order.
type FilterBands struct {
	Bands int
}

// Apply implements Action.
func (a FilterBands) Apply(t *table.Table) (*table.Table, error) {
	if a.Bands < 0 || a.Bands > 3 {
		return nil, fmt.Errorf("%w: band count %d (want 0-3)", ErrInvalidArgument, a.Bands)
	}
	bands, err := table.SHBands(t)
	if err != nil {
		return nil, err
	}
	if bands <= a.Bands {
		return t, nil
	}

	oldCoeffs := table.CoeffsForBand(bands)
	newCoeffs := table.CoeffsForBand(a.Bands)
	rest := table.RestData(t, bands)
	if rest == nil {
		return nil, fmt.Errorf("band filter requires float32 f_rest columns")
	}

	kept := make([][]float32, 3*newCoeffs)
	for ch := 0; ch < 3; ch++ {
		for j := 0; j < newCoeffs; j++ {
			kept[ch*newCoeffs+j] = rest[ch*oldCoeffs+j]
		}
	}
	for i := 0; i < 3*oldCoeffs; i++ {
		t.RemoveColumn(fmt.Sprintf("f_rest_%d", i))
	}
	for i, data := range kept {
		if err := t.AddColumn(table.NewColumn(fmt.Sprintf("f_rest_%d", i), data)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Param carries generator parameters; the core pipeline ignores it.
type Param struct {
	Values generate.Params
}

// Apply implements Action.
func (Param) Apply(t *table.Table) (*table.Table, error) { return t, nil }
