package gmath

import "math"

// SHRotation rotates real spherical-harmonic coefficient vectors by a fixed
// 3x3 rotation. The band matrices (3x3, 5x5, 7x7) are derived once from the
// rotation with the Ivanic-Ruedenberg recurrence; band 1 is exact (linear in
// the rotation matrix entries).
//
// Coefficient vectors are per channel, band-major with m ascending within a
// band: [l1(m=-1..1), l2(m=-2..2), l3(m=-3..3)], i.e. lengths 3, 8 or 15.
type SHRotation struct {
	band1 [][]float64 // 3x3
	band2 [][]float64 // 5x5
	band3 [][]float64 // 7x7
}

// NewSHRotation builds the band transforms for the rotation m.
func NewSHRotation(m Mat3) *SHRotation {
	// Band 1 permutes (x,y,z) into the real-SH order (y,z,x).
	band1 := [][]float64{
		{m[1][1], m[1][2], m[1][0]},
		{m[2][1], m[2][2], m[2][0]},
		{m[0][1], m[0][2], m[0][0]},
	}
	band2 := nextBand(2, band1, band1)
	band3 := nextBand(3, band1, band2)
	return &SHRotation{band1: band1, band2: band2, band3: band3}
}

// Apply rotates one channel's coefficient vector in place. The vector length
// selects the bands: 3 (band 1), 8 (bands 1-2) or 15 (bands 1-3).
func (r *SHRotation) Apply(coeffs []float32) {
	switch len(coeffs) {
	case 3:
		mulBand(r.band1, coeffs[0:3])
	case 8:
		mulBand(r.band1, coeffs[0:3])
		mulBand(r.band2, coeffs[3:8])
	case 15:
		mulBand(r.band1, coeffs[0:3])
		mulBand(r.band2, coeffs[3:8])
		mulBand(r.band3, coeffs[8:15])
	}
}

func mulBand(m [][]float64, v []float32) {
	var tmp [7]float64
	n := len(v)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += m[i][j] * float64(v[j])
		}
		tmp[i] = sum
	}
	for i := 0; i < n; i++ {
		v[i] = float32(tmp[i])
	}
}

// nextBand derives the band-l matrix from the band-1 and band-(l-1)
// matrices via the Ivanic-Ruedenberg recurrence. Matrices are indexed by
// m+l so that m, n run over [-l, l].
func nextBand(l int, r1, prev [][]float64) [][]float64 {
	size := 2*l + 1
	out := make([][]float64, size)
	for i := range out {
		out[i] = make([]float64, size)
	}

	fl := float64(l)
	for m := -l; m <= l; m++ {
		for n := -l; n <= l; n++ {
			var denom float64
			if abs(n) == l {
				denom = 2 * fl * (2*fl - 1)
			} else {
				denom = (fl + float64(n)) * (fl - float64(n))
			}

			u := math.Sqrt((fl + float64(m)) * (fl - float64(m)) / denom)
			var v, w float64
			if m == 0 {
				v = -0.5 * math.Sqrt(2*(fl-1)*fl/denom)
				w = 0
			} else {
				am := float64(abs(m))
				v = 0.5 * math.Sqrt((fl+am-1)*(fl+am)/denom)
				w = -0.5 * math.Sqrt((fl-am-1)*(fl-am)/denom)
			}

			var sum float64
			if u != 0 {
				sum += u * termU(l, m, n, r1, prev)
			}
			if v != 0 {
				sum += v * termV(l, m, n, r1, prev)
			}
			if w != 0 {
				sum += w * termW(l, m, n, r1, prev)
			}
			out[m+l][n+l] = sum
		}
	}
	return out
}

// termP evaluates the P helper: a product of a band-1 entry and a
// band-(l-1) entry, with the n = +/-l columns handled specially.
func termP(i, l, a, b int, r1, prev [][]float64) float64 {
	ri := func(j int) float64 { return r1[i+1][j+1] }
	pv := func(m, n int) float64 { return prev[m+l-1][n+l-1] }
	switch {
	case b == l:
		return ri(1)*pv(a, l-1) - ri(-1)*pv(a, -l+1)
	case b == -l:
		return ri(1)*pv(a, -l+1) + ri(-1)*pv(a, l-1)
	default:
		return ri(0) * pv(a, b)
	}
}

func termU(l, m, n int, r1, prev [][]float64) float64 {
	return termP(0, l, m, n, r1, prev)
}

func termV(l, m, n int, r1, prev [][]float64) float64 {
	switch {
	case m == 0:
		return termP(1, l, 1, n, r1, prev) + termP(-1, l, -1, n, r1, prev)
	case m > 0:
		p0 := termP(1, l, m-1, n, r1, prev)
		p1 := termP(-1, l, -(m - 1), n, r1, prev)
		if m == 1 {
			return p0 * math.Sqrt2
		}
		return p0 - p1
	default:
		p0 := termP(1, l, m+1, n, r1, prev)
		p1 := termP(-1, l, -(m + 1), n, r1, prev)
		if m == -1 {
			return p1 * math.Sqrt2
		}
		return p0 + p1
	}
}

func termW(l, m, n int, r1, prev [][]float64) float64 {
	if m > 0 {
		return termP(1, l, m+1, n, r1, prev) + termP(-1, l, -(m + 1), n, r1, prev)
	}
	// m < 0 (termW is never called with m == 0: its coefficient is zero).
	return termP(1, l, m-1, n, r1, prev) - termP(-1, l, -(m - 1), n, r1, prev)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
