// Package gmath provides the small geometry kernels the format engine needs:
// 3-vectors, quaternions, 3x3 and 4x4 matrices, the opacity sigmoid pair and
// spherical-harmonic rotation. Everything computes in float64; column data
// stays float32 and is widened at the call site.
package gmath

import "math"

// C0 is the zero-band spherical harmonic normalization constant. Byte colors
// c recover their DC coefficient as (c/255 - 0.5) / C0.
const C0 = 0.28209479177387814

// Sigmoid maps a pre-sigmoid opacity to visible alpha in (0, 1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// InvSigmoid is the inverse of Sigmoid with the input clamped to
// [1e-6, 1-1e-6] so byte-quantized alphas stay finite.
func InvSigmoid(y float64) float64 {
	const eps = 1e-6
	if y < eps {
		y = eps
	} else if y > 1-eps {
		y = 1 - eps
	}
	return math.Log(y / (1 - y))
}

// Vec3 is a 3-component float64 vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }
