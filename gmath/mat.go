package gmath

// Mat3 is a row-major 3x3 matrix. M[r][c] is row r, column c, and points
// transform as column vectors: p' = M * p.
type Mat3 [3][3]float64

// Mat3FromQuat converts a unit quaternion to its rotation matrix.
func Mat3FromQuat(q Quat) Mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// MulVec returns m * v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transpose returns the transposed matrix (the inverse for rotations).
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

// Mat4 is a row-major 4x4 affine transform.
type Mat4 [4][4]float64

// Mat4Identity returns the identity transform.
func Mat4Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// SetTRS composes translation t, rotation q and uniform scale s so that
// points transform as p' = R*(s*p) + t.
func SetTRS(t Vec3, q Quat, s float64) Mat4 {
	r := Mat3FromQuat(q)
	return Mat4{
		{r[0][0] * s, r[0][1] * s, r[0][2] * s, t.X},
		{r[1][0] * s, r[1][1] * s, r[1][2] * s, t.Y},
		{r[2][0] * s, r[2][1] * s, r[2][2] * s, t.Z},
		{0, 0, 0, 1},
	}
}

// TransformPoint applies the affine transform to p.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}
