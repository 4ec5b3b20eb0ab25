// Package geom holds the small amount of rigid-body math the inflection
// targets need: row-major 4x4 affine matrices and Z-X-Y Euler conversions on
// top of gonum vectors and quaternions.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mat4 is a row-major homogeneous transform.
// Format: [[r00,r01,r02,tx], [r10,r11,r12,ty], [r20,r21,r22,tz], [0,0,0,1]]
type Mat4 [4][4]float64

func Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func Translation(v r3.Vec) Mat4 {
	m := Identity()
	m[0][3], m[1][3], m[2][3] = v.X, v.Y, v.Z
	return m
}

// Scale returns a diagonal scale matrix.
func Scale(v r3.Vec) Mat4 {
	m := Identity()
	m[0][0], m[1][1], m[2][2] = v.X, v.Y, v.Z
	return m
}

// FromQuat builds a pure rotation matrix. q does not need to be normalized.
func FromQuat(q quat.Number) Mat4 {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Mat4{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), 0},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), 0},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), 0},
		{0, 0, 0, 1},
	}
}

// Compose returns T(loc) * R(rot).
func Compose(loc r3.Vec, rot quat.Number) Mat4 {
	m := FromQuat(rot)
	m[0][3], m[1][3], m[2][3] = loc.X, loc.Y, loc.Z
	return m
}

// Mul returns a*b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// MulPoint transforms p as a point (w=1).
func (a Mat4) MulPoint(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: a[0][0]*p.X + a[0][1]*p.Y + a[0][2]*p.Z + a[0][3],
		Y: a[1][0]*p.X + a[1][1]*p.Y + a[1][2]*p.Z + a[1][3],
		Z: a[2][0]*p.X + a[2][1]*p.Y + a[2][2]*p.Z + a[2][3],
	}
}

// Position is the translation column.
func (a Mat4) Position() r3.Vec {
	return r3.Vec{X: a[0][3], Y: a[1][3], Z: a[2][3]}
}

// AffineInverse inverts a matrix whose last row is [0 0 0 1]. The upper 3x3
// block may contain scale; it must not be singular.
func (a Mat4) AffineInverse() Mat4 {
	m00, m01, m02 := a[0][0], a[0][1], a[0][2]
	m10, m11, m12 := a[1][0], a[1][1], a[1][2]
	m20, m21, m22 := a[2][0], a[2][1], a[2][2]

	c00 := m11*m22 - m12*m21
	c01 := m12*m20 - m10*m22
	c02 := m10*m21 - m11*m20
	det := m00*c00 + m01*c01 + m02*c02
	inv := 1 / det

	var out Mat4
	out[0][0] = c00 * inv
	out[0][1] = (m02*m21 - m01*m22) * inv
	out[0][2] = (m01*m12 - m02*m11) * inv
	out[1][0] = c01 * inv
	out[1][1] = (m00*m22 - m02*m20) * inv
	out[1][2] = (m02*m10 - m00*m12) * inv
	out[2][0] = c02 * inv
	out[2][1] = (m01*m20 - m00*m21) * inv
	out[2][2] = (m00*m11 - m01*m10) * inv

	t := a.Position()
	for i := 0; i < 3; i++ {
		out[i][3] = -(out[i][0]*t.X + out[i][1]*t.Y + out[i][2]*t.Z)
	}
	out[3] = [4]float64{0, 0, 0, 1}
	return out
}

// Rotation extracts the rotation part of a, ignoring scale.
func (a Mat4) Rotation() quat.Number {
	var r [3][3]float64
	for j := 0; j < 3; j++ {
		n := math.Sqrt(a[0][j]*a[0][j] + a[1][j]*a[1][j] + a[2][j]*a[2][j])
		if n < 1e-12 {
			n = 1
		}
		for i := 0; i < 3; i++ {
			r[i][j] = a[i][j] / n
		}
	}
	return quatFromRotation(r)
}

// quatFromRotation is Shepperd's method.
func quatFromRotation(r [3][3]float64) quat.Number {
	var q quat.Number
	tr := r[0][0] + r[1][1] + r[2][2]
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: s / 4, Imag: (r[2][1] - r[1][2]) / s, Jmag: (r[0][2] - r[2][0]) / s, Kmag: (r[1][0] - r[0][1]) / s}
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := math.Sqrt(1+r[0][0]-r[1][1]-r[2][2]) * 2
		q = quat.Number{Real: (r[2][1] - r[1][2]) / s, Imag: s / 4, Jmag: (r[0][1] + r[1][0]) / s, Kmag: (r[0][2] + r[2][0]) / s}
	case r[1][1] > r[2][2]:
		s := math.Sqrt(1+r[1][1]-r[0][0]-r[2][2]) * 2
		q = quat.Number{Real: (r[0][2] - r[2][0]) / s, Imag: (r[0][1] + r[1][0]) / s, Jmag: s / 4, Kmag: (r[1][2] + r[2][1]) / s}
	default:
		s := math.Sqrt(1+r[2][2]-r[0][0]-r[1][1]) * 2
		q = quat.Number{Real: (r[1][0] - r[0][1]) / s, Imag: (r[0][2] + r[2][0]) / s, Jmag: (r[1][2] + r[2][1]) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return Normalize(q)
}
