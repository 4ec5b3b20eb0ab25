package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

// QuatIdentity is the no-op rotation.
func QuatIdentity() quat.Number {
	return quat.Number{Real: 1}
}

func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < eps {
		return QuatIdentity()
	}
	return quat.Scale(1/n, q)
}

func axisAngle(axis r3.Vec, angle float64) quat.Number {
	s := math.Sin(angle / 2)
	return quat.Number{Real: math.Cos(angle / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// EulerZXY converts an Euler triple (x, y, z angles in radians) stored in
// Z-X-Y order: Z is applied first, then X, then Y.
func EulerZXY(v r3.Vec) quat.Number {
	qx := axisAngle(r3.Vec{X: 1}, v.X)
	qy := axisAngle(r3.Vec{Y: 1}, v.Y)
	qz := axisAngle(r3.Vec{Z: 1}, v.Z)
	return quat.Mul(qy, quat.Mul(qx, qz))
}

// ToEulerZXY is the inverse of EulerZXY. At the X = ±90° singularity the Z
// angle is reported as zero.
func ToEulerZXY(q quat.Number) r3.Vec {
	m := FromQuat(q)
	sx := clamp(-m[1][2], -1, 1)
	x := math.Asin(sx)
	if math.Abs(math.Cos(x)) > 1e-7 {
		return r3.Vec{
			X: x,
			Y: math.Atan2(m[0][2], m[2][2]),
			Z: math.Atan2(m[1][0], m[1][1]),
		}
	}
	return r3.Vec{X: x, Y: math.Atan2(-m[2][0], m[0][0])}
}

// EulerXYZ is the X-then-Y-then-Z convention, q = qZ·qY·qX.
func EulerXYZ(v r3.Vec) quat.Number {
	qx := axisAngle(r3.Vec{X: 1}, v.X)
	qy := axisAngle(r3.Vec{Y: 1}, v.Y)
	qz := axisAngle(r3.Vec{Z: 1}, v.Z)
	return quat.Mul(qz, quat.Mul(qy, qx))
}

// ToEulerXYZ is the inverse of EulerXYZ, with Z reported as zero at the
// Y = ±90° singularity.
func ToEulerXYZ(q quat.Number) r3.Vec {
	m := FromQuat(q)
	y := math.Asin(clamp(-m[2][0], -1, 1))
	if math.Abs(math.Cos(y)) > 1e-7 {
		return r3.Vec{
			X: math.Atan2(m[2][1], m[2][2]),
			Y: y,
			Z: math.Atan2(m[1][0], m[0][0]),
		}
	}
	return r3.Vec{X: math.Atan2(-m[1][2], m[1][1]), Y: y}
}

// Rotate applies q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	q = Normalize(q)
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Inverse of a rotation quaternion.
func Inverse(q quat.Number) quat.Number {
	return quat.Inv(q)
}

// RotationBetween returns the shortest-arc rotation taking direction a onto b.
func RotationBetween(a, b r3.Vec) quat.Number {
	a, b = r3.Unit(a), r3.Unit(b)
	d := r3.Dot(a, b)
	if d > 1-eps {
		return QuatIdentity()
	}
	if d < -1+eps {
		axis := r3.Cross(r3.Vec{X: 1}, a)
		if r3.Norm(axis) < 1e-6 {
			axis = r3.Cross(r3.Vec{Z: 1}, a)
		}
		return axisAngle(r3.Unit(axis), math.Pi)
	}
	c := r3.Cross(a, b)
	return Normalize(quat.Number{Real: 1 + d, Imag: c.X, Jmag: c.Y, Kmag: c.Z})
}

// SameRotation reports whether a and b represent the same rotation within tol.
func SameRotation(a, b quat.Number, tol float64) bool {
	a, b = Normalize(a), Normalize(b)
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	return 1-math.Abs(dot) < tol
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
