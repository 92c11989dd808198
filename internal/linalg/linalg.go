// Package linalg provides the small fixed-size vector and rotation
// arithmetic used throughout the engine: 3-vectors, 3x3 director frames,
// and the exponential/logarithm maps on SO(3) that advance orientations.
package linalg

import (
	"errors"
	"math"
)

// ErrDegenerateFrame is returned when a director frame cannot be built
// from the supplied tangent and normal.
var ErrDegenerateFrame = errors.New("linalg: tangent and normal are parallel or zero")

// Vec3 is a 3-component vector. The zero value is the zero vector.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{s * v.X, s * v.Y, s * v.Z} }

func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Mul multiplies component-wise. Used for diagonal stiffness and inertia
// tensors stored as vectors.
func (v Vec3) Mul(w Vec3) Vec3 { return Vec3{v.X * w.X, v.Y * w.Y, v.Z * w.Z} }

func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) NormSq() float64 { return v.Dot(v) }

// Normalized returns the unit vector along v, or the zero vector when v is
// too short to normalize safely.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n < 1e-14 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

func (v Vec3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Mat3 is a 3x3 matrix in row-major order. Director frames store the
// material basis vectors d1, d2, d3 as rows, so M.MulVec maps lab-frame
// coordinates into the material frame.
type Mat3 [3][3]float64

// Identity returns the identity matrix.
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Row returns row i as a vector.
func (m Mat3) Row(i int) Vec3 { return Vec3{m[i][0], m[i][1], m[i][2]} }

func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

func (m Mat3) IsFinite() bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return false
			}
		}
	}
	return true
}

// Frame builds a director frame from a tangent and a normal hint. The
// rows are d1 (normal, orthogonalized against the tangent), d2 = d3 x d1,
// and d3 (unit tangent).
func Frame(tangent, normal Vec3) (Mat3, error) {
	d3 := tangent.Normalized()
	if d3 == (Vec3{}) {
		return Mat3{}, ErrDegenerateFrame
	}
	d1 := normal.Sub(d3.Scale(normal.Dot(d3))).Normalized()
	if d1 == (Vec3{}) {
		return Mat3{}, ErrDegenerateFrame
	}
	d2 := d3.Cross(d1)
	return Mat3{
		{d1.X, d1.Y, d1.Z},
		{d2.X, d2.Y, d2.Z},
		{d3.X, d3.Y, d3.Z},
	}, nil
}

// ExpSO3 is the exponential map: the rotation matrix for the rotation
// vector phi (axis times angle), via the Rodrigues formula. Small angles
// fall back to the series expansion so the map stays smooth through zero.
func ExpSO3(phi Vec3) Mat3 {
	theta := phi.Norm()
	var a, b float64
	if theta < 1e-8 {
		t2 := theta * theta
		a = 1 - t2/6
		b = 0.5 - t2/24
	} else {
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / (theta * theta)
	}
	x, y, z := phi.X, phi.Y, phi.Z
	// I + a*K + b*K^2 with K the skew matrix of phi.
	return Mat3{
		{1 - b*(y*y+z*z), b*x*y - a*z, b*x*z + a*y},
		{b*x*y + a*z, 1 - b*(x*x+z*z), b*y*z - a*x},
		{b*x*z - a*y, b*y*z + a*x, 1 - b*(x*x+y*y)},
	}
}

// LogSO3 is the logarithm map: the rotation vector of a rotation matrix.
// Accurate for the small relative rotations that arise between adjacent
// director frames; angles at or beyond pi are not expected there.
func LogSO3(m Mat3) Vec3 {
	tr := m[0][0] + m[1][1] + m[2][2]
	c := (tr - 1) / 2
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	theta := math.Acos(c)
	axis := Vec3{
		m[2][1] - m[1][2],
		m[0][2] - m[2][0],
		m[1][0] - m[0][1],
	}
	if theta < 1e-8 {
		// log(R) ~ (R - R^T)/2 for small rotations.
		return axis.Scale(0.5)
	}
	return axis.Scale(theta / (2 * math.Sin(theta)))
}
