package camera

import "math"

// Mat4 is a 4x4 matrix stored row-major. It follows the row-vector convention
// used by USD's Gf types: points transform as p' = p * M, and transforms
// compose left to right (first applied transform on the left).
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i*4+k] * n[k*4+j]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// Translation returns a matrix translating by t.
func Translation(t Vec3) Mat4 {
	out := Identity()
	out[12], out[13], out[14] = t[0], t[1], t[2]
	return out
}

// RotationX returns a rotation about the X axis by deg degrees.
func RotationX(deg float64) Mat4 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Mat4{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

// RotationY returns a rotation about the Y axis by deg degrees.
func RotationY(deg float64) Mat4 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotationZ returns a rotation about the Z axis by deg degrees.
func RotationZ(deg float64) Mat4 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Mat4{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// EulerXYZ composes rotations about X, then Y, then Z, in degrees. This is
// the rotation order the host runtime applies to camera_rotation.
func EulerXYZ(deg Vec3) Mat4 {
	return RotationX(deg[0]).Mul(RotationY(deg[1])).Mul(RotationZ(deg[2]))
}

// AffineInverse inverts a rigid transform (orthonormal rotation plus
// translation). It is not a general matrix inverse.
func (m Mat4) AffineInverse() Mat4 {
	// Transpose the rotation block.
	out := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*4+j] = m[j*4+i]
		}
	}
	// New translation is -t * R^T.
	tx, ty, tz := m[12], m[13], m[14]
	out[12] = -(tx*out[0] + ty*out[4] + tz*out[8])
	out[13] = -(tx*out[1] + ty*out[5] + tz*out[9])
	out[14] = -(tx*out[2] + ty*out[6] + tz*out[10])
	return out
}

// TransformPoint applies the matrix to a point (w=1) without the perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		p[0]*m[0] + p[1]*m[4] + p[2]*m[8] + m[12],
		p[0]*m[1] + p[1]*m[5] + p[2]*m[9] + m[13],
		p[0]*m[2] + p[1]*m[6] + p[2]*m[10] + m[14],
	}
}

// TransformDir applies the rotation part of the matrix to a direction (w=0).
func (m Mat4) TransformDir(d Vec3) Vec3 {
	return Vec3{
		d[0]*m[0] + d[1]*m[4] + d[2]*m[8],
		d[0]*m[1] + d[1]*m[5] + d[2]*m[9],
		d[0]*m[2] + d[1]*m[6] + d[2]*m[10],
	}
}

// Vec3 is a 3-component vector.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Dot returns the dot product.
func (v Vec3) Dot(w Vec3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns a unit-length copy. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}
