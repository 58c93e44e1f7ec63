package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Clamp01 clamps v into the closed interval [0, 1].
//
// Parameters:
//   - v: the value to clamp
//
// Returns:
//   - float32: v limited to [0, 1]
func Clamp01(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}

// LerpVec3 linearly interpolates between two vectors.
//
// Parameters:
//   - a: the value at t = 0
//   - b: the value at t = 1
//   - t: the interpolation parameter, expected in [0, 1]
//
// Returns:
//   - mgl32.Vec3: a + (b - a) * t
func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// SlerpShortest spherically interpolates between two rotations along the shortest arc.
// Both operands are normalized first; a zero-length quaternion normalizes to identity.
// When the operands lie in opposite hemispheres (negative dot product) the second one is
// negated so the interpolation never takes the long way around.
//
// Parameters:
//   - a: the rotation at t = 0
//   - b: the rotation at t = 1
//   - t: the interpolation parameter, expected in [0, 1]
//
// Returns:
//   - mgl32.Quat: the normalized interpolated rotation
func SlerpShortest(a, b mgl32.Quat, t float32) mgl32.Quat {
	a, b = a.Normalize(), b.Normalize()
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return mgl32.QuatSlerp(a, b, t).Normalize()
}

// ComposeTRS builds the affine transform T · R · S from a translation, a rotation and a scale.
// Scale is applied first in the local frame, then rotation, then translation.
// The matrix is column-major, matching mgl32 conventions.
//
// Parameters:
//   - t: the translation
//   - r: the rotation, normalized before use
//   - s: the per-axis scale (zero components are allowed)
//
// Returns:
//   - mgl32.Mat4: the composed transform
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	m := r.Normalize().Mat4()

	// R · S scales the rotation basis columns; T fills the last column.
	for c := 0; c < 3; c++ {
		for row := 0; row < 3; row++ {
			m[c*4+row] *= s[c]
		}
	}
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// Mul4Into multiplies two 4x4 matrices and stores the result in out.
// out may alias either operand.
// Result: out = a * b
//
// Parameters:
//   - out: destination matrix
//   - a: left-hand matrix
//   - b: right-hand matrix
func Mul4Into(out, a, b *mgl32.Mat4) {
	*out = a.Mul4(*b)
}
