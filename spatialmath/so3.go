package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Below smallAngle the first order expansions of Exp and Log are used; sin(θ)/θ is
// indistinguishable from 1 there.
const smallAngle = 1e-8

// Above this cosine-distance from -1 the axis of Log is recovered from the antisymmetric
// part; closer to π it is recovered from the symmetric part, which stays well conditioned.
const nearPiCos = -0.99

// Exp is the exponential map from an axis-angle vector (direction = axis, length = angle) to a
// rotation matrix, via Rodrigues' formula R = I + sinθ K + (1 - cosθ) K².
func Exp(w r3.Vector) *RotationMatrix {
	theta := w.Norm()
	if theta < smallAngle {
		return &RotationMatrix{[9]float64{
			1, -w.Z, w.Y,
			w.Z, 1, -w.X,
			-w.Y, w.X, 1,
		}}
	}
	k := w.Mul(1 / theta)
	s, c := math.Sincos(theta)
	v := 1 - c
	return &RotationMatrix{[9]float64{
		c + k.X*k.X*v, k.X*k.Y*v - k.Z*s, k.X*k.Z*v + k.Y*s,
		k.Y*k.X*v + k.Z*s, c + k.Y*k.Y*v, k.Y*k.Z*v - k.X*s,
		k.Z*k.X*v - k.Y*s, k.Z*k.Y*v + k.X*s, c + k.Z*k.Z*v,
	}}
}

// Log is the inverse of Exp: it returns the axis-angle vector of rm with angle in [0, π].
func Log(rm *RotationMatrix) r3.Vector {
	m := &rm.mat
	// vee of the antisymmetric part: 2 sinθ * axis
	vee := r3.Vector{X: m[7] - m[5], Y: m[2] - m[6], Z: m[3] - m[1]}
	c := (rm.Trace() - 1) / 2
	s := vee.Norm() / 2
	theta := math.Atan2(s, c)

	if theta < smallAngle {
		return vee.Mul(0.5)
	}
	if c > nearPiCos {
		return vee.Mul(theta / (2 * s))
	}

	// (R + Rᵀ)/2 = cI + (1 - c) a aᵀ; take the best conditioned column of a aᵀ.
	oneMinusC := 1 - c
	diag := [3]float64{(m[0] - c) / oneMinusC, (m[4] - c) / oneMinusC, (m[8] - c) / oneMinusC}
	var axis r3.Vector
	switch {
	case diag[0] >= diag[1] && diag[0] >= diag[2]:
		axis = r3.Vector{X: diag[0], Y: (m[1] + m[3]) / (2 * oneMinusC), Z: (m[2] + m[6]) / (2 * oneMinusC)}
	case diag[1] >= diag[2]:
		axis = r3.Vector{X: (m[1] + m[3]) / (2 * oneMinusC), Y: diag[1], Z: (m[5] + m[7]) / (2 * oneMinusC)}
	default:
		axis = r3.Vector{X: (m[2] + m[6]) / (2 * oneMinusC), Y: (m[5] + m[7]) / (2 * oneMinusC), Z: diag[2]}
	}
	axis = axis.Normalize()
	if axis.Dot(vee) < 0 {
		axis = axis.Mul(-1)
	}
	return axis.Mul(theta)
}

// RotationAngle returns the angle in [0, π] of the rotation rm.
func RotationAngle(rm *RotationMatrix) float64 {
	m := &rm.mat
	vee := r3.Vector{X: m[7] - m[5], Y: m[2] - m[6], Z: m[3] - m[1]}
	return math.Atan2(vee.Norm()/2, (rm.Trace()-1)/2)
}

// GeodesicDistance returns the angle of the rotation taking a onto b, i.e. the angle of aᵀb.
// This is the natural metric on the rotation group and lies in [0, π].
func GeodesicDistance(a, b *RotationMatrix) float64 {
	return RotationAngle(a.Transpose().Mul(b))
}

// Skew returns the cross product matrix [w]x, so that Skew(w)·v = w × v.
func Skew(w r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -w.Z, w.Y,
		w.Z, 0, -w.X,
		-w.Y, w.X, 0,
	})
}

// RightJacobian returns Jr(φ), which relates a small change δ of φ to the body-frame change of
// Exp(φ): Exp(φ + δ) ≈ Exp(φ)·Exp(Jr(φ)·δ).
func RightJacobian(phi r3.Vector) *mat.Dense {
	theta := phi.Norm()
	k := Skew(phi)
	var k2 mat.Dense
	k2.Mul(k, k)

	var a, b float64
	if theta < 1e-4 {
		// series expansions of (1 - cosθ)/θ² and (θ - sinθ)/θ³
		t2 := theta * theta
		a = 0.5 - t2/24
		b = 1./6 - t2/120
	} else {
		s, c := math.Sincos(theta)
		a = (1 - c) / (theta * theta)
		b = (theta - s) / (theta * theta * theta)
	}
	jr := eye3()
	k.Scale(-a, k)
	k2.Scale(b, &k2)
	jr.Add(jr, k)
	jr.Add(jr, &k2)
	return jr
}
