package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// R4AA is a rotation of Theta radians about the axis (RX, RY, RZ). The axis is normalized on
// conversion, so any non-zero length is accepted.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA returns the zero rotation about +z.
func NewR4AA() *R4AA {
	return &R4AA{RZ: 1}
}

// AxisAngles returns r4 itself.
func (r4 *R4AA) AxisAngles() *R4AA {
	return r4
}

// Quaternion returns orientation in quaternion representation.
func (r4 *R4AA) Quaternion() quat.Number {
	return r4.ToQuat()
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	return Exp(r4.ToR3())
}

// Axis returns the unit rotation axis, +z when the stored axis has zero length.
func (r4 *R4AA) Axis() r3.Vector {
	axis := r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
	norm := axis.Norm()
	if norm == 0 {
		return r3.Vector{Z: 1}
	}
	return axis.Mul(1 / norm)
}

// ToR3 returns the rotation vector: the unit axis scaled by Theta.
func (r4 *R4AA) ToR3() r3.Vector {
	return r4.Axis().Mul(r4.Theta)
}

// ToQuat returns the unit quaternion (cos θ/2, sin θ/2 · axis).
func (r4 *R4AA) ToQuat() quat.Number {
	s, c := math.Sincos(r4.Theta / 2)
	axis := r4.Axis().Mul(s)
	return quat.Number{Real: c, Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
}

// R3ToR4 converts a rotation vector to axis-angle form.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	return &R4AA{theta, aa.X / theta, aa.Y / theta, aa.Z / theta}
}
