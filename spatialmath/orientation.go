package spatialmath

import (
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is a rotation in any of the supported parameterizations. Every parameterization
// converts to the others.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
	RotationMatrix() *RotationMatrix
}

// OrientationBetween returns the rotation that carries o1 to o2, expressed in the frame of o1:
// o2 = o1 * OrientationBetween(o1, o2).
func OrientationBetween(o1, o2 Orientation) Orientation {
	return o1.RotationMatrix().Transpose().Mul(o2.RotationMatrix())
}
