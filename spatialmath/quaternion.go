package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is an orientation in unit quaternion representation.
type Quaternion quat.Number

// AxisAngles returns the orientation in axis angle representation.
func (q *Quaternion) AxisAngles() *R4AA {
	return R3ToR4(Log(q.RotationMatrix()))
}

// Quaternion returns orientation in quaternion representation.
func (q *Quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *Quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// Norm returns the euclidean length of q over all four components.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Normalize returns q scaled to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	length := Norm(q)
	if math.Abs(length-1.0) < 1e-10 {
		return q
	}
	if length == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/length, q)
}
