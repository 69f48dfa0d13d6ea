package spatialmath

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// orthonormalTolerance bounds how far RᵀR may stray from the identity, entry-wise, for a matrix
// to still be accepted as a rotation.
const orthonormalTolerance = 1e-4

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 row-major values. The matrix
// must be proper orthogonal (RᵀR = I, det R = +1) within a small tolerance.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	rm := &RotationMatrix{}
	copy(rm.mat[:], m)

	dense := mat.NewDense(3, 3, rm.mat[:])
	var gram mat.Dense
	gram.Mul(dense.T(), dense)
	if !mat.EqualApprox(&gram, eye3(), orthonormalTolerance) {
		return nil, errors.New("rotation matrix is not orthonormal")
	}
	if det := mat.Det(dense); math.Abs(det-1) > orthonormalTolerance {
		return nil, errors.Errorf("rotation matrix has determinant %f, expected 1", det)
	}
	return rm, nil
}

// IdentityRotationMatrix returns the rotation matrix of no rotation.
func IdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// AxisAngles returns the orientation in axis angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return R3ToR4(Log(rm))
}

// Quaternion returns orientation in quaternion representation.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := &rm.mat
	var q quat.Number
	tr := m[0] + m[4] + m[8]
	switch {
	case tr > 0:
		s := 0.5 / math.Sqrt(tr+1.0)
		q = quat.Number{Real: 0.25 / s, Imag: (m[7] - m[5]) * s, Jmag: (m[2] - m[6]) * s, Kmag: (m[3] - m[1]) * s}
	case m[0] > m[4] && m[0] > m[8]:
		s := 2.0 * math.Sqrt(1.0+m[0]-m[4]-m[8])
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: 0.25 * s, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := 2.0 * math.Sqrt(1.0+m[4]-m[0]-m[8])
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: 0.25 * s, Kmag: (m[5] + m[7]) / s}
	default:
		s := 2.0 * math.Sqrt(1.0+m[8]-m[0]-m[4])
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: 0.25 * s}
	}
	// keep the real part non-negative so equal rotations give equal quaternions
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return Normalize(q)
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// At returns the float corresponding to the element at the specified location.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Slice returns a copy of the 9 row-major elements.
func (rm *RotationMatrix) Slice() []float64 {
	out := make([]float64, 9)
	copy(out, rm.mat[:])
	return out
}

// Trace returns the sum of the diagonal elements.
func (rm *RotationMatrix) Trace() float64 {
	return rm.mat[0] + rm.mat[4] + rm.mat[8]
}

// Transpose returns the transpose, which for a rotation is also its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	m := &rm.mat
	return &RotationMatrix{[9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// Mul returns the product rm * other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	var out RotationMatrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.mat[3*r+c] = rm.mat[3*r]*other.mat[c] + rm.mat[3*r+1]*other.mat[3+c] + rm.mat[3*r+2]*other.mat[6+c]
		}
	}
	return &out
}

func (rm *RotationMatrix) String() string {
	return fmt.Sprintf("[%.6f %.6f %.6f; %.6f %.6f %.6f; %.6f %.6f %.6f]",
		rm.mat[0], rm.mat[1], rm.mat[2], rm.mat[3], rm.mat[4], rm.mat[5], rm.mat[6], rm.mat[7], rm.mat[8])
}

// QuatToRotationMatrix converts a quat to a Rotation Matrix
// reference: https://github.com/go-gl/mathgl/blob/592312d8590acb0686c14740dcf60e2f32d9c618/mgl64/quat.go#L168
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	x2, y2, z2 := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z
	return &RotationMatrix{[9]float64{
		1 - 2*y2 - 2*z2, 2*xy - 2*wz, 2*xz + 2*wy,
		2*xy + 2*wz, 1 - 2*x2 - 2*z2, 2*yz - 2*wx,
		2*xz - 2*wy, 2*yz + 2*wx, 1 - 2*x2 - 2*y2,
	}}
}
