package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// AngularVelocity contains angular velocity in rad/s across x/y/z axes.
type AngularVelocity r3.Vector

// RotationRate returns the slowest constant angular velocity that performs the rotation diff in
// dt seconds, i.e. the one turning by the principal angle in [0, π].
func RotationRate(diff Orientation, dt float64) AngularVelocity {
	return AngularVelocity(Log(diff.RotationMatrix()).Mul(1 / dt))
}

// Vector returns the angular velocity as an r3.Vector.
func (av AngularVelocity) Vector() r3.Vector {
	return r3.Vector(av)
}

// Speed returns the rotation rate in rad/s.
func (av AngularVelocity) Speed() float64 {
	return r3.Vector(av).Norm()
}

// Axis returns the unit rotation axis, or the zero vector when there is no rotation.
func (av AngularVelocity) Axis() r3.Vector {
	speed := av.Speed()
	if speed == 0 {
		return r3.Vector{}
	}
	return r3.Vector(av).Mul(1 / speed)
}

// Integrate returns the orientation reached from start after rotating at av for dt seconds,
// with av expressed in the body frame: start * Exp(dt * av).
func (av AngularVelocity) Integrate(start *RotationMatrix, dt float64) *RotationMatrix {
	return start.Mul(Exp(r3.Vector(av).Mul(dt)))
}

// RevolutionsPerSecond returns the rotation rate in revolutions per second.
func (av AngularVelocity) RevolutionsPerSecond() float64 {
	return av.Speed() / (2 * math.Pi)
}
