package spin

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/spindoe/config"
	"go.viam.com/spindoe/logging"
	"go.viam.com/spindoe/orientation"
	"go.viam.com/spindoe/spatialmath"
	"go.viam.com/spindoe/utils"
)

const frameDt = 1. / 300

func frameTimes(indices ...int) []float64 {
	times := make([]float64, len(indices))
	for i, idx := range indices {
		times[i] = float64(idx) * frameDt
	}
	return times
}

func spinning(r0 *spatialmath.RotationMatrix, omega r3.Vector, times []float64) []*spatialmath.RotationMatrix {
	rots := make([]*spatialmath.RotationMatrix, len(times))
	for i, t := range times {
		rots[i] = r0.Mul(spatialmath.Exp(omega.Mul(t)))
	}
	return rots
}

func randomAxis(rng *rand.Rand) r3.Vector {
	return r3.Vector{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}.Normalize()
}

func checkOmega(t *testing.T, actual, expected r3.Vector, tol float64) {
	t.Helper()
	test.That(t, actual.X, test.ShouldAlmostEqual, expected.X, tol)
	test.That(t, actual.Y, test.ShouldAlmostEqual, expected.Y, tol)
	test.That(t, actual.Z, test.ShouldAlmostEqual, expected.Z, tol)
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestRegressNoiseFree(t *testing.T) {
	omega := r3.Vector{X: 12, Y: -25, Z: 60}
	r0 := spatialmath.Exp(r3.Vector{X: 0.3, Y: 1.1, Z: -0.4})
	times := frameTimes(0, 1, 2, 3, 5, 6, 7, 8, 9, 10, 12, 13, 14, 15, 16, 18, 19, 20, 21, 22, 24, 25, 26, 27, 28, 29)
	rots := spinning(r0, omega, times)

	est, err := Regress(times, rots, config.DefaultRegressor())
	test.That(t, err, test.ShouldBeNil)
	checkOmega(t, est.AngularVelocity, omega, 1e-6)
	test.That(t, est.Inliers, test.ShouldResemble, allIndices(len(times)))
	test.That(t, est.Residual, test.ShouldBeLessThan, 1e-8)
	test.That(t, est.Samples, test.ShouldEqual, len(times))
	test.That(t, est.InlierRatio(), test.ShouldEqual, 1.)
	test.That(t, est.Magnitude(), test.ShouldAlmostEqual, omega.Norm(), 1e-6)
	test.That(t, est.RPS(), test.ShouldAlmostEqual, omega.Norm()/(2*math.Pi), 1e-6)
	axis := est.Axis()
	test.That(t, axis.Norm(), test.ShouldAlmostEqual, 1.)
	test.That(t, axis.Dot(omega.Normalize()), test.ShouldAlmostEqual, 1., 1e-9)
}

func TestRegressTwoSamples(t *testing.T) {
	omega := r3.Vector{X: 0, Y: 30, Z: 0}
	times := frameTimes(0, 1)
	est, err := Regress(times, spinning(spatialmath.IdentityRotationMatrix(), omega, times), config.DefaultRegressor())
	test.That(t, err, test.ShouldBeNil)
	checkOmega(t, est.AngularVelocity, omega, 1e-6)
	test.That(t, est.Inliers, test.ShouldResemble, []int{0, 1})
}

func TestRegressZeroSpin(t *testing.T) {
	r0 := spatialmath.Exp(r3.Vector{X: -0.7, Y: 0.2, Z: 0.5})
	times := frameTimes(0, 1, 2, 3, 4, 5)
	rots := spinning(r0, r3.Vector{}, times)
	est, err := Regress(times, rots, config.DefaultRegressor())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.Magnitude(), test.ShouldAlmostEqual, 0., 1e-9)
	test.That(t, (&Estimate{}).Axis(), test.ShouldResemble, r3.Vector{})
	test.That(t, len(est.Inliers), test.ShouldEqual, len(times))
}

func TestRegressRejectsOutliers(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	omega := r3.Vector{X: -40, Y: 8, Z: 25}
	r0 := spatialmath.Exp(r3.Vector{X: 2, Y: -0.5, Z: 0.1})
	n := 30
	indices := allIndices(n)
	times := frameTimes(indices...)
	rots := spinning(r0, omega, times)

	outliers := map[int]bool{}
	for _, k := range rng.Perm(n)[:9] {
		outliers[k] = true
		// at least one radian away from the true orientation
		angle := 1 + rng.Float64()*(math.Pi-1)
		rots[k] = rots[k].Mul(spatialmath.Exp(randomAxis(rng).Mul(angle)))
	}
	var expected []int
	for k := 0; k < n; k++ {
		if !outliers[k] {
			expected = append(expected, k)
		}
	}

	est, err := Regress(times, rots, config.DefaultRegressor())
	test.That(t, err, test.ShouldBeNil)
	checkOmega(t, est.AngularVelocity, omega, 1e-6)
	test.That(t, est.Inliers, test.ShouldResemble, expected)
}

func TestRegressNoisy(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	omega := r3.Vector{X: 5, Y: 70, Z: -15}
	times := frameTimes(allIndices(40)...)
	rots := spinning(spatialmath.IdentityRotationMatrix(), omega, times)
	for k := range rots {
		rots[k] = rots[k].Mul(spatialmath.Exp(randomAxis(rng).Mul(0.01)))
	}

	est, err := Regress(times, rots, config.DefaultRegressor())
	test.That(t, err, test.ShouldBeNil)
	checkOmega(t, est.AngularVelocity, omega, 1)
	test.That(t, len(est.Inliers), test.ShouldEqual, 40)
	test.That(t, est.Residual, test.ShouldBeLessThan, 0.05)
}

func TestRegressWrapAround(t *testing.T) {
	// more than half a turn between consecutive frames
	omega := r3.Vector{X: 0.2, Y: -0.3, Z: 1}.Normalize().Mul(2 * math.Pi * 180)
	test.That(t, omega.Norm()*frameDt, test.ShouldBeGreaterThan, math.Pi)

	// capture jitter separates the true spin from its alias 2π/Δt away
	times := make([]float64, 24)
	for k := range times {
		times[k] = float64(k)*frameDt + float64(k%3)*0.0004
	}
	rots := spinning(spatialmath.Exp(r3.Vector{X: 1}), omega, times)

	est, err := Regress(times, rots, config.DefaultRegressor())
	test.That(t, err, test.ShouldBeNil)
	checkOmega(t, est.AngularVelocity, omega, 1e-5)
	test.That(t, len(est.Inliers), test.ShouldEqual, len(times))
}

func TestRegressSpinBeyondMax(t *testing.T) {
	omega := r3.Vector{Z: 2 * math.Pi * 180}
	times := make([]float64, 18)
	for k := range times {
		times[k] = float64(k)*frameDt + float64(k%3)*0.0004
	}
	cfg := config.DefaultRegressor()
	cfg.MaxSpinRadS = 2 * math.Pi * 100
	_, err := Regress(times, spinning(spatialmath.IdentityRotationMatrix(), omega, times), cfg)
	test.That(t, errors.Is(err, ErrNoConsensus), test.ShouldBeTrue)
}

func TestRegressInsufficientSamples(t *testing.T) {
	_, err := Regress(nil, nil, config.DefaultRegressor())
	test.That(t, errors.Is(err, ErrInsufficientSamples), test.ShouldBeTrue)

	_, err = Regress([]float64{0}, []*spatialmath.RotationMatrix{spatialmath.IdentityRotationMatrix()}, config.DefaultRegressor())
	test.That(t, errors.Is(err, ErrInsufficientSamples), test.ShouldBeTrue)

	samples := []orientation.Sample{
		{TimestampNs: 0, Rotation: spatialmath.IdentityRotationMatrix(), Valid: true},
		{TimestampNs: 3333333, Valid: false},
		{TimestampNs: 6666666, Rotation: spatialmath.IdentityRotationMatrix(), Valid: false},
	}
	_, err = RegressSamples(samples, config.DefaultRegressor())
	test.That(t, errors.Is(err, ErrInsufficientSamples), test.ShouldBeTrue)
}

func TestRegressNoConsensus(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 20
	times := frameTimes(allIndices(n)...)
	rots := make([]*spatialmath.RotationMatrix, n)
	for k := range rots {
		rots[k] = spatialmath.Exp(randomAxis(rng).Mul(rng.Float64() * math.Pi))
	}
	est, err := Regress(times, rots, config.DefaultRegressor())
	test.That(t, est, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrNoConsensus), test.ShouldBeTrue)
}

func TestRegressArgumentErrors(t *testing.T) {
	id := spatialmath.IdentityRotationMatrix()
	cfg := config.DefaultRegressor()

	_, err := Regress([]float64{0, 1}, []*spatialmath.RotationMatrix{id}, cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rotations")

	_, err = Regress([]float64{0, 1}, []*spatialmath.RotationMatrix{id, nil}, cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nil")

	_, err = Regress([]float64{1, 0}, []*spatialmath.RotationMatrix{id, id}, cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "non-decreasing")

	_, err = Regress([]float64{0, math.NaN()}, []*spatialmath.RotationMatrix{id, id}, cfg)
	test.That(t, err, test.ShouldNotBeNil)

	bad := cfg
	bad.Iterations = 0
	_, err = Regress([]float64{0, 1}, []*spatialmath.RotationMatrix{id, id}, bad)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegressDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	omega := r3.Vector{X: 30, Y: 30, Z: -10}
	times := frameTimes(allIndices(25)...)
	rots := spinning(spatialmath.Exp(r3.Vector{Y: 0.8}), omega, times)
	for _, k := range []int{3, 8, 9, 17, 22} {
		rots[k] = spatialmath.Exp(randomAxis(rng).Mul(2))
	}
	for k := range rots {
		rots[k] = rots[k].Mul(spatialmath.Exp(randomAxis(rng).Mul(0.02)))
	}

	cfg := config.DefaultRegressor()
	cfg.Seed = 99
	first, err := Regress(times, rots, cfg)
	test.That(t, err, test.ShouldBeNil)
	second, err := Regress(times, rots, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldResemble, first)

	oldFactor := utils.ParallelFactor
	defer func() { utils.ParallelFactor = oldFactor }()
	for _, factor := range []int{1, 3, 16} {
		utils.ParallelFactor = factor
		again, err := Regress(times, rots, cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, again, test.ShouldResemble, first)
	}
}

func TestRegressSamples(t *testing.T) {
	omega := r3.Vector{X: -9, Y: 44, Z: 3}
	times := frameTimes(allIndices(12)...)
	rots := spinning(spatialmath.IdentityRotationMatrix(), omega, times)

	var samples []orientation.Sample
	for k := range times {
		samples = append(samples, orientation.Sample{
			TimestampNs: int64(k) * 3333333,
			Rotation:    rots[k],
			Valid:       true,
		})
		if k == 4 {
			samples = append(samples, orientation.Sample{TimestampNs: int64(k)*3333333 + 1, Valid: false})
		}
	}

	logger := logging.NewTestLogger(t)
	r, err := NewRegressor(config.DefaultRegressor(), logger)
	test.That(t, err, test.ShouldBeNil)
	est, err := r.RegressSamples(context.Background(), samples)
	test.That(t, err, test.ShouldBeNil)
	// timestamps are truncated to whole nanoseconds
	checkOmega(t, est.AngularVelocity, omega, 1e-3)
	test.That(t, len(est.Inliers), test.ShouldEqual, 12)
	test.That(t, est.Inliers[4], test.ShouldEqual, 4)
	test.That(t, est.Inliers[5], test.ShouldEqual, 6)
	test.That(t, est.Samples, test.ShouldEqual, 12)
}

func TestMinSupport(t *testing.T) {
	test.That(t, MinSupport(2, 0.5), test.ShouldEqual, 2)
	test.That(t, MinSupport(3, 0.5), test.ShouldEqual, 2)
	test.That(t, MinSupport(9, 0.5), test.ShouldEqual, 5)
	test.That(t, MinSupport(10, 0.5), test.ShouldEqual, 5)
	test.That(t, MinSupport(10, 0.75), test.ShouldEqual, 8)
}

func TestCandidates(t *testing.T) {
	axis := r3.Vector{Z: 1}
	dt := 0.01
	cands := candidates(spatialmath.AngularVelocity(axis.Mul(1/dt)), dt, 2*math.Pi*120)
	// 1/dt about +z, then (2π-1)/dt about -z, then (1+2π)/dt about +z
	test.That(t, len(cands), test.ShouldEqual, 3)
	test.That(t, cands[0].Z, test.ShouldAlmostEqual, 100.)
	test.That(t, cands[1].Z, test.ShouldAlmostEqual, -(2*math.Pi-1)/dt)
	test.That(t, cands[2].Z, test.ShouldAlmostEqual, (1+2*math.Pi)/dt)

	test.That(t, candidates(spatialmath.AngularVelocity(axis.Mul(3/dt)), dt, 100), test.ShouldBeEmpty)
}
