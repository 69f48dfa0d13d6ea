package spin

import (
	"context"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/spindoe/spatialmath"
	"go.viam.com/spindoe/utils"
)

// problem is the immutable input of one regression.
type problem struct {
	times     []float64
	rotations []*spatialmath.RotationMatrix
	tolerance float64
}

// model is a spin hypothesis with the samples it explains. Inliers and residual are measured
// against the rotation of the reference sample.
type model struct {
	omega       r3.Vector
	reference   int
	inliers     []int
	residualSum float64
	iteration   int
}

// better orders models by inlier count (more first), then summed residual (lower first), then
// iteration (earlier first). It is a strict total order over models from distinct iterations.
func (m *model) better(other *model) bool {
	if other == nil {
		return true
	}
	if len(m.inliers) != len(other.inliers) {
		return len(m.inliers) > len(other.inliers)
	}
	if m.residualSum != other.residualSum {
		return m.residualSum < other.residualSum
	}
	return m.iteration < other.iteration
}

// residual is the geodesic distance between the measured rotation k and the one predicted from
// the reference sample by omega.
func (p *problem) residual(omega r3.Vector, reference, k int) float64 {
	dt := p.times[k] - p.times[reference]
	predicted := spatialmath.AngularVelocity(omega).Integrate(p.rotations[reference], dt)
	return spatialmath.GeodesicDistance(predicted, p.rotations[k])
}

// score evaluates omega against every sample.
func (p *problem) score(omega r3.Vector, reference int) (inliers []int, residualSum float64) {
	for k := range p.times {
		res := p.residual(omega, reference, k)
		if res < p.tolerance {
			inliers = append(inliers, k)
			residualSum += res
		}
	}
	return inliers, residualSum
}

func (p *problem) rms(omega r3.Vector, reference int, inliers []int) float64 {
	if len(inliers) == 0 {
		return 0
	}
	sq := make([]float64, len(inliers))
	for i, k := range inliers {
		res := p.residual(omega, reference, k)
		sq[i] = res * res
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

// candidates returns every angular velocity, up to maxSpin in magnitude, that performs the same
// rotation over dt as principal. The principal angle θ about axis a may also be θ + 2πk about a
// or 2π(k+1) - θ about -a, for any whole number of extra turns k.
func candidates(principal spatialmath.AngularVelocity, dt, maxSpin float64) []r3.Vector {
	theta := principal.Speed() * dt
	axis := principal.Axis()
	var out []r3.Vector
	for k := 0; ; k++ {
		turns := 2 * math.Pi * float64(k)
		forward := (theta + turns) / dt
		backward := (2*math.Pi + turns - theta) / dt
		if forward > maxSpin && backward > maxSpin {
			return out
		}
		if forward <= maxSpin {
			out = append(out, axis.Mul(forward))
		}
		if backward <= maxSpin {
			out = append(out, axis.Mul(-backward))
		}
	}
}

// splitmix64 is the finalizer used to derive independent per-iteration seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func iterationRand(seed int64, iteration int) *rand.Rand {
	mixed := splitmix64(uint64(seed) ^ splitmix64(uint64(iteration)))
	//nolint:gosec
	return rand.New(rand.NewSource(int64(mixed)))
}

// hypothesize draws one sample pair and returns its best scoring model, or nil if the pair
// cannot propose a spin.
func (p *problem) hypothesize(iteration int, seed int64, maxSpin float64) *model {
	n := len(p.times)
	rng := iterationRand(seed, iteration)
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	if p.times[j] < p.times[i] {
		i, j = j, i
	}
	dt := p.times[j] - p.times[i]
	if dt < MinDeltaT {
		return nil
	}

	principal := spatialmath.RotationRate(spatialmath.OrientationBetween(p.rotations[i], p.rotations[j]), dt)
	proposals := []r3.Vector{{}}
	if principal.Speed()*dt >= MinPairAngle {
		proposals = candidates(principal, dt, maxSpin)
	}

	var best *model
	for _, omega := range proposals {
		inliers, residualSum := p.score(omega, i)
		m := &model{omega: omega, reference: i, inliers: inliers, residualSum: residualSum, iteration: iteration}
		if m.better(best) {
			best = m
		}
	}
	return best
}

// ransac evaluates every iteration, in parallel groups, and returns the best model. Each
// iteration draws from its own generator and writes only its own slot, so the result does not
// depend on how iterations are scheduled.
func (r *Regressor) ransac(ctx context.Context, p *problem) (*model, error) {
	results := make([]*model, r.cfg.Iterations)
	err := utils.GroupWorkParallel(
		ctx,
		r.cfg.Iterations,
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				results[workNum] = p.hypothesize(workNum, r.cfg.Seed, r.cfg.MaxSpinRadS)
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	var best *model
	for _, m := range results {
		if m != nil && m.better(best) {
			best = m
		}
	}
	return best, nil
}
