package spin

import (
	"slices"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/spindoe/spatialmath"
)

const (
	gaussNewtonSteps = 10
	convergedStep    = 1e-12
)

// refine polishes the RANSAC model with Gauss-Newton over its inliers, measured from the first
// inlier, and re-selects inliers after each round. A round that would leave fewer inliers than
// RANSAC found is discarded and the previous model kept.
func (r *Regressor) refine(p *problem, start *model) *model {
	best := start
	omega, inliers := start.omega, start.inliers
	for round := 0; round < r.cfg.RefineRounds; round++ {
		if len(inliers) < 2 {
			break
		}
		reference := inliers[0]
		next, ok := p.gaussNewton(omega, reference, inliers)
		if !ok {
			r.logger.Debugw("refinement could not solve for a step", "round", round)
			break
		}
		nextInliers, residualSum := p.score(next, reference)
		if len(nextInliers) < len(start.inliers) {
			r.logger.Debugw("refinement lost support, keeping previous model",
				"round", round, "inliers", len(nextInliers), "ransac_inliers", len(start.inliers))
			break
		}
		best = &model{
			omega:       next,
			reference:   reference,
			inliers:     nextInliers,
			residualSum: residualSum,
			iteration:   start.iteration,
		}
		r.logger.Debugw("refinement round", "round", round, "omega", next, "inliers", len(nextInliers))
		if slices.Equal(nextInliers, inliers) {
			break
		}
		omega, inliers = next, nextInliers
	}
	return best
}

// gaussNewton minimizes Σ‖Log(Exp(Δt_k ω)ᵀ R_refᵀ R_k)‖² over ω for the given samples.
func (p *problem) gaussNewton(omega r3.Vector, reference int, samples []int) (r3.Vector, bool) {
	var rows []int
	for _, k := range samples {
		if dt := p.times[k] - p.times[reference]; dt >= MinDeltaT || dt <= -MinDeltaT {
			rows = append(rows, k)
		}
	}
	if len(rows) == 0 {
		return omega, false
	}

	refT := p.rotations[reference].Transpose()
	jac := mat.NewDense(3*len(rows), 3, nil)
	res := mat.NewVecDense(3*len(rows), nil)
	for step := 0; step < gaussNewtonSteps; step++ {
		for row, k := range rows {
			dt := p.times[k] - p.times[reference]
			phi := omega.Mul(dt)
			measured := refT.Mul(p.rotations[k])
			r := spatialmath.Log(spatialmath.Exp(phi).Transpose().Mul(measured))
			res.SetVec(3*row, r.X)
			res.SetVec(3*row+1, r.Y)
			res.SetVec(3*row+2, r.Z)

			jr := spatialmath.RightJacobian(phi)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					jac.Set(3*row+i, j, dt*jr.At(i, j))
				}
			}
		}
		var delta mat.VecDense
		if err := delta.SolveVec(jac, res); err != nil {
			return omega, false
		}
		d := r3.Vector{X: delta.AtVec(0), Y: delta.AtVec(1), Z: delta.AtVec(2)}
		omega = omega.Add(d)
		if d.Norm() < convergedStep*(1+omega.Norm()) {
			break
		}
	}
	return omega, true
}
