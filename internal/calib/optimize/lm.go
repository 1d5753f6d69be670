// Package optimize implements the NonLinearOptimizer contract:
// the iterative refinement step that tightens an initial pose/intrinsics
// estimate against all observed correspondences.
package optimize

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Residual evaluates the current parameter vector and returns one
// residual per observation (e.g. reprojection error components).
type Residual func(params []float64) []float64

// Optimizer is the NonLinearOptimizer contract: minimize the sum of
// squared residuals starting from an initial parameter vector.
type Optimizer interface {
	Optimize(initial []float64, residual Residual) ([]float64, error)
}

// ErrDiverged is returned when the damping factor grows without bound
// without finding a step that reduces cost.
var ErrDiverged = errors.New("optimize: damping diverged without reducing cost")

// LevenbergMarquardt is the reference NonLinearOptimizer implementation: a
// classic damped Gauss-Newton solver using a numeric (finite-difference)
// Jacobian and gonum's dense linear algebra for the normal-equations
// solve.
type LevenbergMarquardt struct {
	MaxIterations      int
	MaxInnerIterations int
	Tolerance          float64
	InitialLambda      float64
	FiniteDiffStep     float64
}

// NewLevenbergMarquardt returns a solver with conservative defaults: a
// 100-iteration cap and a 1e-3 residual-norm convergence tolerance.
func NewLevenbergMarquardt() *LevenbergMarquardt {
	return &LevenbergMarquardt{
		MaxIterations:      100,
		MaxInnerIterations: 20,
		Tolerance:          1e-3,
		InitialLambda:      1e-3,
		FiniteDiffStep:     1e-6,
	}
}

// Optimize runs damped Gauss-Newton iterations until no damped step
// lowers the cost, the cost falls below Tolerance squared (residual norm
// below Tolerance), the iteration cap is hit, or damping diverges.
func (lm *LevenbergMarquardt) Optimize(initial []float64, residual Residual) ([]float64, error) {
	n := len(initial)
	x := append([]float64(nil), initial...)

	r := residual(x)
	if len(r) == 0 {
		return x, nil
	}
	cost := sumSquares(r)
	lambda := lm.InitialLambda

	for iter := 0; iter < lm.MaxIterations; iter++ {
		j := lm.numericJacobian(residual, x, r)
		m := len(r)

		jm := mat.NewDense(m, n, nil)
		for i := 0; i < m; i++ {
			jm.SetRow(i, j[i])
		}
		rv := mat.NewVecDense(m, r)

		var jtj mat.Dense
		jtj.Mul(jm.T(), jm)
		var jtr mat.VecDense
		jtr.MulVec(jm.T(), rv)

		improved := false
		for inner := 0; inner < lm.MaxInnerIterations; inner++ {
			a := mat.NewDense(n, n, nil)
			a.Copy(&jtj)
			for i := 0; i < n; i++ {
				a.Set(i, i, a.At(i, i)*(1+lambda))
			}

			var dx mat.VecDense
			if err := dx.SolveVec(a, &jtr); err != nil {
				lambda *= 10
				continue
			}

			xNew := make([]float64, n)
			for i := range xNew {
				xNew[i] = x[i] - dx.AtVec(i)
			}

			rNew := residual(xNew)
			newCost := sumSquares(rNew)
			if newCost < cost {
				x, r, cost = xNew, rNew, newCost
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				break
			}
			lambda *= 10
			if lambda > 1e12 {
				return x, ErrDiverged
			}
		}

		if !improved {
			break
		}
		if cost < lm.Tolerance*lm.Tolerance {
			break
		}
	}

	return x, nil
}

// numericJacobian computes a central-difference Jacobian of residual at
// x, evaluating residual twice per parameter; r0 = residual(x) supplies
// only the residual count.
func (lm *LevenbergMarquardt) numericJacobian(residual Residual, x []float64, r0 []float64) [][]float64 {
	n := len(x)
	m := len(r0)
	j := make([][]float64, m)
	for i := range j {
		j[i] = make([]float64, n)
	}

	perturbed := append([]float64(nil), x...)
	for p := 0; p < n; p++ {
		h := lm.FiniteDiffStep * math.Max(1, math.Abs(x[p]))

		perturbed[p] = x[p] + h
		rPlus := residual(perturbed)
		perturbed[p] = x[p] - h
		rMinus := residual(perturbed)
		perturbed[p] = x[p]

		for i := 0; i < m; i++ {
			j[i][p] = (rPlus[i] - rMinus[i]) / (2 * h)
		}
	}
	return j
}

func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	return s
}
