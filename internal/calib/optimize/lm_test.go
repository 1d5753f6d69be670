package optimize

import (
	"math"
	"testing"
)

// TestLevenbergMarquardtFitsLine fits y = a*x + b to noiseless data,
// checking the solver converges to the known coefficients.
func TestLevenbergMarquardtFitsLine(t *testing.T) {
	const trueA, trueB = 2.5, -1.0
	xs := []float64{-2, -1, 0, 1, 2, 3}

	residual := func(params []float64) []float64 {
		a, b := params[0], params[1]
		r := make([]float64, len(xs))
		for i, x := range xs {
			predicted := a*x + b
			observed := trueA*x + trueB
			r[i] = predicted - observed
		}
		return r
	}

	lm := NewLevenbergMarquardt()
	result, err := lm.Optimize([]float64{0, 0}, residual)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if math.Abs(result[0]-trueA) > 1e-3 {
		t.Errorf("a = %g, want %g", result[0], trueA)
	}
	if math.Abs(result[1]-trueB) > 1e-3 {
		t.Errorf("b = %g, want %g", result[1], trueB)
	}
}

func TestLevenbergMarquardtNoResidualsIsNoOp(t *testing.T) {
	lm := NewLevenbergMarquardt()
	result, err := lm.Optimize([]float64{1, 2, 3}, func([]float64) []float64 { return nil })
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result[0] != 1 || result[1] != 2 || result[2] != 3 {
		t.Errorf("expected unchanged params, got %v", result)
	}
}
