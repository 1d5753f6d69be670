package optimize

import "testing"

func TestBuildStagesUpToMajorDistortion(t *testing.T) {
	l := Layout{Images: 1, DistortionCount: 5, MajorDistortionIndex: 0}
	stages := BuildStages(UpToMajorDistortionAfterAnother, l)
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}

	first := stages[0].Active
	// intrinsics (0-3) always active.
	for i := 0; i < intrinsicsCount; i++ {
		if !first[i] {
			t.Errorf("intrinsic %d should be active in first stage", i)
		}
	}
	// major distortion term (index 4 = intrinsicsCount + 0) is active.
	if !first[intrinsicsCount] {
		t.Error("major distortion term should be active in first stage")
	}
	// remaining distortion terms (5..8) stay frozen.
	for i := intrinsicsCount + 1; i < intrinsicsCount+l.DistortionCount; i++ {
		if first[i] {
			t.Errorf("minor distortion term %d should be frozen in first stage", i)
		}
	}
	// pose params, after the distortion block, are active.
	for i := intrinsicsCount + l.DistortionCount; i < l.Total(); i++ {
		if !first[i] {
			t.Errorf("pose param %d should be active in first stage", i)
		}
	}

	for i, a := range stages[1].Active {
		if !a {
			t.Errorf("full stage should have every parameter active, index %d is not", i)
		}
	}
}

func TestBuildStagesAllParametersAfterAnother(t *testing.T) {
	l := Layout{Images: 2, DistortionCount: 3, MajorDistortionIndex: 0}
	stages := BuildStages(AllParametersAfterAnother, l)
	first := stages[0].Active

	for i := 0; i < l.DistortionCount; i++ {
		if first[intrinsicsCount+i] {
			t.Errorf("distortion term %d should be frozen in the first pass", i)
		}
	}
}

func TestStagedOptimizerRunsEachStage(t *testing.T) {
	l := Layout{Images: 0, DistortionCount: 2, MajorDistortionIndex: 0}
	stages := BuildStages(UpToMajorDistortionAfterAnother, l)

	// Target: intrinsics[0..3] = 3, 1, 1, 1; distortion[0..1] = 5, 7.
	target := []float64{3, 1, 1, 1, 5, 7}
	residual := func(params []float64) []float64 {
		r := make([]float64, len(params))
		for i := range params {
			r[i] = params[i] - target[i]
		}
		return r
	}

	so := NewStagedOptimizer(NewLevenbergMarquardt())
	initial := make([]float64, l.Total())
	result, err := so.Run(initial, residual, stages)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, v := range result {
		if diff := v - target[i]; diff > 1e-2 || diff < -1e-2 {
			t.Errorf("param %d = %g, want %g", i, v, target[i])
		}
	}
}
