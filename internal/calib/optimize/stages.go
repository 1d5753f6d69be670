package optimize

// Strategy selects which parameters unfreeze at each stage of a staged
// calibration refinement.
type Strategy int

const (
	// UpToMajorDistortionAfterAnother optimizes intrinsics' focal length,
	// principal point, and the first (major) radial distortion term
	// alongside every pose first; only in a second pass do the remaining
	// minor distortion terms unfreeze.
	UpToMajorDistortionAfterAnother Strategy = iota
	// AllParametersAfterAnother holds every distortion coefficient frozen
	// in the first pass (focal length, principal point and poses only),
	// then unfreezes all of them together in the second pass.
	AllParametersAfterAnother
)

// Stage is one pass of a staged optimization: Active marks which entries
// of the full parameter vector are free to move this pass.
type Stage struct {
	Name   string
	Active []bool
}

// Layout describes how a flat calibration parameter vector is organized:
// 4 intrinsics (fx, fy, cx, cy), then DistortionCount distortion
// coefficients, then 6 pose parameters (rotation vector, translation) per
// observed image.
type Layout struct {
	Images int

	// MajorDistortionIndex is the index, within the distortion block,
	// of the dominant term (the first radial coefficient).
	MajorDistortionIndex int
	DistortionCount       int
}

const intrinsicsCount = 4
const poseParamsPerImage = 6

// Total returns the full parameter vector length for this layout.
func (l Layout) Total() int {
	return intrinsicsCount + l.DistortionCount + l.Images*poseParamsPerImage
}

// BuildStages returns the stage sequence for a strategy (two
// passes, the first with some parameters held fixed, the second freeing
// the rest).
func BuildStages(strategy Strategy, l Layout) []Stage {
	n := l.Total()

	allActive := make([]bool, n)
	for i := range allActive {
		allActive[i] = true
	}

	first := make([]bool, n)
	// Intrinsics' focal length and principal point, plus every pose, are
	// always free from the start.
	for i := 0; i < intrinsicsCount; i++ {
		first[i] = true
	}
	for i := intrinsicsCount + l.DistortionCount; i < n; i++ {
		first[i] = true
	}

	switch strategy {
	case UpToMajorDistortionAfterAnother:
		if l.DistortionCount > 0 {
			first[intrinsicsCount+l.MajorDistortionIndex] = true
		}
	case AllParametersAfterAnother:
		// distortion stays frozen in the first pass
	}

	return []Stage{
		{Name: "major", Active: first},
		{Name: "full", Active: allActive},
	}
}

// StagedOptimizer drives an Optimizer through a sequence of Stages,
// optimizing only the active subset of parameters at each stage while
// holding the rest fixed at their current value.
type StagedOptimizer struct {
	Inner Optimizer
}

// NewStagedOptimizer wraps an Optimizer (typically a *LevenbergMarquardt)
// with staged parameter unfreezing.
func NewStagedOptimizer(inner Optimizer) *StagedOptimizer {
	return &StagedOptimizer{Inner: inner}
}

// Run optimizes `full` through every stage in order, returning the final
// parameter vector.
func (s *StagedOptimizer) Run(full []float64, residual Residual, stages []Stage) ([]float64, error) {
	x := append([]float64(nil), full...)

	for _, stage := range stages {
		var activeIdx []int
		for i, a := range stage.Active {
			if a {
				activeIdx = append(activeIdx, i)
			}
		}
		if len(activeIdx) == 0 {
			continue
		}

		sub := make([]float64, len(activeIdx))
		for i, idx := range activeIdx {
			sub[i] = x[idx]
		}

		base := append([]float64(nil), x...)
		subResidual := func(subParams []float64) []float64 {
			full := append([]float64(nil), base...)
			for i, idx := range activeIdx {
				full[idx] = subParams[i]
			}
			return residual(full)
		}

		result, err := s.Inner.Optimize(sub, subResidual)
		if err != nil {
			return x, err
		}
		for i, idx := range activeIdx {
			x[idx] = result[i]
		}
	}

	return x, nil
}
