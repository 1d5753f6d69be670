package pose

import (
	"math"

	"calibgo/internal/calib/camera"
	"calibgo/pkg/geometry"
)

// fovSweepSteps is the number of horizontal-FOV candidates tried between
// fovSweepMinDeg and fovSweepMaxDeg.
const fovSweepSteps = 20

const (
	fovSweepMinDeg = 20.0
	fovSweepMaxDeg = 175.0
	// pinholePlausibleMaxDeg rejects pinhole fits above a field of view no
	// rectilinear lens could plausibly produce; fisheye fits are exempt.
	pinholePlausibleMaxDeg = 100.0
)

// reprojectTolerance is the max pixel distance between a correspondence's
// observed point and its model-projected point to count as an inlier.
const reprojectTolerance = 3.0

// Bootstrapper sweeps candidate fields of view to find an initial camera
// model and pose before nonlinear refinement.
type Bootstrapper struct {
	Solver Solver
}

// NewBootstrapper binds a bootstrapper to a PoseSolver implementation.
func NewBootstrapper(solver Solver) *Bootstrapper {
	return &Bootstrapper{Solver: solver}
}

// Result is the best camera model and pose found by a sweep, with the
// inlier count it achieved against the supplied correspondences.
type Result struct {
	Model   camera.Model
	Pose    geometry.Pose
	Inliers int
}

// SweepFOV tries fovSweepSteps horizontal fields of view between 20 and
// 175 degrees, for both pinhole and fisheye camera kinds, fitting a pose
// at each and scoring it by reprojection inlier count. It returns the
// best-scoring combination, or ok=false if no candidate produced a valid
// pose.
func (b *Bootstrapper) SweepFOV(width, height int, correspondences []Correspondence) (Result, bool) {
	var best Result
	found := false

	step := (fovSweepMaxDeg - fovSweepMinDeg) / float64(fovSweepSteps-1)

	for i := 0; i < fovSweepSteps; i++ {
		fovDeg := fovSweepMinDeg + float64(i)*step

		for _, kind := range []camera.ModelKind{camera.Pinhole, camera.Fisheye} {
			if kind == camera.Pinhole && fovDeg > pinholePlausibleMaxDeg {
				continue
			}

			model := modelForFOV(kind, width, height, fovDeg)
			candidatePose, err := b.Solver.EstimatePose(model, correspondences)
			if err != nil {
				continue
			}

			inliers := countInliers(model, candidatePose, correspondences)
			if !found || inliers > best.Inliers {
				best = Result{Model: model, Pose: candidatePose, Inliers: inliers}
				found = true
			}
		}
	}

	return best, found
}

// modelForFOV builds a zero-distortion model whose horizontal field of
// view matches fovDeg, with the principal point centered.
func modelForFOV(kind camera.ModelKind, width, height int, fovDeg float64) camera.Model {
	fovRad := fovDeg * math.Pi / 180
	fx := float64(width) / (2 * math.Tan(fovRad/2))

	if kind == camera.Fisheye {
		return camera.NewFisheye(width, height, fx, fx, float64(width)/2, float64(height)/2)
	}
	return camera.NewPinhole(width, height, fx, fx, float64(width)/2, float64(height)/2)
}

// countInliers returns how many correspondences reproject within
// reprojectTolerance pixels of their observed image point.
func countInliers(model camera.Model, worldTCamera geometry.Pose, correspondences []Correspondence) int {
	count := 0
	for _, c := range correspondences {
		proj, ok := model.Project(worldTCamera, c.Object)
		if !ok {
			continue
		}
		if proj.Distance(c.Image) <= reprojectTolerance {
			count++
		}
	}
	return count
}
