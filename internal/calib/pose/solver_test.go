package pose

import (
	"testing"

	"calibgo/internal/calib/camera"
	"calibgo/pkg/geometry"
)

func TestPlanarHomographySolverRecoversKnownPose(t *testing.T) {
	model := camera.NewPinhole(640, 480, 500, 500, 320, 240)

	truePose := geometry.Pose{
		Rotation:    geometry.RotationY(0.2),
		Translation: geometry.Point3D{X: 0.01, Y: 0.02, Z: 0.5},
	}

	var correspondences []Correspondence
	for _, x := range []float64{-0.05, -0.02, 0, 0.02, 0.05} {
		for _, z := range []float64{-0.05, -0.02, 0, 0.02, 0.05} {
			obj := geometry.Point3D{X: x, Y: 0, Z: z}
			img, ok := model.Project(truePose, obj)
			if !ok {
				t.Fatalf("expected point (%g,%g) to project", x, z)
			}
			correspondences = append(correspondences, Correspondence{Object: obj, Image: img})
		}
	}

	solver := NewPlanarHomographySolver()
	estimated, err := solver.EstimatePose(model, correspondences)
	if err != nil {
		t.Fatalf("EstimatePose: %v", err)
	}

	angleErr := truePose.Rotation.RotationAngleTo(estimated.Rotation)
	if angleErr > 0.05 {
		t.Errorf("rotation error too large: %g rad", angleErr)
	}

	dx := truePose.Translation.Sub(estimated.Translation)
	if dx.Norm() > 0.05 {
		t.Errorf("translation error too large: %g m, got %+v want %+v", dx.Norm(), estimated.Translation, truePose.Translation)
	}
}

func TestPlanarHomographySolverRejectsTooFewPoints(t *testing.T) {
	model := camera.NewPinhole(640, 480, 500, 500, 320, 240)
	solver := NewPlanarHomographySolver()

	_, err := solver.EstimatePose(model, []Correspondence{
		{Object: geometry.Point3D{}, Image: geometry.Point2D{}},
	})
	if err != ErrInsufficientCorrespondences {
		t.Errorf("expected ErrInsufficientCorrespondences, got %v", err)
	}
}
