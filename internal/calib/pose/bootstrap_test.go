package pose

import (
	"testing"

	"calibgo/internal/calib/camera"
	"calibgo/pkg/geometry"
)

func TestSweepFOVRecoversBestInlierModel(t *testing.T) {
	trueModel := camera.NewPinhole(640, 480, 620, 620, 320, 240)
	truePose := geometry.Pose{
		Rotation:    geometry.RotationY(0.1),
		Translation: geometry.Point3D{X: 0, Y: 0, Z: 0.6},
	}

	var correspondences []Correspondence
	for _, x := range []float64{-0.05, -0.02, 0, 0.02, 0.05} {
		for _, z := range []float64{-0.05, -0.02, 0, 0.02, 0.05} {
			obj := geometry.Point3D{X: x, Y: 0, Z: z}
			img, ok := trueModel.Project(truePose, obj)
			if !ok {
				t.Fatalf("expected point to project")
			}
			correspondences = append(correspondences, Correspondence{Object: obj, Image: img})
		}
	}

	b := NewBootstrapper(NewPlanarHomographySolver())
	result, ok := b.SweepFOV(640, 480, correspondences)
	if !ok {
		t.Fatal("expected SweepFOV to find a candidate")
	}
	if result.Inliers < len(correspondences)-2 {
		t.Errorf("expected most correspondences to be inliers, got %d/%d", result.Inliers, len(correspondences))
	}
}

func TestSweepFOVFailsWithoutCorrespondences(t *testing.T) {
	b := NewBootstrapper(NewPlanarHomographySolver())
	_, ok := b.SweepFOV(640, 480, nil)
	if ok {
		t.Error("expected SweepFOV to fail with no correspondences")
	}
}
