package pose

import (
	"testing"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/camera"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/point"
	"calibgo/pkg/geometry"
)

func buildTestMetricBoard(t *testing.T, xMarkers, yMarkers int) *board.MetricBoard {
	t.Helper()
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(42, xMarkers, yMarkers, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := board.NewMetricBoard(b, 30, 30)
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}
	return mb
}

func TestDensifyGrowsAcrossFullBoard(t *testing.T) {
	mb := buildTestMetricBoard(t, 3, 3)

	model := camera.NewPinhole(1280, 960, 1400, 1400, 640, 480)
	truePose := geometry.Pose{
		Rotation:    geometry.RotationY(0.05),
		Translation: geometry.Point3D{X: 0, Y: 0, Z: 1.2},
	}

	var detections []point.Point
	for _, id := range mb.AllObjectPoints() {
		obj := mb.ObjectPoint(id)
		img, ok := model.Project(truePose, obj)
		if !ok {
			continue
		}
		detections = append(detections, point.Point{X: img.X, Y: img.Y})
	}

	seed := board.Coordinate{X: 1, Y: 1}
	correspondences := Densify(model, truePose, mb, seed, detections, 1.0)

	want := mb.XMarkers() * mb.YMarkers() * layout.Size * layout.Size
	if len(correspondences) < want-layout.Size*layout.Size {
		t.Errorf("expected nearly full densification (%d points), got %d", want, len(correspondences))
	}
}

func TestDensifyStopsWhenSeedHasNoDetections(t *testing.T) {
	mb := buildTestMetricBoard(t, 3, 3)
	model := camera.NewPinhole(1280, 960, 1400, 1400, 640, 480)
	pose := geometry.IdentityPose()
	pose.Translation.Z = 1.2

	seed := board.Coordinate{X: 1, Y: 1}
	correspondences := Densify(model, pose, mb, seed, nil, 1.0)
	if len(correspondences) != 0 {
		t.Errorf("expected no correspondences without detections, got %d", len(correspondences))
	}
}
