package calibrator

import (
	"errors"
	"math"
	"testing"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/camera"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/marker"
	"calibgo/internal/calib/point"
	"calibgo/internal/calib/render"
	"calibgo/pkg/geometry"
)

// frontalPose returns a world_T_camera pose for a camera sitting distance
// meters from the board's origin along its own "out of board" axis,
// looking straight at it: the camera's right axis maps to the board's X
// axis and its forward axis to the board's Y (out-of-plane) axis, so a
// flat board renders fronto-parallel before any distortion is applied.
func frontalPose(distance float64) geometry.Pose {
	return geometry.Pose{
		Rotation:    geometry.Rotation3{1, 0, 0, 0, 0, 1, 0, -1, 0},
		Translation: geometry.Point3D{Y: -distance},
	}
}

// buildPerspectiveBoard generates a small deterministic board and wraps it
// with physical marker dimensions, for the projection-driven tests below.
func buildPerspectiveBoard(t *testing.T, seed int64, xMarkers, yMarkers int, markerSizeMM float64) *board.MetricBoard {
	t.Helper()
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(seed, xMarkers, yMarkers, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := board.NewMetricBoard(b, geometry.Millimeters(markerSizeMM), geometry.Millimeters(markerSizeMM))
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}
	return mb
}

// TestCalibratorRecoversPinholeIntrinsicsFromProjectedFrame feeds a frame
// actually projected through a distorted pinhole camera (not a regular
// pixel grid) and checks that handleImage/finalize recovers intrinsics
// close to the ground truth, exercising ChainQuadFinder's detection and
// chaining path end to end.
func TestCalibratorRecoversPinholeIntrinsicsFromProjectedFrame(t *testing.T) {
	mb := buildPerspectiveBoard(t, 42, 2, 2, 40)

	truth := camera.NewPinhole(960, 720, 900, 900, 480, 360)
	truth.K1 = -0.08
	pose := frontalPose(0.15)

	img, err := render.PerspectiveFrame(mb, truth, pose)
	if err != nil {
		t.Fatalf("PerspectiveFrame: %v", err)
	}

	cfg := DefaultConfig()
	cfg.SampleThreshold = 128
	cfg.ConnectTolerance = 80
	cfg.MatchTolerance = 6
	cfg.MinSeedScore = 1
	cfg.MinCorrespondences = 50

	quads := marker.NewChainQuadFinder(point.NewDetector(cfg.Detector))
	calib := New(cfg, mb, quads)

	if err := calib.HandleImage("frame0", img); err != nil {
		t.Fatalf("HandleImage: %v", err)
	}

	result, err := calib.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if math.IsNaN(result.MeanReprojectionPx) || math.IsInf(result.MeanReprojectionPx, 0) {
		t.Fatalf("non-finite mean reprojection error: %v", result.MeanReprojectionPx)
	}
	if result.MeanReprojectionPx > 5.0 {
		t.Errorf("mean reprojection error too high: %g px", result.MeanReprojectionPx)
	}

	fxErr := math.Abs(result.Model.FX-truth.FX) / truth.FX
	if fxErr > 0.2 {
		t.Errorf("recovered fx too far from ground truth: got %g, want near %g (%.1f%% off)", result.Model.FX, truth.FX, fxErr*100)
	}
}

// TestCalibratorRecoversFisheyeCoverageFromProjectedFrames feeds several
// frames through a wide-angle fisheye camera, checking that the FOV
// sweep in pose.Bootstrapper.SweepFOV actually picks the fisheye model
// (a pinhole fit is implausible above its FOV cap) and that accumulated
// correspondences eventually reach reasonable coverage.
func TestCalibratorRecoversFisheyeCoverageFromProjectedFrames(t *testing.T) {
	mb := buildPerspectiveBoard(t, 1, 2, 2, 60)

	truth := camera.NewFisheye(960, 720, 310, 310, 480, 360) // FovX() ~ 114 degrees
	cfg := DefaultConfig()
	cfg.SampleThreshold = 128
	cfg.ConnectTolerance = 80
	cfg.MatchTolerance = 6
	cfg.MinSeedScore = 1
	cfg.MinCorrespondences = 40

	quads := marker.NewChainQuadFinder(point.NewDetector(cfg.Detector))
	calib := New(cfg, mb, quads)

	distances := []float64{0.15, 0.17, 0.2}
	accepted := 0
	for i, d := range distances {
		pose := frontalPose(d)
		img, err := render.PerspectiveFrame(mb, truth, pose)
		if err != nil {
			t.Fatalf("PerspectiveFrame: %v", err)
		}
		if err := calib.HandleImage(NewImageID(), img); err != nil {
			t.Logf("frame %d rejected: %v", i, err)
			continue
		}
		accepted++
	}
	if accepted == 0 {
		t.Fatal("expected at least one accepted fisheye frame")
	}

	result, err := calib.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.Model.Kind != camera.Fisheye {
		t.Errorf("expected a fisheye model to win the FOV sweep, got %s", result.Model.Kind)
	}
	if math.IsNaN(result.MeanReprojectionPx) || math.IsInf(result.MeanReprojectionPx, 0) {
		t.Fatalf("non-finite mean reprojection error: %v", result.MeanReprojectionPx)
	}
}

// TestCalibratorRejectsBlankFrame feeds a frame with no rendered board
// content: handleImage must report ErrNoBoardDetected (not
// ErrInvalidImage, which only covers malformed images), and finalize on
// the resulting empty session must report ErrInsufficientObservations.
func TestCalibratorRejectsBlankFrame(t *testing.T) {
	mb := buildPerspectiveBoard(t, 7, 2, 2, 40)

	blank := imagery.NewGrayscaleImage(640, 480)
	for i := range blank.Data {
		blank.Data[i] = 255
	}

	quads := marker.NewChainQuadFinder(point.NewDetector(DefaultConfig().Detector))
	calib := New(DefaultConfig(), mb, quads)

	err := calib.HandleImage("blank", blank)
	if err == nil {
		t.Fatal("expected an error for a blank frame")
	}
	if !errors.Is(err, ErrNoBoardDetected) {
		t.Errorf("expected ErrNoBoardDetected, got %v", err)
	}

	if _, err := calib.Finalize(); !errors.Is(err, ErrInsufficientObservations) {
		t.Errorf("expected ErrInsufficientObservations, got %v", err)
	}
}
