package calibrator

import (
	"math"
	"testing"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/marker"
)

// paintMarkerQuad rasterizes a marker matrix into an axis-aligned pixel
// quad, inverting every module for an Inverted-sign marker so the
// assembler's photographic-complement recovery path exercises for real.
func paintMarkerQuad(img *imagery.GrayscaleImage, originX, originY, cellSize float64, m layout.Matrix5x5, sign board.Sign) {
	modulePx := cellSize / float64(layout.Size)
	for row := 0; row < layout.Size; row++ {
		for col := 0; col < layout.Size; col++ {
			dark := m.Get(col, row)
			if sign == board.Inverted {
				dark = !dark
			}
			v := byte(255)
			if dark {
				v = 0
			}
			x0 := int(originX + float64(col)*modulePx)
			y0 := int(originY + float64(row)*modulePx)
			x1 := int(originX + float64(col+1)*modulePx)
			y1 := int(originY + float64(row+1)*modulePx)
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					img.Set(x, y, v)
				}
			}
		}
	}
}

// buildSyntheticFrame paints a 2x2-marker board into a grayscale image
// using a regular pixel grid, matching the axis-aligned fronto-parallel
// mapping UniformGridQuadFinder expects: image coordinates are a pure
// scale-and-offset of the board's object-space (X, Z) plane.
func buildSyntheticFrame(t *testing.T, mb *board.MetricBoard, cellSize, originX, originY float64) *imagery.GrayscaleImage {
	t.Helper()

	width := int(originX*2 + cellSize*float64(mb.XMarkers()))
	height := int(originY*2 + cellSize*float64(mb.YMarkers()))
	img := imagery.NewGrayscaleImage(width, height)
	for i := range img.Data {
		img.Data[i] = 255
	}

	for y := 0; y < mb.YMarkers(); y++ {
		for x := 0; x < mb.XMarkers(); x++ {
			bm := mb.MarkerAt(board.Coordinate{X: x, Y: y})
			rotated := mb.Catalog().At(bm.ID).Rotated(int(bm.Orientation))
			paintMarkerQuad(img, originX+float64(x)*cellSize, originY+float64(y)*cellSize, cellSize, rotated, bm.Sign)
		}
	}
	return img
}

func TestCalibratorHandlesSyntheticFrameAndFinalizes(t *testing.T) {
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(1, 2, 2, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := board.NewMetricBoard(b, 30, 30)
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}

	const cellSize = 200.0
	const origin = 50.0
	img := buildSyntheticFrame(t, mb, cellSize, origin, origin)

	quads := marker.UniformGridQuadFinder{
		OriginX: origin, OriginY: origin,
		CellSize: cellSize,
		Columns:  mb.XMarkers(), Rows: mb.YMarkers(),
	}

	cfg := DefaultConfig()
	cfg.SampleThreshold = 128
	cfg.ConnectTolerance = 60
	cfg.MatchTolerance = 2
	cfg.MinSeedScore = 1
	cfg.MinCorrespondences = 50

	calib := New(cfg, mb, quads)
	if err := calib.HandleImage("frame0", img); err != nil {
		t.Fatalf("HandleImage: %v", err)
	}

	obs := calib.Observations()
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if len(obs[0].Correspondences) < cfg.MinCorrespondences {
		t.Errorf("expected at least %d correspondences, got %d", cfg.MinCorrespondences, len(obs[0].Correspondences))
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
}

func TestCalibratorRejectsInvalidImage(t *testing.T) {
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(1, 2, 2, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := board.NewMetricBoard(b, 30, 30)
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}

	quads := marker.UniformGridQuadFinder{Columns: 2, Rows: 2, CellSize: 200}
	calib := New(DefaultConfig(), mb, quads)

	bad := &imagery.GrayscaleImage{}
	if err := calib.HandleImage("bad", bad); err == nil {
		t.Fatal("expected an error for an invalid image")
	}
}

func TestCalibratorFinalizeWithoutObservationsFails(t *testing.T) {
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(1, 2, 2, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := board.NewMetricBoard(b, 30, 30)
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}

	quads := marker.UniformGridQuadFinder{Columns: 2, Rows: 2, CellSize: 200}
	calib := New(DefaultConfig(), mb, quads)
	if _, err := calib.Finalize(); err == nil {
		t.Fatal("expected an error finalizing with no observations")
	}
}
