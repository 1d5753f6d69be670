// Command calibviewer runs the calibration pipeline on a synthetic or
// captured board frame and reports what it found.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/calibrator"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/marker"
	"calibgo/internal/calib/point"
	"calibgo/internal/calib/render"
	"calibgo/internal/version"
	"calibgo/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	imagePath := flag.String("image", "", "Path to a captured board image (TIFF, PNG, or JPEG); if empty, a synthetic frame is rendered")
	configPath := flag.String("config", "", "Path to a YAML calibration config; if empty, defaults are used")
	seed := flag.Int64("seed", 0, "Board generation seed, when rendering a synthetic frame")
	xMarkers := flag.Int("x-markers", 8, "Board width in markers, when rendering a synthetic frame")
	yMarkers := flag.Int("y-markers", 13, "Board height in markers, when rendering a synthetic frame")
	markerSizeMM := flag.Float64("marker-size-mm", 25, "Marker side length in millimeters, when rendering a synthetic frame")
	cellSize := flag.Float64("cell-size-px", 120, "Per-marker pixel cell size, when rendering a synthetic frame")
	flag.Parse()

	if *showVersion {
		fmt.Printf("calibviewer %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg := calibrator.DefaultConfig()
	if *configPath != "" {
		loaded, err := calibrator.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	cat := layout.BuildCatalog()
	fmt.Printf("Catalog: %d marker patterns\n", cat.Size())

	mb, quads, img, err := loadOrRenderFrame(*imagePath, cfg, *seed, *xMarkers, *yMarkers, *markerSizeMM, *cellSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare frame: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Frame: %dx%d pixels, board %dx%d markers\n", img.Width, img.Height, mb.XMarkers(), mb.YMarkers())

	calib := calibrator.New(cfg, mb, quads)
	if err := calib.HandleImage(calibrator.NewImageID(), img); err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline failed: %v\n", err)
		os.Exit(1)
	}

	obs := calib.Observations()[0]
	fmt.Printf("\nBootstrapped pose:\n")
	fmt.Printf("  Model kind: %s, fx=%.1f fy=%.1f cx=%.1f cy=%.1f\n", obs.Model.Kind, obs.Model.FX, obs.Model.FY, obs.Model.CX, obs.Model.CY)
	fmt.Printf("  Correspondences: %d\n", len(obs.Correspondences))
	fmt.Printf("  Coverage: %.1f%%\n", obs.Coverage(mb)*100)

	fmt.Printf("\nRefining...\n")
	result, err := calib.Finalize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Refinement failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nFinal model: %s, fx=%.2f fy=%.2f cx=%.2f cy=%.2f\n", result.Model.Kind, result.Model.FX, result.Model.FY, result.Model.CX, result.Model.CY)
	fmt.Printf("Mean reprojection error: %.4f px\n", result.MeanReprojectionPx)
	if result.NeedMorePasses {
		fmt.Println("Recommendation: capture more frames and run Finalize again.")
	}
}

// loadOrRenderFrame either decodes a captured image (paired with a
// ChainQuadFinder that detects and chains its own marker borders from
// pixel content, since a captured frame's marker grid isn't known in
// advance) or generates and rasterizes a fresh synthetic board, for which
// UniformGridQuadFinder's regular-grid shortcut is valid and cheaper.
func loadOrRenderFrame(path string, cfg calibrator.Config, seed int64, xMarkers, yMarkers int, markerSizeMM, cellSize float64) (*board.MetricBoard, marker.QuadFinder, *imagery.GrayscaleImage, error) {
	if path != "" {
		mb, err := cfg.Board.Build()
		if err != nil {
			return nil, nil, nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()

		decoded, format, err := image.Decode(f)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("decoding image: %w", err)
		}
		fmt.Printf("Decoded %s image\n", format)

		img := imagery.FromImage(decoded)
		quads := marker.NewChainQuadFinder(point.NewDetector(cfg.Detector))
		return mb, quads, img, nil
	}

	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(seed, xMarkers, yMarkers, cat)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generating board: %w", err)
	}
	mb, err := board.NewMetricBoard(b, geometry.Millimeters(markerSizeMM), geometry.Millimeters(markerSizeMM))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building metric board: %w", err)
	}

	opts := render.DefaultOptions()
	opts.CellSize = cellSize
	img, err := render.Frame(mb, opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rendering frame: %w", err)
	}

	quads := marker.UniformGridQuadFinder{
		OriginX: opts.OriginX, OriginY: opts.OriginY,
		CellSize: opts.CellSize,
		Columns:  mb.XMarkers(), Rows: mb.YMarkers(),
	}
	return mb, quads, img, nil
}
