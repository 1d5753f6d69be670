package calibrator

import (
	"fmt"
	"io"
	"os"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/point"
	"calibgo/pkg/geometry"

	"gopkg.in/yaml.v3"
)

// BoardSpec is the YAML-serializable description of the board a
// calibration session targets: enough to deterministically regenerate it
// without shipping the board's full marker layout.
type BoardSpec struct {
	Seed          int64   `yaml:"seed"`
	XMarkers      int     `yaml:"x_markers"`
	YMarkers      int     `yaml:"y_markers"`
	XMarkerSizeMM float64 `yaml:"x_marker_size_mm"`
	ZMarkerSizeMM float64 `yaml:"z_marker_size_mm"`
}

// Build regenerates the catalog and metric board this spec describes.
func (s BoardSpec) Build() (*board.MetricBoard, error) {
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(s.Seed, s.XMarkers, s.YMarkers, cat)
	if err != nil {
		return nil, fmt.Errorf("calibrator: building board: %w", err)
	}
	mb, err := board.NewMetricBoard(b, geometry.Millimeters(s.XMarkerSizeMM), geometry.Millimeters(s.ZMarkerSizeMM))
	if err != nil {
		return nil, fmt.Errorf("calibrator: building metric board: %w", err)
	}
	return mb, nil
}

// Config is a calibration session's tunables, loadable from a YAML file.
type Config struct {
	Board BoardSpec `yaml:"board"`

	Detector point.Params `yaml:"-"` // built from the fields below

	DetectorThreshold float64 `yaml:"detector_threshold"`
	SampleThreshold   float64 `yaml:"sample_threshold"`
	ConnectTolerance  float64 `yaml:"connect_tolerance_px"`
	MatchTolerance    float64 `yaml:"match_tolerance_px"`
	MinSeedScore      int     `yaml:"min_seed_score"`

	// MinCorrespondences is the minimum number of board points an image
	// must contribute to be accepted.
	MinCorrespondences int `yaml:"min_correspondences"`
}

// DefaultConfig returns a Config with reasonable detector, assembly and
// refinement defaults.
func DefaultConfig() Config {
	return Config{
		Detector:           point.DefaultParams(),
		DetectorThreshold:  point.DefaultParams().Threshold,
		SampleThreshold:    128,
		ConnectTolerance:   40,
		MatchTolerance:     3,
		MinSeedScore:       1,
		MinCorrespondences: 100,
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("calibrator: opening config: %w", err)
	}
	defer f.Close()
	return parseConfig(f)
}

func parseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("calibrator: parsing config: %w", err)
	}
	cfg.Detector = cfg.Detector.WithThreshold(cfg.DetectorThreshold)
	return cfg, nil
}
