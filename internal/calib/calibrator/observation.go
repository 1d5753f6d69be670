package calibrator

import (
	"calibgo/internal/calib/board"
	"calibgo/internal/calib/camera"
	"calibgo/internal/calib/pose"
	"calibgo/pkg/geometry"

	"github.com/google/uuid"
)

// NewImageID returns a fresh unique identifier for an Observation, for
// callers that don't already have a natural image id (a filename, a
// capture timestamp) to pass to Calibrator.HandleImage.
func NewImageID() string {
	return uuid.New().String()
}

// Observation is one calibrated image's contribution: its estimated pose
// and the correspondences it found against the known board.
type Observation struct {
	ImageID         string
	Model           camera.Model
	Pose            geometry.Pose
	Correspondences []pose.Correspondence

	coverage      float64
	coverageValid bool
}

// Invalidate marks the observation's cached coverage stale, so the next
// Coverage call recomputes it; Calibrator.Finalize calls it after
// refinement updates the observation.
func (o *Observation) Invalidate() {
	o.coverageValid = false
}

// Coverage returns the fraction of the board's total object points this
// observation accounts for, computed lazily and cached until the next
// Invalidate.
func (o *Observation) Coverage(mb *board.MetricBoard) float64 {
	if o.coverageValid {
		return o.coverage
	}
	total := len(mb.AllObjectPoints())
	if total == 0 {
		o.coverage, o.coverageValid = 0, true
		return 0
	}
	o.coverage = float64(len(o.Correspondences)) / float64(total)
	o.coverageValid = true
	return o.coverage
}
