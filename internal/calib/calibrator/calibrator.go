// Package calibrator implements the calibration facade (component C7):
// it drives detection, assembly, locating and pose bootstrapping per
// image, then jointly refines the shared camera model and per-image
// poses across every accepted observation.
package calibrator

import (
	"fmt"
	"math"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/camera"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/locate"
	"calibgo/internal/calib/marker"
	"calibgo/internal/calib/optimize"
	"calibgo/internal/calib/point"
	"calibgo/internal/calib/pose"
	"calibgo/pkg/geometry"
)

// cornerIndexInMarker lists the object-point indices of a marker's 5x5
// module grid that sit nearest its own four corners (clockwise from
// top-left), paired against marker.ModuleCenters in the same order.
var cornerIndexInMarker = [4]int{0, layout.Size - 1, layout.Size*layout.Size - 1, layout.Size*layout.Size - layout.Size}

// Calibrator accumulates observations across images and refines a shared
// camera model against all of them.
type Calibrator struct {
	cfg   Config
	board *board.MetricBoard
	quads marker.QuadFinder

	observations []*Observation
	model        camera.Model
	haveModel    bool
}

// New creates a calibrator bound to a board and QuadFinder. The QuadFinder
// is the per-deployment marker-quad locator; see marker.ChainQuadFinder for
// the image-driven reference implementation, and
// marker.UniformGridQuadFinder for the regular-grid special case.
func New(cfg Config, mb *board.MetricBoard, quads marker.QuadFinder) *Calibrator {
	return &Calibrator{cfg: cfg, board: mb, quads: quads}
}

// Observations returns every accepted observation so far.
func (c *Calibrator) Observations() []*Observation {
	return c.observations
}

// HandleImage runs the full per-image pipeline: quad finding, marker
// assembly and identification, board locating, FOV-swept pose
// bootstrapping, and correspondence densification. On success it appends
// a new Observation and returns nil.
func (c *Calibrator) HandleImage(id string, img *imagery.GrayscaleImage) error {
	if err := img.Validate(); err != nil {
		return fmt.Errorf("calibrator: image %q: %w: %v", id, ErrInvalidImage, err)
	}

	asm := marker.NewAssembler(c.board.Catalog(), c.cfg.SampleThreshold)
	for _, q := range c.quads.FindQuads(img) {
		asm.AddQuad(img, q)
	}
	asm.Identify()
	asm.Connect(c.cfg.ConnectTolerance)

	candidates := asm.Candidates()
	if len(candidates) == 0 {
		return fmt.Errorf("calibrator: image %q: %w", id, ErrNoBoardDetected)
	}

	imageCenter := geometry.Point2D{X: float64(img.Width) / 2, Y: float64(img.Height) / 2}
	loc := locate.New(c.board.Board)
	if err := loc.Locate(candidates, imageCenter, c.cfg.MinSeedScore); err != nil {
		return fmt.Errorf("calibrator: image %q: %w: %v", id, ErrNoBoardDetected, err)
	}

	seedCorrespondences, seedCoord, ok := cornerCorrespondences(c.board, candidates)
	if !ok || len(seedCorrespondences) < 4 {
		return fmt.Errorf("calibrator: image %q: %w", id, ErrInsufficientObservations)
	}

	bootstrapper := pose.NewBootstrapper(pose.NewPlanarHomographySolver())
	result, ok := bootstrapper.SweepFOV(img.Width, img.Height, seedCorrespondences)
	if !ok {
		return fmt.Errorf("calibrator: image %q: %w", id, ErrOptimizerFailure)
	}

	detections := c.detectionPool(img, candidates)
	dense := pose.Densify(result.Model, result.Pose, c.board, seedCoord, detections, c.cfg.MatchTolerance)
	if len(dense) < c.cfg.MinCorrespondences {
		return fmt.Errorf("calibrator: image %q: %w (%d < %d)", id, ErrInsufficientObservations, len(dense), c.cfg.MinCorrespondences)
	}

	c.observations = append(c.observations, &Observation{
		ImageID:         id,
		Model:           result.Model,
		Pose:            result.Pose,
		Correspondences: dense,
	})
	if !c.haveModel {
		c.model, c.haveModel = result.Model, true
	}

	return nil
}

// cornerCorrespondences builds seed correspondences from every placed
// candidate's four corner-module centers against the board's matching
// object points, returning one representative placed coordinate to seed
// densification from. It pairs against module centers (see
// marker.ModuleCenters), not the quad's own geometric corners, since
// ObjectPoint(idx) for a corner module is itself inset half a module
// from the marker's true edge.
func cornerCorrespondences(mb *board.MetricBoard, candidates []*marker.Candidate) ([]pose.Correspondence, board.Coordinate, bool) {
	var out []pose.Correspondence
	var seed board.Coordinate
	found := false

	for _, c := range candidates {
		if !c.Placed {
			continue
		}
		if !found {
			seed, found = c.Coordinate, true
		}
		centers := marker.ModuleCenters(c.Corners)
		for _, idx := range cornerIndexInMarker {
			obj := mb.ObjectPoint(board.ObjectPointID{Coordinate: c.Coordinate, IndexInMarker: idx})
			out = append(out, pose.Correspondence{Object: obj, Image: centers[idx]})
		}
	}
	return out, seed, found
}

// detectionPool returns the pool of image-space points densification
// matches against. When the calibrator's QuadFinder is image-driven (it
// wraps a point.Detector, as marker.ChainQuadFinder does), the same
// detector pass is reused directly: those are real dot observations, not
// geometrically-known positions. Otherwise (e.g. marker.UniformGridQuadFinder,
// which consults no pixel data) module centers stand in for a detection
// pool, since there is no detector to ask.
func (c *Calibrator) detectionPool(img *imagery.GrayscaleImage, candidates []*marker.Candidate) []point.Point {
	if cq, ok := c.quads.(*marker.ChainQuadFinder); ok {
		if pts, err := cq.Detector.Detect(img); err == nil {
			return pts
		}
	}
	return flattenModuleSamples(candidates)
}

// flattenModuleSamples collects every candidate's 25 module-center image
// positions as a detection-pool stand-in, for QuadFinder implementations
// that aren't backed by a point.Detector.
func flattenModuleSamples(candidates []*marker.Candidate) []point.Point {
	out := make([]point.Point, 0, len(candidates)*layout.Size*layout.Size)
	for _, c := range candidates {
		for _, center := range marker.ModuleCenters(c.Corners) {
			out = append(out, point.Point{X: center.X, Y: center.Y})
		}
	}
	return out
}

// distortionCount returns how many distortion coefficients a model kind
// carries.
func distortionCount(kind camera.ModelKind) int {
	if kind == camera.Fisheye {
		return 8
	}
	return 5
}

// packParams flattens the shared model and every observation's pose into
// one parameter vector: [fx, fy, cx, cy, distortion..., pose0, pose1, ...].
func packParams(model camera.Model, observations []*Observation) []float64 {
	dn := distortionCount(model.Kind)
	params := make([]float64, 0, 4+dn+len(observations)*6)
	params = append(params, model.FX, model.FY, model.CX, model.CY)

	if model.Kind == camera.Fisheye {
		params = append(params, model.Fisheye[:]...)
	} else {
		params = append(params, model.K1, model.K2, model.K3, model.P1, model.P2)
	}

	for _, obs := range observations {
		rv := obs.Pose.Rotation.RotationVector()
		params = append(params, rv.X, rv.Y, rv.Z, obs.Pose.Translation.X, obs.Pose.Translation.Y, obs.Pose.Translation.Z)
	}
	return params
}

// unpackParams is packParams's inverse: it rebuilds the shared model and
// per-observation poses from a flat parameter vector.
func unpackParams(kind camera.ModelKind, width, height int, params []float64, numObservations int) (camera.Model, []geometry.Pose) {
	model := camera.Model{Kind: kind, Width: width, Height: height, FX: params[0], FY: params[1], CX: params[2], CY: params[3]}
	dn := distortionCount(kind)
	if kind == camera.Fisheye {
		copy(model.Fisheye[:], params[4:4+dn])
	} else {
		model.K1, model.K2, model.K3, model.P1, model.P2 = params[4], params[5], params[6], params[7], params[8]
	}

	poseOffset := 4 + dn
	poses := make([]geometry.Pose, numObservations)
	for i := 0; i < numObservations; i++ {
		base := poseOffset + i*6
		rv := geometry.Point3D{X: params[base], Y: params[base+1], Z: params[base+2]}
		poses[i] = geometry.Pose{
			Rotation:    geometry.RotationFromVector(rv),
			Translation: geometry.Point3D{X: params[base+3], Y: params[base+4], Z: params[base+5]},
		}
	}
	return model, poses
}

// jointResidual builds the NonLinearOptimizer residual function over
// every observation's correspondences, sharing one camera model across
// all of them.
func jointResidual(kind camera.ModelKind, width, height int, observations []*Observation) optimize.Residual {
	return func(params []float64) []float64 {
		model, poses := unpackParams(kind, width, height, params, len(observations))

		var residuals []float64
		for i, obs := range observations {
			for _, corr := range obs.Correspondences {
				proj, ok := model.Project(poses[i], corr.Object)
				if !ok {
					residuals = append(residuals, 1e6, 1e6)
					continue
				}
				residuals = append(residuals, proj.X-corr.Image.X, proj.Y-corr.Image.Y)
			}
		}
		return residuals
	}
}

// FinalizeResult is the outcome of one refinement pass.
type FinalizeResult struct {
	Model              camera.Model
	MeanReprojectionPx float64
	NeedMorePasses     bool
}

// Finalize jointly refines the shared camera model and every
// observation's pose using a two-stage strategy: the first
// stage frees intrinsics, the major distortion term, and all poses; the
// second frees every remaining distortion coefficient. It reports whether
// another Finalize call (after more HandleImage calls) is recommended.
func (c *Calibrator) Finalize() (FinalizeResult, error) {
	if len(c.observations) == 0 {
		return FinalizeResult{}, fmt.Errorf("calibrator: %w", ErrInsufficientObservations)
	}

	kind := c.model.Kind
	width, height := c.model.Width, c.model.Height

	layoutSpec := optimize.Layout{
		Images:               len(c.observations),
		DistortionCount:      distortionCount(kind),
		MajorDistortionIndex: 0,
	}
	stages := optimize.BuildStages(optimize.UpToMajorDistortionAfterAnother, layoutSpec)

	initial := packParams(c.model, c.observations)
	residual := jointResidual(kind, width, height, c.observations)

	staged := optimize.NewStagedOptimizer(optimize.NewLevenbergMarquardt())
	refined, err := staged.Run(initial, residual, stages)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("calibrator: %w: %v", ErrOptimizerFailure, err)
	}

	model, poses := unpackParams(kind, width, height, refined, len(c.observations))
	for i, obs := range c.observations {
		obs.Pose = poses[i]
		obs.Invalidate()
	}
	c.model = model

	finalResidual := residual(refined)
	mean := meanAbsResidualPx(finalResidual)
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return FinalizeResult{}, fmt.Errorf("calibrator: %w", ErrArithmetic)
	}

	return FinalizeResult{
		Model:              model,
		MeanReprojectionPx: mean,
		NeedMorePasses:     mean > 1.0 || len(c.observations) < 3,
	}, nil
}

func meanAbsResidualPx(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r {
		sum += math.Abs(v)
	}
	return sum / float64(len(r))
}
