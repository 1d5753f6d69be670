// Package pose implements the pose bootstrapper (component C6): an
// initial-FOV sweep followed by region-growing densification, on top of a
// PoseSolver contract that keeps the actual pose-from-
// correspondences numerics swappable.
package pose

import (
	"errors"

	"calibgo/internal/calib/camera"
	"calibgo/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// Correspondence pairs a known board object point with its observed image
// location.
type Correspondence struct {
	Object geometry.Point3D
	Image  geometry.Point2D
}

// Solver estimates a world_T_camera pose from 2D/3D correspondences under
// a given camera model.
type Solver interface {
	EstimatePose(model camera.Model, correspondences []Correspondence) (geometry.Pose, error)
}

// ErrInsufficientCorrespondences is returned when fewer than 4 points are
// supplied; a planar homography is not determined below that.
var ErrInsufficientCorrespondences = errors.New("pose: need at least 4 correspondences")

// PlanarHomographySolver is the reference PoseSolver implementation: it
// estimates pose from coplanar object points (the board's xz-plane,
// y=0) via a direct linear transform homography
// followed by rotation orthonormalization, the standard planar-target
// pose-from-homography technique (Zhang's camera calibration method).
type PlanarHomographySolver struct{}

// NewPlanarHomographySolver returns the reference solver.
func NewPlanarHomographySolver() *PlanarHomographySolver {
	return &PlanarHomographySolver{}
}

// EstimatePose fits a homography between the object plane's (x, z)
// coordinates and the normalized (distortion-free) image plane, then
// decomposes it into a rotation and translation.
func (s *PlanarHomographySolver) EstimatePose(model camera.Model, correspondences []Correspondence) (geometry.Pose, error) {
	n := len(correspondences)
	if n < 4 {
		return geometry.Pose{}, ErrInsufficientCorrespondences
	}

	a := mat.NewDense(2*n, 9, nil)
	for i, c := range correspondences {
		x, z := c.Object.X, c.Object.Z
		xn := (c.Image.X - model.CX) / model.FX
		yn := (c.Image.Y - model.CY) / model.FY

		a.SetRow(2*i, []float64{x, z, 1, 0, 0, 0, -xn * x, -xn * z, -xn})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, z, 1, -yn * x, -yn * z, -yn})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return geometry.Pose{}, errors.New("pose: homography SVD failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	// The homography solution is the right singular vector for the
	// smallest singular value, i.e. the last column of V for a full SVD.
	lastCol := v.RawMatrix().Cols - 1
	h := make([]float64, 9)
	for i := 0; i < 9; i++ {
		h[i] = v.At(i, lastCol)
	}

	r1 := geometry.Point3D{X: h[0], Y: h[3], Z: h[6]}
	r2 := geometry.Point3D{X: h[1], Y: h[4], Z: h[7]}
	t := geometry.Point3D{X: h[2], Y: h[5], Z: h[8]}

	scale := 2.0 / (r1.Norm() + r2.Norm())
	r1, r2, t = r1.Scale(scale), r2.Scale(scale), t.Scale(scale)

	if t.Z < 0 {
		r1, r2, t = r1.Scale(-1), r2.Scale(-1), t.Scale(-1)
	}

	// r1 and r2 are the camera-frame images of the world X and Z axes; the
	// world Y axis completes the right-handed frame as Z x X.
	rY := r2.Cross(r1)
	r := orthonormalize(r1, rY, r2)
	cameraTWorld := geometry.Pose{Rotation: r, Translation: t}
	return cameraTWorld.Inverse(), nil
}

// orthonormalize projects the three (approximately orthogonal) columns
// onto the nearest proper rotation matrix via SVD: R = U * V^T.
func orthonormalize(r1, r2, r3 geometry.Point3D) geometry.Rotation3 {
	m := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3.X,
		r1.Y, r2.Y, r3.Y,
		r1.Z, r2.Z, r3.Z,
	})

	var svd mat.SVD
	svd.Factorize(m, mat.SVDFull)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())

	return geometry.Rotation3{
		r.At(0, 0), r.At(0, 1), r.At(0, 2),
		r.At(1, 0), r.At(1, 1), r.At(1, 2),
		r.At(2, 0), r.At(2, 1), r.At(2, 2),
	}
}
