// Package camera implements the CameraModel contract: a tagged
// union of pinhole and fisheye projection models with their distortion
// parameters, preferring a concrete variant struct over virtual dispatch.
package camera

import (
	"math"

	"calibgo/pkg/geometry"
)

// ModelKind distinguishes the two supported lens models.
type ModelKind int

const (
	Pinhole ModelKind = iota
	Fisheye
)

func (k ModelKind) String() string {
	if k == Fisheye {
		return "fisheye"
	}
	return "pinhole"
}

// Model is a camera intrinsic model: a pinhole model with up to three
// radial and two tangential distortion coefficients, or a fisheye model
// with up to eight distortion coefficients.
type Model struct {
	Kind ModelKind

	Width, Height int

	FX, FY float64
	CX, CY float64

	// Pinhole distortion: k1, k2, k3 radial; p1, p2 tangential.
	K1, K2, K3 float64
	P1, P2     float64

	// Fisheye distortion coefficients (equidistant projection model with
	// up to 8 polynomial terms on the distorted angle).
	Fisheye [8]float64
}

// NewPinhole returns a pinhole model with zero distortion.
func NewPinhole(width, height int, fx, fy, cx, cy float64) Model {
	return Model{Kind: Pinhole, Width: width, Height: height, FX: fx, FY: fy, CX: cx, CY: cy}
}

// NewFisheye returns a fisheye model with zero distortion.
func NewFisheye(width, height int, fx, fy, cx, cy float64) Model {
	return Model{Kind: Fisheye, Width: width, Height: height, FX: fx, FY: fy, CX: cx, CY: cy}
}

// width returns the image width in pixels.
func (m Model) width() int { return m.Width }

// height returns the image height in pixels.
func (m Model) height() int { return m.Height }

// FovX returns the horizontal field of view in radians.
func (m Model) FovX() float64 {
	return 2 * math.Atan2(float64(m.Width)/2, m.FX)
}

// IsInside reports whether an image point falls within the sensor,
// expanded or contracted by margin pixels on every side.
func (m Model) IsInside(p geometry.Point2D, margin float64) bool {
	return p.X >= -margin && p.Y >= -margin &&
		p.X < float64(m.Width)+margin && p.Y < float64(m.Height)+margin
}

// ProjectIF projects an object point, given as seen from the camera
// ("flipped_T_world" — i.e. already expressed in the camera's own frame,
// with z forward), into the image. Points behind the camera return
// ok=false.
func (m Model) ProjectIF(cameraPoint geometry.Point3D) (geometry.Point2D, bool) {
	if cameraPoint.Z <= 1e-9 {
		return geometry.Point2D{}, false
	}

	switch m.Kind {
	case Fisheye:
		return m.projectFisheye(cameraPoint)
	default:
		return m.projectPinhole(cameraPoint)
	}
}

// Project transforms a world-frame object point by the given pose
// (world_T_camera convention: pose maps camera-frame points into world
// frame, so points are projected via the pose's inverse) and projects it.
func (m Model) Project(worldTCamera geometry.Pose, objectPoint geometry.Point3D) (geometry.Point2D, bool) {
	cameraTWorld := worldTCamera.Inverse()
	cameraPoint := cameraTWorld.Apply(objectPoint)
	return m.ProjectIF(cameraPoint)
}

func (m Model) projectPinhole(p geometry.Point3D) (geometry.Point2D, bool) {
	x := p.X / p.Z
	y := p.Y / p.Z

	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	radial := 1 + m.K1*r2 + m.K2*r4 + m.K3*r6

	xTang := 2*m.P1*x*y + m.P2*(r2+2*x*x)
	yTang := m.P1*(r2+2*y*y) + 2*m.P2*x*y

	xd := x*radial + xTang
	yd := y*radial + yTang

	return geometry.Point2D{
		X: m.FX*xd + m.CX,
		Y: m.FY*yd + m.CY,
	}, true
}

// projectFisheye implements the equidistant fisheye model: the distorted
// angle theta_d is a polynomial in the incidence angle theta, following
// the same convention as pinhole's radial series but expressed on angle
// rather than radius (standard wide-FOV lens model, e.g. OpenCV's
// fisheye module and Kannala-Brandt).
func (m Model) projectFisheye(p geometry.Point3D) (geometry.Point2D, bool) {
	r := math.Hypot(p.X, p.Y)
	theta := math.Atan2(r, p.Z)

	if theta < 1e-12 {
		return geometry.Point2D{X: m.CX, Y: m.CY}, true
	}

	theta2 := theta * theta
	thetaD := theta
	thetaPow := theta * theta2 // theta^3
	for i := 0; i < 8; i++ {
		thetaD += m.Fisheye[i] * thetaPow
		thetaPow *= theta2
	}

	scale := thetaD / r

	xd := p.X * scale
	yd := p.Y * scale

	return geometry.Point2D{
		X: m.FX*xd + m.CX,
		Y: m.FY*yd + m.CY,
	}, true
}
