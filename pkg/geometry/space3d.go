package geometry

import "math"

// Millimeters is a length measured in millimeters. Kept as a distinct
// named type (rather than a bare float64) so board/marker size parameters
// cannot be silently swapped with pixel or meter quantities at a call site.
type Millimeters float64

// Meters converts a millimeter length to meters.
func (m Millimeters) Meters() float64 {
	return float64(m) / 1000.0
}

// Point3D represents a point in 3D space.
type Point3D struct {
	X, Y, Z float64
}

// NewPoint3D creates a new Point3D.
func NewPoint3D(x, y, z float64) Point3D {
	return Point3D{X: x, Y: y, Z: z}
}

// Add returns the sum of two points.
func (p Point3D) Add(other Point3D) Point3D {
	return Point3D{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Sub returns the difference of two points.
func (p Point3D) Sub(other Point3D) Point3D {
	return Point3D{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Scale returns the point scaled by a factor.
func (p Point3D) Scale(factor float64) Point3D {
	return Point3D{X: p.X * factor, Y: p.Y * factor, Z: p.Z * factor}
}

// Dot returns the dot product with another point treated as a vector.
func (p Point3D) Dot(other Point3D) float64 {
	return p.X*other.X + p.Y*other.Y + p.Z*other.Z
}

// Cross returns the cross product with another point treated as a vector.
func (p Point3D) Cross(other Point3D) Point3D {
	return Point3D{
		X: p.Y*other.Z - p.Z*other.Y,
		Y: p.Z*other.X - p.X*other.Z,
		Z: p.X*other.Y - p.Y*other.X,
	}
}

// Norm returns the Euclidean length of the vector.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// Normalized returns a unit-length copy, or the zero vector if p is
// degenerate.
func (p Point3D) Normalized() Point3D {
	n := p.Norm()
	if n < 1e-12 {
		return Point3D{}
	}
	return p.Scale(1.0 / n)
}

// Rotation3 is a 3x3 rotation matrix stored row-major.
type Rotation3 [9]float64

// Identity3 returns the identity rotation.
func Identity3() Rotation3 {
	return Rotation3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// RotationY returns the rotation about the Y axis by the given angle in
// radians, using the same convention the calibration board uses to place
// rotated markers in its xz-plane (see MetricBoard.ObjectPoint).
func RotationY(radians float64) Rotation3 {
	c, s := math.Cos(radians), math.Sin(radians)
	return Rotation3{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

// Apply rotates a point by the rotation matrix.
func (r Rotation3) Apply(p Point3D) Point3D {
	return Point3D{
		X: r[0]*p.X + r[1]*p.Y + r[2]*p.Z,
		Y: r[3]*p.X + r[4]*p.Y + r[5]*p.Z,
		Z: r[6]*p.X + r[7]*p.Y + r[8]*p.Z,
	}
}

// Transposed returns the transpose (= inverse, for an orthonormal rotation).
func (r Rotation3) Transposed() Rotation3 {
	return Rotation3{
		r[0], r[3], r[6],
		r[1], r[4], r[7],
		r[2], r[5], r[8],
	}
}

// Mul composes two rotations: (r * other).Apply(p) == r.Apply(other.Apply(p)).
func (r Rotation3) Mul(other Rotation3) Rotation3 {
	var out Rotation3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += r[row*3+k] * other[k*3+col]
			}
			out[row*3+col] = sum
		}
	}
	return out
}

// RotationVector returns the axis-angle (Rodrigues) vector of the rotation;
// its direction is the rotation axis and its magnitude the angle in radians.
func (r Rotation3) RotationVector() Point3D {
	trace := r[0] + r[4] + r[8]
	cosTheta := (trace - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)

	if theta < 1e-9 {
		return Point3D{}
	}

	axis := Point3D{
		X: r[7] - r[5],
		Y: r[2] - r[6],
		Z: r[3] - r[1],
	}

	if math.Pi-theta < 1e-6 {
		// Near-180-degree rotation: the antisymmetric part vanishes, recover
		// the axis from the symmetric part instead.
		axis = Point3D{
			X: math.Sqrt(math.Max(0, (r[0]-cosTheta)/(1-cosTheta))),
			Y: math.Sqrt(math.Max(0, (r[4]-cosTheta)/(1-cosTheta))),
			Z: math.Sqrt(math.Max(0, (r[8]-cosTheta)/(1-cosTheta))),
		}
		return axis.Normalized().Scale(theta)
	}

	axis = axis.Scale(1.0 / (2 * math.Sin(theta)))
	return axis.Scale(theta)
}

// RotationFromVector builds a rotation matrix from a Rodrigues rotation
// vector using Rodrigues' formula.
func RotationFromVector(v Point3D) Rotation3 {
	theta := v.Norm()
	if theta < 1e-12 {
		return Identity3()
	}
	axis := v.Scale(1.0 / theta)
	c, s := math.Cos(theta), math.Sin(theta)
	t := 1 - c

	x, y, z := axis.X, axis.Y, axis.Z
	return Rotation3{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c,
	}
}

// Pose is a rigid transform, named "A_T_B" for "transforms points from
// B's frame into A's frame".
type Pose struct {
	Rotation    Rotation3
	Translation Point3D
}

// IdentityPose returns the identity pose.
func IdentityPose() Pose {
	return Pose{Rotation: Identity3()}
}

// Apply transforms a point by the pose.
func (p Pose) Apply(pt Point3D) Point3D {
	return p.Rotation.Apply(pt).Add(p.Translation)
}

// Inverse returns the inverse pose (B_T_A from A_T_B).
func (p Pose) Inverse() Pose {
	rInv := p.Rotation.Transposed()
	return Pose{
		Rotation:    rInv,
		Translation: rInv.Apply(p.Translation).Scale(-1),
	}
}

// Compose returns the pose equal to applying `other` first, then `p`
// (p * other, in transform-composition order).
func (p Pose) Compose(other Pose) Pose {
	return Pose{
		Rotation:    p.Rotation.Mul(other.Rotation),
		Translation: p.Rotation.Apply(other.Translation).Add(p.Translation),
	}
}

// RotationAngleTo returns the angle in radians between two rotations,
// used by tests checking pose-recovery accuracy against a tolerance.
func (a Rotation3) RotationAngleTo(b Rotation3) float64 {
	rel := a.Transposed().Mul(b)
	trace := rel[0] + rel[4] + rel[8]
	cosTheta := (trace - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	return math.Acos(cosTheta)
}
