package layout

// Matrix5x5 is a 5x5 binary module matrix: true means a set ("dark")
// module, false an unset ("light") one. The four border rings are always
// set for a valid marker matrix so that a detected marker silhouette is a
// solid square.
type Matrix5x5 [5][5]bool

// Size is the fixed row/column count of a marker matrix.
const Size = 5

// AllOnesMatrix returns the 5x5 matrix with every module set.
func AllOnesMatrix() Matrix5x5 {
	var m Matrix5x5
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			m[y][x] = true
		}
	}
	return m
}

// Get returns the module at (x, y), with x, y in [0, Size).
func (m Matrix5x5) Get(x, y int) bool {
	return m[y][x]
}

// Set mutates the module at (x, y).
func (m *Matrix5x5) Set(x, y int, value bool) {
	m[y][x] = value
}

// IsBorderSolid reports whether every border module is set, i.e. the
// marker silhouette would render as a solid square.
func (m Matrix5x5) IsBorderSolid() bool {
	for i := 0; i < Size; i++ {
		if !m.Get(i, 0) || !m.Get(i, Size-1) || !m.Get(0, i) || !m.Get(Size-1, i) {
			return false
		}
	}
	return true
}

// rotatedCoord maps (x, y) in the rotated frame back to the coordinate in
// the unrotated (stored) frame, for a clockwise rotation of the given
// number of quarter turns. This is the O(1) mapping that lets a View read
// any rotation of a stored matrix without materializing a copy.
func rotatedCoord(x, y, quarterTurns int) (int, int) {
	const n = Size - 1
	switch ((quarterTurns % 4) + 4) % 4 {
	case 0:
		return x, y
	case 1: // 90 clockwise: reading the rotated matrix at (x,y) reads stored (y, n-x)
		return y, n - x
	case 2:
		return n - x, n - y
	case 3:
		return n - y, x
	default:
		return x, y
	}
}

// Rotated materializes the matrix rotated clockwise by the given number of
// quarter turns. Used for catalog construction and duplicate checks, where
// a throwaway full copy is cheap (fixed 25 cells); hot-path readers should
// prefer View for O(1) single-cell access without materializing.
func (m Matrix5x5) Rotated(quarterTurns int) Matrix5x5 {
	var out Matrix5x5
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			sx, sy := rotatedCoord(x, y, quarterTurns)
			out[y][x] = m[sy][sx]
		}
	}
	return out
}

// Equal reports whether two matrices have identical modules.
func (m Matrix5x5) Equal(other Matrix5x5) bool {
	return m == other
}

// View is a read-only, O(1)-per-cell rotated view of a stored matrix; it
// never copies the underlying 25 modules.
type View struct {
	matrix       *Matrix5x5
	quarterTurns int
}

// NewView returns a view of m rotated clockwise by orientation.
func NewView(m *Matrix5x5, orientation Orientation) View {
	return View{matrix: m, quarterTurns: int(orientation)}
}

// Get returns the module at (x, y) in the rotated frame.
func (v View) Get(x, y int) bool {
	sx, sy := rotatedCoord(x, y, v.quarterTurns)
	return v.matrix.Get(sx, sy)
}

// Materialize copies the view into a standalone Matrix5x5.
func (v View) Materialize() Matrix5x5 {
	var out Matrix5x5
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			out[y][x] = v.Get(x, y)
		}
	}
	return out
}

// HasRotationalSymmetry reports whether the matrix equals any of its own
// non-identity 90/180/270 rotations — such a matrix cannot be used as a
// catalog entry because its orientation could not be recovered uniquely
// from the observed bit pattern alone.
func (m Matrix5x5) HasRotationalSymmetry() bool {
	for turns := 1; turns <= 3; turns++ {
		if m.Rotated(turns).Equal(m) {
			return true
		}
	}
	return false
}

// rotationallyEqual reports whether a equals b under any of b's four
// rotations.
func rotationallyEqual(a, b Matrix5x5) bool {
	for turns := 0; turns <= 3; turns++ {
		if a.Equal(b.Rotated(turns)) {
			return true
		}
	}
	return false
}
