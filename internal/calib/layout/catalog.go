package layout

// interiorSize is the side length of the interior 3x3 block of modules
// that may differ from all-ones; the outer ring stays solid (border
// invariant).
const interiorSize = 3

// interiorOffset is where the interior block starts within the 5x5 grid.
const interiorOffset = 1

// interiorCellCount is the number of interior modules (3x3 = 9).
const interiorCellCount = interiorSize * interiorSize

// CatalogIndex identifies one entry of the marker catalog.
type CatalogIndex int

// Catalog is the deterministic, ordered list of 5x5 matrices satisfying
// the MarkerLayout invariants: solid border, and no two entries related
// by a 0/90/180/270 degree rotation.
type Catalog struct {
	entries []Matrix5x5
}

// Size returns the number of catalog entries.
func (c *Catalog) Size() int {
	return len(c.entries)
}

// At returns the catalog entry's canonical ("north") matrix.
func (c *Catalog) At(i CatalogIndex) Matrix5x5 {
	return c.entries[i]
}

// Identify searches the catalog for an entry that equals the observed
// matrix under some rotation, returning that entry's index and the
// clockwise rotation (in quarter turns) that was applied to reach the
// observed orientation from the catalog's canonical ("north") matrix.
func (c *Catalog) Identify(observed Matrix5x5) (CatalogIndex, Orientation, bool) {
	for i, entry := range c.entries {
		for turns := 0; turns < 4; turns++ {
			if entry.Rotated(turns).Equal(observed) {
				return CatalogIndex(i), Orientation(turns), true
			}
		}
	}
	return 0, 0, false
}

// interiorCoord converts an interior cell index in [0, 9) to (x, y)
// coordinates within the full 5x5 grid.
func interiorCoord(cell int) (int, int) {
	row := cell / interiorSize
	col := cell % interiorSize
	return interiorOffset + col, interiorOffset + row
}

// diagonallyAdjacent reports whether two interior cell indices are
// diagonal neighbors in the 3x3 interior grid.
func diagonallyAdjacent(a, b int) bool {
	ax, ay := a%interiorSize, a/interiorSize
	bx, by := b%interiorSize, b/interiorSize
	dx, dy := ax-bx, ay-by
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx == 1 && dy == 1
}

// combinations calls fn with each k-sized subset of [0, n), in
// lexicographic order, for deterministic, reproducible catalog
// construction.
func combinations(n, k int, fn func(subset []int)) {
	if k > n || k < 0 {
		return
	}
	subset := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			fn(subset)
			return
		}
		for i := start; i < n; i++ {
			subset[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// BuildCatalog deterministically enumerates the marker catalog: matrices
// differing from the all-ones matrix in exactly k interior cells, for
// k = 1..4, skipping diagonally-adjacent 2-cell changes, keeping only
// candidates with no rotational self-symmetry and no rotational relation
// to an already-accepted entry.
func BuildCatalog() *Catalog {
	cat := &Catalog{}

	for k := 1; k <= 4; k++ {
		combinations(interiorCellCount, k, func(subset []int) {
			if k == 2 && diagonallyAdjacent(subset[0], subset[1]) {
				return
			}

			candidate := AllOnesMatrix()
			for _, cell := range subset {
				x, y := interiorCoord(cell)
				candidate.Set(x, y, false)
			}

			if !candidate.IsBorderSolid() {
				return // unreachable given construction, kept for defensiveness
			}
			if candidate.HasRotationalSymmetry() {
				return
			}
			for _, accepted := range cat.entries {
				if rotationallyEqual(candidate, accepted) {
					return
				}
			}

			cat.entries = append(cat.entries, candidate)
		})
	}

	return cat
}
