package board

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"calibgo/internal/calib/layout"
)

// ErrCannotSatisfyUniqueness is returned by GenerateBoard when no
// (id, sign, orientation) combination keeps the N4-Unique invariant for
// some grid cell within the attempt budget — the catalog is too small
// for the requested board dimensions.
var ErrCannotSatisfyUniqueness = errors.New("board: catalog too small to satisfy N4-Unique invariant for requested dimensions")

// maxPlacementAttempts bounds the per-cell rejection sampling loop during
// generation.
const maxPlacementAttempts = 20000

// Board is an xMarkers by yMarkers grid of oriented catalog markers
// satisfying the N4-Unique invariant.
type Board struct {
	xMarkers, yMarkers int
	markers            []BoardMarker // row-major: index = x + y*xMarkers
	typeIndex          map[Type][]Coordinate
	hash               uint64
	catalog            *layout.Catalog
}

// XMarkers returns the number of horizontal markers.
func (b *Board) XMarkers() int { return b.xMarkers }

// YMarkers returns the number of vertical markers.
func (b *Board) YMarkers() int { return b.yMarkers }

// Hash returns the board's representative hash.
func (b *Board) Hash() uint64 { return b.hash }

// Catalog returns the marker catalog this board was built from.
func (b *Board) Catalog() *layout.Catalog { return b.catalog }

// Marker returns the board marker at (x, y).
func (b *Board) Marker(x, y int) BoardMarker {
	return b.markers[x+y*b.xMarkers]
}

// MarkerAt returns the board marker at a Coordinate.
func (b *Board) MarkerAt(c Coordinate) BoardMarker {
	return b.Marker(c.X, c.Y)
}

// CoordinatesWithType returns up to 4 coordinates carrying the given
// marker type (typeIndex).
func (b *Board) CoordinatesWithType(t Type) []Coordinate {
	return b.typeIndex[t]
}

// GenerateBoard deterministically builds a board of the requested
// dimensions from the given catalog, seeded for reproducibility. Markers are placed row-major; each cell's (id, sign,
// orientation) is chosen by rejection sampling against a deterministic
// per-seed RNG so that the N4-Unique invariant holds against every
// already-placed neighbor.
func GenerateBoard(seed int64, xMarkers, yMarkers int, catalog *layout.Catalog) (*Board, error) {
	if xMarkers <= 0 || yMarkers <= 0 {
		return nil, fmt.Errorf("board: invalid dimensions %dx%d", xMarkers, yMarkers)
	}
	if catalog == nil || catalog.Size() == 0 {
		return nil, fmt.Errorf("board: empty catalog")
	}

	rng := rand.New(rand.NewSource(seed))

	b := &Board{
		xMarkers: xMarkers,
		yMarkers: yMarkers,
		markers:  make([]BoardMarker, xMarkers*yMarkers),
		catalog:  catalog,
	}

	seenEdges := make(map[uint64]bool)
	catSize := catalog.Size()

	for y := 0; y < yMarkers; y++ {
		for x := 0; x < xMarkers; x++ {
			placed, newEdges, ok := placeCell(b, rng, x, y, catSize, seenEdges)
			if !ok {
				return nil, ErrCannotSatisfyUniqueness
			}
			b.markers[x+y*xMarkers] = placed
			for _, e := range newEdges {
				seenEdges[e] = true
			}
		}
	}

	b.buildTypeIndex()
	b.hash = computeHash(b)

	return b, nil
}

// placeCell tries candidate (id, sign, orientation) combinations for grid
// cell (x, y) until one keeps every already-placed 4-neighbor edge unique.
func placeCell(b *Board, rng *rand.Rand, x, y, catSize int, seenEdges map[uint64]bool) (BoardMarker, []uint64, bool) {
	coord := Coordinate{X: x, Y: y}

	var west, north BoardMarker
	hasWest, hasNorth := x > 0, y > 0
	if hasWest {
		west = b.Marker(x-1, y)
	}
	if hasNorth {
		north = b.Marker(x, y-1)
	}

	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		candidate := BoardMarker{
			Marker: Marker{
				ID:   layout.CatalogIndex(rng.Intn(catSize)),
				Sign: Sign(rng.Intn(2)),
			},
			Orientation: layout.Orientation(rng.Intn(4)),
			Coordinate:  coord,
		}

		var newEdges []uint64
		conflict := false

		if hasWest {
			key := neighborEdgeKey(candidate, west)
			if seenEdges[key] {
				conflict = true
			} else {
				newEdges = append(newEdges, key)
			}
		}
		if !conflict && hasNorth {
			key := neighborEdgeKey(candidate, north)
			if seenEdges[key] {
				conflict = true
			} else {
				newEdges = append(newEdges, key)
			}
		}

		if conflict {
			continue
		}
		return candidate, newEdges, true
	}

	return BoardMarker{}, nil, false
}

func (b *Board) buildTypeIndex() {
	b.typeIndex = make(map[Type][]Coordinate)
	for _, m := range b.markers {
		t := m.Type()
		b.typeIndex[t] = append(b.typeIndex[t], m.Coordinate)
	}
}

// computeHash returns a representative hash of the board's dimensions and
// every marker's (id, sign, orientation, coordinate).
func computeHash(b *Board) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 8)
	writeUint := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf)
	}
	writeUint(uint64(b.xMarkers))
	writeUint(uint64(b.yMarkers))
	for _, m := range b.markers {
		writeUint(uint64(m.ID))
		writeUint(uint64(m.Sign))
		writeUint(uint64(m.Orientation))
		writeUint(uint64(m.Coordinate.X))
		writeUint(uint64(m.Coordinate.Y))
	}
	return h.Sum64()
}

// VerifyN4Unique re-checks the invariant from scratch; used by tests and
// as an assertion after generation.
func (b *Board) VerifyN4Unique() error {
	seen := make(map[uint64]int)
	for y := 0; y < b.yMarkers; y++ {
		for x := 0; x < b.xMarkers; x++ {
			m := b.Marker(x, y)
			for _, dir := range []layout.Orientation{layout.North, layout.East, layout.South, layout.West} {
				n := m.Coordinate.Neighbor(dir)
				if n.X < 0 || n.X >= b.xMarkers || n.Y < 0 || n.Y >= b.yMarkers {
					continue
				}
				key := neighborEdgeKey(m, b.MarkerAt(n))
				seen[key]++
			}
		}
	}
	for key, count := range seen {
		if count != 2 {
			return fmt.Errorf("board: N4-Unique violated, edge key %d seen %d times (want 2)", key, count)
		}
	}
	return nil
}

// UniquenessCounters are the three diagnostic counters from
// DetermineUniqueness.
type UniquenessCounters struct {
	OneIdenticalNeighbor   int
	TwoIdenticalNeighbors  int
	ThreeIdenticalNeighbors int
}

// DetermineUniqueness compares two boards' neighbor-edge keys: for each marker
// of board B, it counts how many of its up-to-4 neighbor edges also occur
// somewhere in board A, then reports how many markers in B have at least
// 1, 2, or 3 such shared edges.
func DetermineUniqueness(a, b *Board) UniquenessCounters {
	edgesA := make(map[uint64]bool)
	for y := 0; y < a.yMarkers; y++ {
		for x := 0; x < a.xMarkers; x++ {
			m := a.Marker(x, y)
			for _, dir := range []layout.Orientation{layout.North, layout.East, layout.South, layout.West} {
				n := m.Coordinate.Neighbor(dir)
				if n.X < 0 || n.X >= a.xMarkers || n.Y < 0 || n.Y >= a.yMarkers {
					continue
				}
				edgesA[neighborEdgeKey(m, a.MarkerAt(n))] = true
			}
		}
	}

	var counters UniquenessCounters
	for y := 0; y < b.yMarkers; y++ {
		for x := 0; x < b.xMarkers; x++ {
			m := b.Marker(x, y)
			local := 0
			for _, dir := range []layout.Orientation{layout.North, layout.East, layout.South, layout.West} {
				n := m.Coordinate.Neighbor(dir)
				if n.X < 0 || n.X >= b.xMarkers || n.Y < 0 || n.Y >= b.yMarkers {
					continue
				}
				if edgesA[neighborEdgeKey(m, b.MarkerAt(n))] {
					local++
				}
			}
			if local >= 1 {
				counters.OneIdenticalNeighbor++
			}
			if local >= 2 {
				counters.TwoIdenticalNeighbors++
			}
			if local >= 3 {
				counters.ThreeIdenticalNeighbors++
			}
		}
	}

	return counters
}

// DetermineOptimalMarkerGrid picks x/y marker counts close to the given
// aspect ratio (width/height) with at least minMarkers total cells,
// grounded on CalibrationBoard::determineOptimalMarkerGrid.
func DetermineOptimalMarkerGrid(aspectRatio float64, minMarkers int) (xMarkers, yMarkers int, ok bool) {
	if aspectRatio <= 1e-9 || minMarkers <= 0 {
		return 0, 0, false
	}

	yMarkersD := math.Sqrt(float64(minMarkers) / aspectRatio)
	xMarkersD := aspectRatio * yMarkersD
	xMarkersD = math.Max(1, math.Floor(xMarkersD))
	yMarkersD = math.Max(1, math.Floor(yMarkersD))

	bestRatio := math.MaxFloat64
	x, y := 0, 0

	for option := 0; option < 4; option++ {
		xExtra := option & 1
		yExtra := (option >> 1) & 1

		xCandidate := int(xMarkersD) + xExtra
		yCandidate := int(yMarkersD) + yExtra

		if xCandidate*yCandidate < minMarkers {
			continue
		}
		if x != 0 && x <= xCandidate && y <= yCandidate {
			break
		}

		ratio := float64(xCandidate) / float64(yCandidate)
		if x == 0 || math.Abs(ratio-aspectRatio) < math.Abs(bestRatio-aspectRatio) {
			bestRatio = ratio
			x, y = xCandidate, yCandidate
		}
	}

	if x*y < minMarkers {
		return 0, 0, false
	}
	return x, y, true
}

// DetermineOptimalYMarkers picks the y marker count closest to the given
// aspect ratio for a fixed x marker count.
func DetermineOptimalYMarkers(aspectRatio float64, xMarkers int) (yMarkers int, ok bool) {
	if aspectRatio <= 1e-9 || xMarkers <= 0 {
		return 0, false
	}
	yMarkersD := float64(xMarkers) / aspectRatio
	y := int(math.Max(1, math.Round(yMarkersD)))
	return y, true
}
