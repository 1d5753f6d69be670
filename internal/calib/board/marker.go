// Package board implements the calibration board: a grid of oriented
// catalog markers with the N4-Unique neighborhood invariant, plus the
// metric extension that turns grid coordinates into 3D object points
// (component C2).
package board

import (
	"calibgo/internal/calib/layout"
)

// Sign is whether a marker shows dark dots on a light background
// ("normal") or the photographic complement ("inverted").
type Sign int

const (
	Normal Sign = iota
	Inverted
)

func (s Sign) String() string {
	if s == Inverted {
		return "inverted"
	}
	return "normal"
}

// Marker is the (catalog id, sign) pair — the unique identity of a marker
// ignoring its position or orientation on a board.
type Marker struct {
	ID   layout.CatalogIndex
	Sign Sign
}

// Type packs the marker's identity into a single comparable value:
// (id << 1) | sign bit.
type Type uint32

// Type returns the packed MarkerType for this marker.
func (m Marker) Type() Type {
	bit := uint32(0)
	if m.Sign == Inverted {
		bit = 1
	}
	return Type(uint32(m.ID)<<1 | bit)
}

// Coordinate is an integer grid cell (x, y) naming a marker's board slot.
type Coordinate struct {
	X, Y int
}

// IsNeighbor4 reports whether two coordinates are 4-adjacent.
func (c Coordinate) IsNeighbor4(other Coordinate) bool {
	dx := c.X - other.X
	dy := c.Y - other.Y
	return (dx == 0 && (dy == 1 || dy == -1)) || (dy == 0 && (dx == 1 || dx == -1))
}

// Neighbor returns the coordinate in the given absolute direction.
func (c Coordinate) Neighbor(direction layout.Orientation) Coordinate {
	switch direction {
	case layout.North:
		return Coordinate{c.X, c.Y - 1}
	case layout.East:
		return Coordinate{c.X + 1, c.Y}
	case layout.South:
		return Coordinate{c.X, c.Y + 1}
	case layout.West:
		return Coordinate{c.X - 1, c.Y}
	default:
		return c
	}
}

// DirectionTo returns the absolute direction from c to a 4-adjacent
// coordinate, and false if the two coordinates are not 4-adjacent.
func (c Coordinate) DirectionTo(other Coordinate) (layout.Orientation, bool) {
	dx, dy := other.X-c.X, other.Y-c.Y
	switch {
	case dx == 0 && dy == -1:
		return layout.North, true
	case dx == 1 && dy == 0:
		return layout.East, true
	case dx == 0 && dy == 1:
		return layout.South, true
	case dx == -1 && dy == 0:
		return layout.West, true
	default:
		return 0, false
	}
}

// BoardMarker is a catalog marker placed at a board coordinate with an
// orientation relative to the board axes.
type BoardMarker struct {
	Marker
	Orientation layout.Orientation
	Coordinate  Coordinate
}

// LocalEdgeTo returns the direction to the neighbor, expressed relative
// to this marker's own orientation — the direction a detector would
// observe after canonicalizing the marker candidate to "north".
func (bm BoardMarker) LocalEdgeTo(neighbor BoardMarker) layout.Orientation {
	absolute, ok := bm.Coordinate.DirectionTo(neighbor.Coordinate)
	if !ok {
		return 0
	}
	return absolute.Rotated(-int(bm.Orientation))
}

// NeighborCoordinate maps a neighbor direction expressed in this marker's
// own orientation frame back to an absolute board coordinate, returning
// false if the neighbor would fall outside the grid.
func (bm BoardMarker) NeighborCoordinate(localEdge layout.Orientation, xMarkers, yMarkers int) (Coordinate, bool) {
	absolute := bm.Orientation.Rotated(int(localEdge))
	neighbor := bm.Coordinate.Neighbor(absolute)
	if neighbor.X < 0 || neighbor.X >= xMarkers || neighbor.Y < 0 || neighbor.Y >= yMarkers {
		return Coordinate{}, false
	}
	return neighbor, true
}

// edgeKey packs (type, localEdge) into the per-side key used by the
// global neighborhood-uniqueness check.
func edgeKey(t Type, edge layout.Orientation) uint32 {
	return uint32(t)<<2 | uint32(edge&3)
}

// orderedPairKey combines two per-side keys into one order-independent
// 64-bit value, so the same undirected board edge produces the same key
// seen from either endpoint.
func orderedPairKey(a, b uint32) uint64 {
	if a < b {
		return uint64(b)<<32 | uint64(a)
	}
	return uint64(a)<<32 | uint64(b)
}

// neighborEdgeKey is the N4-Unique invariant's comparison key for the
// undirected edge between a marker and one of its 4-neighbors.
func neighborEdgeKey(m, neighbor BoardMarker) uint64 {
	mEdge := m.LocalEdgeTo(neighbor)
	neighborEdge := neighbor.LocalEdgeTo(m)
	return orderedPairKey(edgeKey(m.Type(), mEdge), edgeKey(neighbor.Type(), neighborEdge))
}
