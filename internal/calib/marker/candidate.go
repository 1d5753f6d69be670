// Package marker implements the marker assembler (component C4): it turns
// the raw dot observations from package point into identified,
// neighbor-linked marker candidates, ready for package locate to anchor
// against the known board layout.
package marker

import (
	"calibgo/internal/calib/board"
	"calibgo/internal/calib/layout"
	"calibgo/pkg/geometry"
)

// State is a candidate's position in the monotone assembly state machine:
// a candidate only ever moves forward, never backward.
type State int

const (
	// BorderBuilt means the four corners were grouped into a quad and the
	// solid border ring was confirmed, but the interior has not been
	// sampled yet.
	BorderBuilt State = iota
	// FullSampled means all 25 modules were sampled into a matrix.
	FullSampled
	// Identified means the sampled matrix matched a catalog entry, fixing
	// MarkerType, Sign and Orientation.
	Identified
	// Connected means at least one geometric neighbor has been linked.
	Connected
	// Placed means package locate has anchored the candidate to a board
	// Coordinate.
	Placed
)

func (s State) String() string {
	switch s {
	case BorderBuilt:
		return "border-built"
	case FullSampled:
		return "full-sampled"
	case Identified:
		return "identified"
	case Connected:
		return "connected"
	case Placed:
		return "placed"
	default:
		return "unknown"
	}
}

// Candidate is one marker under assembly. Corners are ordered clockwise
// in image space starting from the candidate's own top-left, independent
// of the marker's true board orientation (that mapping is fixed once the
// candidate reaches Identified).
type Candidate struct {
	ID      int
	Corners [4]geometry.Point2D

	State State

	Matrix layout.Matrix5x5

	MarkerID    layout.CatalogIndex
	Sign        board.Sign
	Orientation layout.Orientation

	// Neighbors holds a linked candidate per local edge direction (indexed
	// by layout.Orientation), nil where no neighbor has been found yet.
	Neighbors [4]*Candidate

	// Coordinate and Placed are written by package locate once the
	// candidate is anchored to the board.
	Coordinate board.Coordinate
	Placed     bool
}

// Type returns the packed marker type, valid once Identified.
func (c *Candidate) Type() board.Type {
	return board.Marker{ID: c.MarkerID, Sign: c.Sign}.Type()
}

// Center returns the quad's centroid in image space.
func (c *Candidate) Center() geometry.Point2D {
	return geometry.Centroid(c.Corners[:])
}

// NeighborCount returns how many of the 4 local edge directions have a
// linked neighbor.
func (c *Candidate) NeighborCount() int {
	n := 0
	for _, nb := range c.Neighbors {
		if nb != nil {
			n++
		}
	}
	return n
}

// advance moves the candidate forward to the given state; it is a no-op
// if the candidate is already at or past that state (the monotone
// invariant: a candidate's state only ever increases).
func (c *Candidate) advance(s State) {
	if s > c.State {
		c.State = s
	}
}
