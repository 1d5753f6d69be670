// Package locate implements the board locator (component C5): it anchors
// a connected graph of identified marker candidates (from package marker)
// onto the known board's coordinate grid.
package locate

import (
	"errors"
	"math"
	"sort"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/marker"
	"calibgo/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// ErrNoSeed is returned when no candidate's type/neighborhood uniquely
// matches a coordinate on the board.
var ErrNoSeed = errors.New("locate: no candidate could be anchored to the board")

// Locator anchors marker candidates to a known board.
type Locator struct {
	board *board.Board
}

// New creates a locator bound to the board a frame is expected to show.
func New(b *board.Board) *Locator {
	return &Locator{board: b}
}

// hypothesis is one candidate coordinate under consideration, scored by
// how many of its geometric neighbors' types agree with the board's
// ground-truth neighborhood at that coordinate.
type hypothesis struct {
	candidate *marker.Candidate
	coord     board.Coordinate
	score     int
}

// candidateBoardMarker builds the board.BoardMarker view of a candidate
// at a coordinate hypothesis, for neighbor-coordinate arithmetic.
func candidateBoardMarker(c *marker.Candidate, coord board.Coordinate) board.BoardMarker {
	return board.BoardMarker{
		Marker:      board.Marker{ID: c.MarkerID, Sign: c.Sign},
		Orientation: c.Orientation,
		Coordinate:  coord,
	}
}

// scoreHypothesis counts how many of c's linked neighbors have a type
// matching the board's ground truth at the corresponding coordinate.
func (l *Locator) scoreHypothesis(c *marker.Candidate, coord board.Coordinate) int {
	bm := candidateBoardMarker(c, coord)
	score := 0
	for edge := layout.North; edge <= layout.West; edge++ {
		neighborCandidate := c.Neighbors[edge]
		if neighborCandidate == nil || neighborCandidate.State < marker.Identified {
			continue
		}
		nc, ok := bm.NeighborCoordinate(edge, l.board.XMarkers(), l.board.YMarkers())
		if !ok {
			continue
		}
		if l.board.MarkerAt(nc).Type() == neighborCandidate.Type() {
			score++
		}
	}
	return score
}

// bestHypothesis returns the highest-scoring coordinate hypothesis for a
// candidate among the board's up-to-4 coordinates sharing its marker
// type, or ok=false if the candidate's type doesn't appear on the board.
func (l *Locator) bestHypothesis(c *marker.Candidate) (hypothesis, bool) {
	coords := l.board.CoordinatesWithType(c.Type())
	if len(coords) == 0 {
		return hypothesis{}, false
	}
	best := hypothesis{candidate: c, coord: coords[0], score: -1}
	for _, coord := range coords {
		s := l.scoreHypothesis(c, coord)
		if s > best.score {
			best = hypothesis{candidate: c, coord: coord, score: s}
		}
	}
	return best, true
}

// autoSeedScore derives a seed-score gate from the observed distribution
// of every candidate's best neighborhood-match score: the median score,
// rounded down to an integer floor of 1. Passing minSeedScore <= 0 to
// Locate asks for this instead of a hand-tuned constant, so a
// particularly sparse or particularly spiky connectivity graph doesn't
// need per-deployment retuning.
func (l *Locator) autoSeedScore(candidates []*marker.Candidate) int {
	var scores []float64
	for _, c := range candidates {
		if c.State < marker.Identified {
			continue
		}
		hyp, ok := l.bestHypothesis(c)
		if !ok {
			continue
		}
		scores = append(scores, float64(hyp.score))
	}
	if len(scores) == 0 {
		return 1
	}
	sort.Float64s(scores)
	median := stat.Quantile(0.5, stat.Empirical, scores, nil)
	return int(math.Max(1, median))
}

// Locate anchors every reachable candidate in the connectivity graph
// rooted near imageCenter to a board Coordinate. It picks a seed among
// candidates with at least minSeedScore matching neighbors (or, if
// minSeedScore <= 0, the median score from autoSeedScore), preferring
// the most-connected candidate and breaking ties by hypothesis score,
// then by proximity to imageCenter, then propagates coordinates
// outward along the Neighbors graph. Candidates that are never reached
// from the seed are left unplaced.
func (l *Locator) Locate(candidates []*marker.Candidate, imageCenter geometry.Point2D, minSeedScore int) error {
	if minSeedScore <= 0 {
		minSeedScore = l.autoSeedScore(candidates)
	}

	var seedHyp hypothesis
	var seedCandidate *marker.Candidate
	haveSeed := false

	for _, c := range candidates {
		if c.State < marker.Identified {
			continue
		}
		hyp, ok := l.bestHypothesis(c)
		if !ok || hyp.score < minSeedScore {
			continue
		}
		if !haveSeed {
			seedHyp, seedCandidate, haveSeed = hyp, c, true
			continue
		}
		if better(hyp, c, seedHyp, seedCandidate, imageCenter) {
			seedHyp, seedCandidate = hyp, c
		}
	}

	if !haveSeed {
		return ErrNoSeed
	}

	l.propagate(seedCandidate, seedHyp.coord)
	return nil
}

// better reports whether hypothesis a (for candidate ca) should be
// preferred as seed over hypothesis b (for candidate cb): more linked
// neighbors wins, then higher score, then proximity to the image center.
func better(a hypothesis, ca *marker.Candidate, b hypothesis, cb *marker.Candidate, center geometry.Point2D) bool {
	if ca.NeighborCount() != cb.NeighborCount() {
		return ca.NeighborCount() > cb.NeighborCount()
	}
	if a.score != b.score {
		return a.score > b.score
	}
	return ca.Center().Distance(center) < cb.Center().Distance(center)
}

// propagate performs a breadth-first walk over the Neighbors graph
// starting at seed (already known to sit at seedCoord), assigning a board
// Coordinate to every reachable candidate whose type matches the board
// marker at that coordinate; the candidate's orientation is not compared.
func (l *Locator) propagate(seed *marker.Candidate, seedCoord board.Coordinate) {
	seed.Coordinate = seedCoord
	seed.Placed = true
	seed.State = marker.Placed

	queue := []*marker.Candidate{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		bm := candidateBoardMarker(cur, cur.Coordinate)
		for edge := layout.North; edge <= layout.West; edge++ {
			nb := cur.Neighbors[edge]
			if nb == nil || nb.Placed || nb.State < marker.Identified {
				continue
			}
			coord, ok := bm.NeighborCoordinate(edge, l.board.XMarkers(), l.board.YMarkers())
			if !ok {
				continue
			}
			if l.board.MarkerAt(coord).Type() != nb.Type() {
				continue
			}
			nb.Coordinate = coord
			nb.Placed = true
			nb.State = marker.Placed
			queue = append(queue, nb)
		}
	}
}
