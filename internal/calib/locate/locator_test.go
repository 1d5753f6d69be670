package locate

import (
	"testing"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/marker"
	"calibgo/pkg/geometry"
)

// candidateFor builds a marker.Candidate mirroring a board marker,
// bypassing image sampling entirely (grounded on the deterministic board
// fixtures used in board_test.go).
func candidateFor(id int, bm board.BoardMarker, center geometry.Point2D) *marker.Candidate {
	c := &marker.Candidate{
		ID:          id,
		MarkerID:    bm.ID,
		Sign:        bm.Sign,
		Orientation: bm.Orientation,
		State:       marker.Identified,
	}
	half := 10.0
	c.Corners = [4]geometry.Point2D{
		{X: center.X - half, Y: center.Y - half},
		{X: center.X + half, Y: center.Y - half},
		{X: center.X + half, Y: center.Y + half},
		{X: center.X - half, Y: center.Y + half},
	}
	return c
}

func TestLocatePropagatesFromSeed(t *testing.T) {
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(7, 4, 4, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}

	// Build candidates for a 2x2 neighborhood of the board, image centers
	// spaced to match their grid coordinates.
	coords := []board.Coordinate{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}}
	candidates := make(map[board.Coordinate]*marker.Candidate, len(coords))
	for i, coord := range coords {
		bm := b.MarkerAt(coord)
		center := geometry.Point2D{X: float64(coord.X) * 30, Y: float64(coord.Y) * 30}
		candidates[coord] = candidateFor(i, bm, center)
	}

	link := func(a, b board.Coordinate, edge layout.Orientation) {
		ca, cb := candidates[a], candidates[b]
		ca.Neighbors[edge] = cb
		cb.Neighbors[edge.Opposite()] = ca
	}
	link(board.Coordinate{X: 1, Y: 1}, board.Coordinate{X: 2, Y: 1}, layout.East)
	link(board.Coordinate{X: 1, Y: 1}, board.Coordinate{X: 1, Y: 2}, layout.South)
	link(board.Coordinate{X: 2, Y: 1}, board.Coordinate{X: 2, Y: 2}, layout.South)
	link(board.Coordinate{X: 1, Y: 2}, board.Coordinate{X: 2, Y: 2}, layout.East)

	var all []*marker.Candidate
	for _, c := range candidates {
		all = append(all, c)
	}

	loc := New(b)
	if err := loc.Locate(all, geometry.Point2D{X: 45, Y: 45}, 1); err != nil {
		t.Fatalf("Locate: %v", err)
	}

	for coord, c := range candidates {
		if !c.Placed {
			t.Errorf("candidate at intended coordinate %+v was never placed", coord)
			continue
		}
		if c.Coordinate != coord {
			t.Errorf("candidate placed at %+v, want %+v", c.Coordinate, coord)
		}
		if c.State != marker.Placed {
			t.Errorf("expected state Placed, got %v", c.State)
		}
	}
}

func TestLocateReturnsErrNoSeedWithoutNeighbors(t *testing.T) {
	cat := layout.BuildCatalog()
	b, err := board.GenerateBoard(11, 3, 3, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}

	// A single, unlinked candidate can score at most 0: never a valid seed
	// when minSeedScore is 1.
	bm := b.MarkerAt(board.Coordinate{X: 1, Y: 1})
	lone := candidateFor(0, bm, geometry.Point2D{X: 30, Y: 30})

	loc := New(b)
	err = loc.Locate([]*marker.Candidate{lone}, geometry.Point2D{X: 30, Y: 30}, 1)
	if err != ErrNoSeed {
		t.Errorf("expected ErrNoSeed, got %v", err)
	}
}
