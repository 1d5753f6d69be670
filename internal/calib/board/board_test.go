package board

import (
	"math"
	"testing"

	"calibgo/internal/calib/layout"
)

func testCatalog() *layout.Catalog {
	return layout.BuildCatalog()
}

func TestGenerateBoardSatisfiesN4Unique(t *testing.T) {
	cat := testCatalog()
	b, err := GenerateBoard(0, 5, 5, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	if err := b.VerifyN4Unique(); err != nil {
		t.Errorf("N4-Unique violated: %v", err)
	}
}

// S1: Board with seed=0, 3x3 markers, 30mm marker size. Generated object
// point (coord=(1,1), idx=12) equals (0,0,0) within 1e-6m.
func TestScenarioS1ObjectPointAtBoardCenter(t *testing.T) {
	cat := testCatalog()
	b, err := GenerateBoard(0, 3, 3, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := NewMetricBoard(b, 30, 30)
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}

	p := mb.ObjectPoint(ObjectPointID{Coordinate: Coordinate{X: 1, Y: 1}, IndexInMarker: 12})
	if math.Abs(p.X) > 1e-6 || math.Abs(p.Y) > 1e-6 || math.Abs(p.Z) > 1e-6 {
		t.Errorf("expected (0,0,0), got (%g,%g,%g)", p.X, p.Y, p.Z)
	}
}

// S2: Board with seed=0, 8x13, 25mm. xMetricMarkerSize ~= 25.0mm, and
// determineOptimalMarkerGrid(ratio=8/13, minMarkers=104) = (8,13).
func TestScenarioS2OptimalGrid(t *testing.T) {
	x, y, ok := DetermineOptimalMarkerGrid(8.0/13.0, 104)
	if !ok {
		t.Fatal("DetermineOptimalMarkerGrid failed")
	}
	if x != 8 || y != 13 {
		t.Errorf("expected (8,13), got (%d,%d)", x, y)
	}

	cat := testCatalog()
	b, err := GenerateBoard(0, 8, 13, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	mb, err := NewMetricBoard(b, 25, 25)
	if err != nil {
		t.Fatalf("NewMetricBoard: %v", err)
	}
	if math.Abs(float64(mb.XMarkerSize)-25.0) > 1e-9 {
		t.Errorf("expected xMarkerSize ~= 25.0mm, got %g", float64(mb.XMarkerSize))
	}
}

// S6: Construct two boards with seeds 100 and 101, both 8x13; call
// DetermineUniqueness; the three counters satisfy
// threeIdenticalNeighborCounter <= twoIdenticalNeighborCounter <=
// oneIdenticalNeighborCounter and threeIdenticalNeighborCounter == 0.
func TestScenarioS6Uniqueness(t *testing.T) {
	cat := testCatalog()
	a, err := GenerateBoard(100, 8, 13, cat)
	if err != nil {
		t.Fatalf("GenerateBoard(100): %v", err)
	}
	b, err := GenerateBoard(101, 8, 13, cat)
	if err != nil {
		t.Fatalf("GenerateBoard(101): %v", err)
	}

	counters := DetermineUniqueness(a, b)
	if counters.ThreeIdenticalNeighbors > counters.TwoIdenticalNeighbors {
		t.Errorf("three (%d) > two (%d)", counters.ThreeIdenticalNeighbors, counters.TwoIdenticalNeighbors)
	}
	if counters.TwoIdenticalNeighbors > counters.OneIdenticalNeighbor {
		t.Errorf("two (%d) > one (%d)", counters.TwoIdenticalNeighbors, counters.OneIdenticalNeighbor)
	}
	if counters.ThreeIdenticalNeighbors != 0 {
		t.Errorf("expected threeIdenticalNeighborCounter == 0, got %d", counters.ThreeIdenticalNeighbors)
	}
}

func TestDeterministicGeneration(t *testing.T) {
	cat := testCatalog()
	a, err := GenerateBoard(42, 6, 9, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	b, err := GenerateBoard(42, 6, 9, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	if a.Hash() != b.Hash() {
		t.Errorf("same seed produced different hashes: %d vs %d", a.Hash(), b.Hash())
	}
}

func TestTypeIndexBounded(t *testing.T) {
	cat := testCatalog()
	b, err := GenerateBoard(7, 8, 13, cat)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	for y := 0; y < b.YMarkers(); y++ {
		for x := 0; x < b.XMarkers(); x++ {
			m := b.Marker(x, y)
			coords := b.CoordinatesWithType(m.Type())
			if len(coords) == 0 || len(coords) > 4 {
				t.Errorf("type %d has %d coordinates, want 1..4", m.Type(), len(coords))
			}
		}
	}
}
