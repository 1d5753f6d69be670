package point

import (
	"testing"

	"calibgo/internal/calib/imagery"
)

// drawDisk paints a filled circle of the given value into img, leaving
// other pixels at fill.
func drawDisk(img *imagery.GrayscaleImage, cx, cy, radius int, value, fill byte) {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			img.Set(x, y, fill)
		}
	}
	for y := cy - radius; y <= cy+radius; y++ {
		if y < 0 || y >= img.Height {
			continue
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x < 0 || x >= img.Width {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, value)
			}
		}
	}
}

func TestDetectFindsSingleDarkDot(t *testing.T) {
	img := imagery.NewGrayscaleImage(60, 60)
	drawDisk(img, 30, 30, 4, 20, 220)

	d := NewDetector(DefaultParams())
	points, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(points) == 0 {
		t.Fatal("expected at least one detection")
	}

	found := false
	for _, p := range points {
		if dist(p.X, p.Y, 30, 30) < 4 && p.SignedStrength > 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a dark detection near (30,30), got %+v", points)
	}
}

func TestDetectFindsSingleBrightDot(t *testing.T) {
	img := imagery.NewGrayscaleImage(60, 60)
	drawDisk(img, 30, 30, 4, 235, 30)

	d := NewDetector(DefaultParams())
	points, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	found := false
	for _, p := range points {
		if dist(p.X, p.Y, 30, 30) < 4 && p.SignedStrength < 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a bright detection near (30,30), got %+v", points)
	}
}

func TestDetectRejectsInvalidImage(t *testing.T) {
	d := NewDetector(DefaultParams())
	_, err := d.Detect(&imagery.GrayscaleImage{})
	if err == nil {
		t.Fatal("expected an error for an invalid image")
	}
}

func TestNonMaxSuppressKeepsStrongest(t *testing.T) {
	cands := []candidate{
		{x: 10, y: 10, strength: 5},
		{x: 11, y: 10, strength: 9},
		{x: 50, y: 50, strength: 3},
	}
	kept := nonMaxSuppress(cands, 4)
	if len(kept) != 2 {
		t.Fatalf("expected 2 survivors, got %d: %+v", len(kept), kept)
	}
	for _, c := range kept {
		if c.x == 10 && c.y == 10 {
			t.Errorf("weaker nearby candidate should have been suppressed: %+v", kept)
		}
	}
}

func TestRejectNearOppositeDropsCloseBright(t *testing.T) {
	dark := []candidate{{x: 20, y: 20, strength: 10, dark: true}}
	bright := []candidate{
		{x: 21, y: 20, strength: 8},  // within 4px, dropped
		{x: 40, y: 40, strength: 8},  // far, kept
	}
	kept := rejectNearOpposite(dark, bright, 4)
	if len(kept) != 1 || kept[0].x != 40 {
		t.Errorf("expected only the far candidate to survive, got %+v", kept)
	}
}

func TestDeduplicateKeepsStronger(t *testing.T) {
	points := []Point{
		{X: 10, Y: 10, SignedStrength: 50},
		{X: 10.5, Y: 10.2, SignedStrength: 120},
		{X: 80, Y: 80, SignedStrength: 30},
	}
	params := DefaultParams()
	out := deduplicate(points, params)
	if len(out) != 2 {
		t.Fatalf("expected 2 points after dedup, got %d: %+v", len(out), out)
	}
	for _, p := range out {
		if p.SignedStrength == 50 {
			t.Errorf("weaker duplicate should have been removed: %+v", out)
		}
	}
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return dx*dx + dy*dy
}
