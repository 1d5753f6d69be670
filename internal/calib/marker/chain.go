package marker

import (
	"sort"

	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/point"
	"calibgo/pkg/geometry"
)

// ChainQuadFinder locates candidate marker quads by chaining package
// point's raw dot detections into closed 16-point borders: a continuous
// line of same-sign points extended by linear prediction in both
// directions, then three perpendicular turns that close the line into a
// rectangle.
type ChainQuadFinder struct {
	Detector *point.Detector

	// SeedSearchRadius bounds how far apart two points can be to seed a
	// candidate line.
	SeedSearchRadius float64

	// AlphaTolerance is the fraction of a segment's own length a
	// predicted next point may miss by and still be accepted.
	AlphaTolerance float64
}

// NewChainQuadFinder returns a ChainQuadFinder wrapping d, with tolerances
// suited to markers several modules wide in frame.
func NewChainQuadFinder(d *point.Detector) *ChainQuadFinder {
	return &ChainQuadFinder{Detector: d, SeedSearchRadius: 80, AlphaTolerance: 0.25}
}

// FindQuads detects dot points in img and chains them into quads.
func (f *ChainQuadFinder) FindQuads(img *imagery.GrayscaleImage) [][4]geometry.Point2D {
	pts, err := f.Detector.Detect(img)
	if err != nil || len(pts) == 0 {
		return nil
	}

	bounds := geometry.Rect{X: 0, Y: 0, Width: float64(img.Width), Height: float64(img.Height)}
	used := make([]bool, len(pts))

	var quads [][4]geometry.Point2D
	for i := range pts {
		if used[i] {
			continue
		}
		for _, j := range nearestIndices(pts, used, i, f.SeedSearchRadius, 4) {
			if used[j] || isDark(pts[i]) != isDark(pts[j]) {
				continue
			}
			line, ok := continuousLine(pts, used, i, j, f.AlphaTolerance)
			if !ok || len(line) != 5 {
				continue
			}
			ring, ok := closedRectangle(pts, used, line, f.AlphaTolerance)
			if !ok {
				continue
			}
			quad, ok := ringToQuad(pts, ring)
			if !ok || !quadInBounds(quad, bounds) {
				continue
			}
			for _, idx := range ring {
				used[idx] = true
			}
			quads = append(quads, quad)
			break
		}
	}
	return quads
}

// isDark reports whether a detected point is the dark-sign class; dot
// detection encodes this in the sign of SignedStrength.
func isDark(p point.Point) bool {
	return p.SignedStrength > 0
}

func pointOf(p point.Point) geometry.Point2D {
	return geometry.Point2D{X: p.X, Y: p.Y}
}

// nearestIndices returns up to k not-yet-used point indices closest to
// pts[from] (of either sign), within maxDist, nearest first.
func nearestIndices(pts []point.Point, used []bool, from int, maxDist float64, k int) []int {
	type candidate struct {
		idx  int
		dist float64
	}
	maxSqr := maxDist * maxDist
	var candidates []candidate
	for i, p := range pts {
		if i == from || used[i] {
			continue
		}
		dx, dy := p.X-pts[from].X, p.Y-pts[from].Y
		d := dx*dx + dy*dy
		if d <= maxSqr {
			candidates = append(candidates, candidate{i, d})
		}
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].dist < candidates[b].dist })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.idx
	}
	return out
}

// closestPoint finds the nearest not-yet-used point of the given sign to
// predicted, excluding excludeIdx, within maxSqrDist.
func closestPoint(pts []point.Point, used []bool, predicted geometry.Point2D, dark bool, maxSqrDist float64, excludeIdx int) (int, bool) {
	best, bestDist := -1, maxSqrDist
	for i, p := range pts {
		if used[i] || i == excludeIdx || isDark(p) != dark {
			continue
		}
		dx, dy := p.X-predicted.X, p.Y-predicted.Y
		d := dx*dx + dy*dy
		if d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// continuousLine grows a same-sign point chain seeded by the pair (a, b):
// from the current last two points' offset, it predicts the next point by
// linear extrapolation and accepts the closest same-sign point within
// alpha*|offset| of the prediction, extending forward up to 4 steps and
// then backward up to 4 steps from the original pair. It reports ok=false
// if the seed pair is closer than 5px (too weak a direction to extrapolate).
func continuousLine(pts []point.Point, used []bool, a, b int, alpha float64) ([]int, bool) {
	pa, pb := pointOf(pts[a]), pointOf(pts[b])
	offset := pb.Sub(pa)
	const minSeedDistance = 5.0
	if offset.X*offset.X+offset.Y*offset.Y < minSeedDistance*minSeedDistance {
		return nil, false
	}

	dark := isDark(pts[a])
	line := []int{a, b}

	updated := offset
	for step := 0; step < 4; step++ {
		prevIdx := line[len(line)-1]
		prev := pointOf(pts[prevIdx])
		predicted := prev.Add(updated)
		maxSqr := (updated.X*updated.X + updated.Y*updated.Y) * alpha * alpha

		idx, ok := closestPoint(pts, used, predicted, dark, maxSqr, prevIdx)
		if !ok {
			break
		}
		next := pointOf(pts[idx])
		updated = next.Sub(prev)
		line = append(line, idx)
	}

	updated = offset.Scale(-1)
	for step := 0; step < 4; step++ {
		frontIdx := line[0]
		front := pointOf(pts[frontIdx])
		predicted := front.Add(updated)
		maxSqr := (updated.X*updated.X + updated.Y*updated.Y) * alpha * alpha

		idx, ok := closestPoint(pts, used, predicted, dark, maxSqr, frontIdx)
		if !ok {
			break
		}
		next := pointOf(pts[idx])
		updated = next.Sub(front)
		line = append([]int{idx}, line...)
	}

	return line, len(line) > 2
}

// perpendicular rotates v by 90 degrees.
func perpendicular(v geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: -v.Y, Y: v.X}
}

// closedRectangle extends a 5-point line into a closed 16-point border
// ring by searching, at each of 3 iterations, a perpendicular 5-point line
// from the line's last point in both perpendicular directions. If the new
// line's first point is the seed's last point, it's appended; if instead
// a T-intersection is found on the very first iteration (the new line's
// first point is elsewhere along it), the whole line is replaced by the
// new one and the iteration restarts.
func closedRectangle(pts []point.Point, used []bool, line []int, alpha float64) ([]int, bool) {
	if len(line) != 5 {
		return nil, false
	}
	dark := isDark(pts[line[0]])
	allowReplaceInitial := true

	for iteration := 1; iteration < 4; iteration++ {
		lastIdx := line[len(line)-1]
		secondLastIdx := line[len(line)-2]
		lastPt := pointOf(pts[lastIdx])
		secondLastPt := pointOf(pts[secondLastIdx])
		endVector := lastPt.Sub(secondLastPt)

		foundNext := false
		for _, side := range [2]float64{1, -1} {
			predicted := lastPt.Add(perpendicular(endVector).Scale(side))
			maxSqr := (endVector.X*endVector.X + endVector.Y*endVector.Y) * alpha * alpha

			predictedIdx, ok := closestPoint(pts, used, predicted, dark, maxSqr, lastIdx)
			if !ok {
				continue
			}

			perpLine, ok := continuousLine(pts, used, lastIdx, predictedIdx, alpha)
			if !ok || len(perpLine) != 5 {
				continue
			}

			if perpLine[0] == lastIdx {
				line = append(line, perpLine[1:]...)
				foundNext = true
				break
			}

			if iteration == 1 && allowReplaceInitial {
				line = perpLine
				iteration = 0
				foundNext = true
				break
			}
		}

		allowReplaceInitial = false
		if !foundNext {
			return nil, false
		}
	}

	if len(line) == 17 && line[0] == line[len(line)-1] {
		return line[:16], true
	}
	return nil, false
}

// ringToQuad turns a closed 16-point border ring into a quad's four
// corners. The ring has an implicit 5x5-grid layout:
//
//	 0  1  2  3  4
//	15           5
//	14           6
//	13           7
//	12 11 10  9  8
//
// so ring indices 0, 4, 8, 12 are the quad's four corners in order, once
// the ring's winding is fixed to run clockwise in image space (keeping
// index 0 fixed, reversing the rest, when it doesn't).
func ringToQuad(pts []point.Point, ring []int) ([4]geometry.Point2D, bool) {
	if len(ring) != 16 {
		return [4]geometry.Point2D{}, false
	}

	ordered := ring
	p0 := pointOf(pts[ring[0]])
	p4 := pointOf(pts[ring[4]])
	p12 := pointOf(pts[ring[12]])
	dirA, dirB := p4.Sub(p0), p12.Sub(p0)
	counterClockwise := dirA.X*dirB.Y-dirA.Y*dirB.X < 0

	if counterClockwise {
		reversed := make([]int, len(ring))
		reversed[0] = ring[0]
		for i := 1; i < len(ring); i++ {
			reversed[i] = ring[len(ring)-i]
		}
		ordered = reversed
	}

	return [4]geometry.Point2D{
		pointOf(pts[ordered[0]]),
		pointOf(pts[ordered[4]]),
		pointOf(pts[ordered[8]]),
		pointOf(pts[ordered[12]]),
	}, true
}

// quadInBounds rejects a candidate whose bounding box isn't fully inside
// the image, and any non-convex quad a flawed chain might still produce.
func quadInBounds(quad [4]geometry.Point2D, bounds geometry.Rect) bool {
	if !geometry.IsConvex(quad[:]) {
		return false
	}
	box := geometry.BoundingBox(quad[:])
	return bounds.Contains(geometry.Point2D{X: box.X, Y: box.Y}) &&
		bounds.Contains(geometry.Point2D{X: box.X + box.Width, Y: box.Y + box.Height})
}
