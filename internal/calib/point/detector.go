package point

import (
	"fmt"
	"sort"

	"calibgo/internal/calib/imagery"
)

// Point is a refined marker-point observation. The sign of
// SignedStrength encodes dark (positive) or bright (negative).
type Point struct {
	X, Y           float64
	Radius         int
	SignedStrength float64
}

// Detector owns the reusable ring-kernel pyramid, rebuilt only when the
// image stride changes.
type Detector struct {
	pyramid *kernelPyramid
	params  Params
}

// NewDetector builds a detector with the given parameters.
func NewDetector(params Params) *Detector {
	return &Detector{pyramid: newKernelPyramid(params.Radii), params: params}
}

// candidate is an unrefined detection at integer pixel coordinates.
type candidate struct {
	x, y     int
	strength float64
	dark     bool
}

// Detect runs the full point-detection pipeline: multi-radius
// ring scan with non-maximum suppression, opposite-sign rejection,
// per-point radius shrink, sub-pixel refinement, and duplicate removal.
// It returns an InvalidImage-class error only when the image itself fails
// format validation; individual failed candidates are silently dropped.
func (d *Detector) Detect(img *imagery.GrayscaleImage) ([]Point, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("point: %w", err)
	}

	radii := append([]int(nil), d.params.Radii...)
	sort.Sort(sort.Reverse(sort.IntSlice(radii)))

	mask := make([]bool, img.Width*img.Height)
	var points []Point

	for _, r := range radii {
		k := d.pyramid.forStride(r, img.Stride)

		darkCandidates := d.scan(img, k, r, mask, true)
		brightCandidates := d.scan(img, k, r, mask, false)

		darkCandidates = nonMaxSuppress(darkCandidates, float64(r))
		brightCandidates = nonMaxSuppress(brightCandidates, float64(r))
		brightCandidates = rejectNearOpposite(darkCandidates, brightCandidates, d.params.OppositeSignRejectRadius)

		for _, c := range append(darkCandidates, brightCandidates...) {
			finalRadius := d.shrinkRadius(img, c.x, c.y, r, radii, c.dark)

			refX, refY, sign, ok := d.refineSubPixel(img, c.x, c.y, finalRadius, c.dark)
			if !ok {
				continue
			}

			points = append(points, Point{
				X:              refX,
				Y:              refY,
				Radius:         finalRadius,
				SignedStrength: sign,
			})

			maskSquare(mask, img.Width, img.Height, c.x, c.y, 3*r/2)
		}
	}

	return deduplicate(points, d.params), nil
}

// scan evaluates the dark or bright strength formula at every
// not-yet-masked pixel at least r from the border, returning positive
// candidates.
func (d *Detector) scan(img *imagery.GrayscaleImage, k *kernel, r int, mask []bool, dark bool) []candidate {
	var out []candidate
	for y := r; y < img.Height-r; y++ {
		for x := r; x < img.Width-r; x++ {
			if mask[y*img.Width+x] {
				continue
			}
			var s float64
			if dark {
				s = darkPointStrength(img, x, y, k, d.params)
			} else {
				s = brightPointStrength(img, x, y, k, d.params)
			}
			if s > 0 {
				out = append(out, candidate{x: x, y: y, strength: s, dark: dark})
			}
		}
	}
	return out
}

// shrinkRadius finds the smallest kernel radius (from radii, descending
// input, only considering radii <= currentRadius) that still returns a
// positive strength at (x, y); the smallest such kernel fixes the point's
// reported radius.
func (d *Detector) shrinkRadius(img *imagery.GrayscaleImage, x, y, currentRadius int, radii []int, dark bool) int {
	best := currentRadius
	for _, r := range radii {
		if r > currentRadius {
			continue
		}
		if r > x || r > y || x+r >= img.Width || y+r >= img.Height {
			continue
		}
		k := d.pyramid.forStride(r, img.Stride)
		var s float64
		if dark {
			s = darkPointStrength(img, x, y, k, d.params)
		} else {
			s = brightPointStrength(img, x, y, k, d.params)
		}
		if s > 0 {
			best = r
		}
	}
	return best
}

// nonMaxSuppress greedily keeps the strongest candidate in each
// neighborhood of radius `radius`, seeded with strength.
func nonMaxSuppress(candidates []candidate, radius float64) []candidate {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].strength > sorted[j].strength })

	suppressed := make([]bool, len(sorted))
	r2 := radius * radius

	var kept []candidate
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			dx := float64(sorted[i].x - sorted[j].x)
			dy := float64(sorted[i].y - sorted[j].y)
			if dx*dx+dy*dy <= r2 {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// rejectNearOpposite discards bright candidates within rejectRadius of
// any dark candidate.
func rejectNearOpposite(dark, bright []candidate, rejectRadius float64) []candidate {
	if len(dark) == 0 || len(bright) == 0 {
		return bright
	}
	r2 := rejectRadius * rejectRadius
	var kept []candidate
	for _, b := range bright {
		tooClose := false
		for _, dk := range dark {
			dx := float64(b.x - dk.x)
			dy := float64(b.y - dk.y)
			if dx*dx+dy*dy < r2 {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, b)
		}
	}
	return kept
}

// maskSquare marks a (2*halfSide+1)-wide square centered at (cx, cy) as
// already covered, so later (smaller-radius) scan passes skip it.
func maskSquare(mask []bool, width, height, cx, cy, halfSide int) {
	for y := cy - halfSide; y <= cy+halfSide; y++ {
		if y < 0 || y >= height {
			continue
		}
		for x := cx - halfSide; x <= cx+halfSide; x++ {
			if x < 0 || x >= width {
				continue
			}
			mask[y*width+x] = true
		}
	}
}

// deduplicate removes near-duplicate points using a coarse spatial bin
// index, keeping the stronger of any pair closer than DuplicateRadius.
func deduplicate(points []Point, params Params) []Point {
	if len(points) <= 1 {
		return points
	}

	type binKey struct{ bx, by int }
	bins := make(map[binKey][]int)
	binOf := func(p Point) binKey {
		return binKey{int(p.X / params.DuplicateBinSize), int(p.Y / params.DuplicateBinSize)}
	}
	for i, p := range points {
		bk := binOf(p)
		bins[bk] = append(bins[bk], i)
	}

	removed := make([]bool, len(points))
	r2 := params.DuplicateRadius * params.DuplicateRadius

	for i, p := range points {
		if removed[i] {
			continue
		}
		bk := binOf(p)
		for dby := -1; dby <= 1; dby++ {
			for dbx := -1; dbx <= 1; dbx++ {
				for _, j := range bins[binKey{bk.bx + dbx, bk.by + dby}] {
					if j <= i || removed[j] {
						continue
					}
					dx := points[i].X - points[j].X
					dy := points[i].Y - points[j].Y
					if dx*dx+dy*dy >= r2 {
						continue
					}
					if abs(points[i].SignedStrength) >= abs(points[j].SignedStrength) {
						removed[j] = true
					} else {
						removed[i] = true
					}
				}
			}
		}
	}

	out := make([]Point, 0, len(points))
	for i, p := range points {
		if !removed[i] {
			out = append(out, p)
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
