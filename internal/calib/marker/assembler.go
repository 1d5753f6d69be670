package marker

import (
	"calibgo/internal/calib/board"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/pkg/geometry"
)

// rawEdge is the image-space edge direction of a candidate quad, before
// correcting for the marker's own orientation: 0=top, 1=right, 2=bottom,
// 3=left (matching corners[0..3] ordered clockwise from top-left).
type rawEdge int

const (
	rawTop rawEdge = iota
	rawRight
	rawBottom
	rawLeft
)

// edgeMidpoint returns the midpoint of one side of the candidate's quad.
func (c *Candidate) edgeMidpoint(e rawEdge) geometry.Point2D {
	a, b := c.Corners[int(e)], c.Corners[(int(e)+1)%4]
	return a.Add(b).Scale(0.5)
}

// Assembler builds and identifies marker candidates from detected quads,
// then links geometric neighbors (component C4). Candidates are owned by
// an arena slice; Neighbors hold direct pointers into it.
type Assembler struct {
	candidates []*Candidate
	catalog    *layout.Catalog
	threshold  float64
}

// NewAssembler creates an assembler bound to a marker catalog and the
// grayscale threshold used for module sampling.
func NewAssembler(catalog *layout.Catalog, threshold float64) *Assembler {
	return &Assembler{catalog: catalog, threshold: threshold}
}

// Candidates returns every candidate added so far, in arena order.
func (a *Assembler) Candidates() []*Candidate {
	return a.candidates
}

// AddQuad samples a candidate marker from a detected quad of four corner
// points (clockwise from the candidate's own top-left) and advances it as
// far as BorderBuilt/FullSampled allow. It returns nil if the border ring
// samples as neither solid dark nor solid light (the inverted sign), if
// every module samples the same (a featureless patch, not a marker), or if
// any module sample falls outside the image.
func (a *Assembler) AddQuad(img *imagery.GrayscaleImage, corners [4]geometry.Point2D) *Candidate {
	c := &Candidate{ID: len(a.candidates), Corners: corners, State: BorderBuilt}

	m, ok := SampleMatrix(img, corners, a.threshold)
	if !ok {
		return nil
	}
	c.advance(FullSampled)

	if !m.IsBorderSolid() && !invertMatrix(m).IsBorderSolid() {
		return nil
	}
	if m == layout.AllOnesMatrix() || invertMatrix(m) == layout.AllOnesMatrix() {
		return nil
	}
	c.Matrix = m

	a.candidates = append(a.candidates, c)
	return c
}

// Identify attempts to match every FullSampled candidate's matrix (in
// both normal and inverted sign) against the catalog, fixing MarkerID,
// Sign and Orientation and advancing it to Identified.
func (a *Assembler) Identify() {
	for _, c := range a.candidates {
		if c.State != FullSampled {
			continue
		}

		if id, orient, ok := a.catalog.Identify(c.Matrix); ok {
			c.MarkerID, c.Sign, c.Orientation = id, board.Normal, orient
			c.advance(Identified)
			continue
		}
		if id, orient, ok := a.catalog.Identify(invertMatrix(c.Matrix)); ok {
			c.MarkerID, c.Sign, c.Orientation = id, board.Inverted, orient
			c.advance(Identified)
		}
	}
}

// Connect links geometric neighbors among Identified candidates: two
// candidates are linked along a side if the other candidate's center lies
// within tolerance of the point expectedNeighborPoint predicts for that
// side.
func (a *Assembler) Connect(tolerance float64) {
	for i, ci := range a.candidates {
		if ci.State < Identified {
			continue
		}
		for _, e := range []rawEdge{rawTop, rawRight, rawBottom, rawLeft} {
			if ci.Neighbors[canonicalEdge(ci, e)] != nil {
				continue
			}
			mid := ci.edgeMidpoint(e)
			expected := expectedNeighborPoint(ci, e)

			var best *Candidate
			bestDist := tolerance
			for j, cj := range a.candidates {
				if j == i || cj.State < Identified {
					continue
				}
				d := cj.Center().Distance(expected)
				if d < bestDist {
					best, bestDist = cj, d
				}
			}
			if best == nil {
				continue
			}

			canon := canonicalEdge(ci, e)
			ci.Neighbors[canon] = best
			if oppEdge, ok := reverseCanonicalEdge(best, mid); ok {
				best.Neighbors[oppEdge] = ci
			}
			ci.advance(Connected)
			best.advance(Connected)
		}
	}
}

// canonicalEdge maps a candidate's raw (image-space) edge direction into
// its own canonical frame, using the same convention as
// board.BoardMarker.LocalEdgeTo: rotate the absolute direction backward by
// the candidate's fixed orientation.
func canonicalEdge(c *Candidate, e rawEdge) layout.Orientation {
	return layout.Orientation(e).Rotated(-int(c.Orientation))
}

// expectedNeighborPoint estimates where a same-sized neighboring marker's
// center should fall: the edge midpoint mirrored away from this
// candidate's center, i.e. half a side length beyond the shared edge.
func expectedNeighborPoint(c *Candidate, e rawEdge) geometry.Point2D {
	mid := c.edgeMidpoint(e)
	center := c.Center()
	dir := mid.Sub(center)
	return mid.Add(dir)
}

// reverseCanonicalEdge finds which of candidate n's raw edges faces back
// toward the given midpoint, returning that edge in n's own canonical
// frame.
func reverseCanonicalEdge(n *Candidate, towards geometry.Point2D) (layout.Orientation, bool) {
	best := rawTop
	bestDist := -1.0
	for _, e := range []rawEdge{rawTop, rawRight, rawBottom, rawLeft} {
		d := n.edgeMidpoint(e).Distance(towards)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e, d
		}
	}
	return canonicalEdge(n, best), true
}
