package marker

import (
	"calibgo/internal/calib/imagery"
	"calibgo/pkg/geometry"
)

// QuadFinder locates candidate marker quads (four corners, clockwise from
// top-left) in an image, independent of how those quads are identified or
// connected. ChainQuadFinder is the reference implementation: it chains
// package point's raw dot detections into closed borders. UniformGridQuadFinder
// below stays as a second implementation for the narrow case of a rig that
// photographs (or renders) markers at known, regular pixel spacing, where
// skipping detection and chaining entirely is both valid and cheaper.
type QuadFinder interface {
	FindQuads(img *imagery.GrayscaleImage) [][4]geometry.Point2D
}

// UniformGridQuadFinder emits one quad per board cell on a regular pixel
// grid, given the top-left origin and per-marker cell size of the grid's
// first marker. It consults no pixel data; callers must already know the
// grid is regular (a fronto-parallel capture rig, or a synthetic render).
type UniformGridQuadFinder struct {
	OriginX, OriginY float64
	CellSize         float64 // pixel side length of one 5x5 marker quad
	Columns, Rows    int
}

// FindQuads returns Columns*Rows quads tiling the configured grid.
func (f UniformGridQuadFinder) FindQuads(img *imagery.GrayscaleImage) [][4]geometry.Point2D {
	quads := make([][4]geometry.Point2D, 0, f.Columns*f.Rows)
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Columns; col++ {
			ox := f.OriginX + float64(col)*f.CellSize
			oy := f.OriginY + float64(row)*f.CellSize
			quads = append(quads, [4]geometry.Point2D{
				{X: ox, Y: oy},
				{X: ox + f.CellSize, Y: oy},
				{X: ox + f.CellSize, Y: oy + f.CellSize},
				{X: ox, Y: oy + f.CellSize},
			})
		}
	}
	return quads
}
