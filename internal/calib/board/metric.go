package board

import (
	"fmt"
	"math"

	"calibgo/internal/calib/layout"
	"calibgo/pkg/geometry"
)

// ObjectPointID identifies one of a marker's 25 interior points within
// the board's object-point coordinate system.
type ObjectPointID struct {
	Coordinate    Coordinate
	IndexInMarker int // 0..24, row-major: row = idx/5, col = idx%5
}

// MetricBoard extends Board with physical marker sizes, placing markers
// in the board's xz-plane with the origin at the board center and the
// y-axis pointing out of the board.
type MetricBoard struct {
	*Board
	XMarkerSize geometry.Millimeters
	ZMarkerSize geometry.Millimeters
}

// NewMetricBoard wraps a Board with physical marker dimensions.
func NewMetricBoard(b *Board, xMarkerSize, zMarkerSize geometry.Millimeters) (*MetricBoard, error) {
	if xMarkerSize <= 0 || zMarkerSize <= 0 {
		return nil, fmt.Errorf("board: marker size must be positive, got %g x %g mm", float64(xMarkerSize), float64(zMarkerSize))
	}
	return &MetricBoard{Board: b, XMarkerSize: xMarkerSize, ZMarkerSize: zMarkerSize}, nil
}

// Width returns the board's total physical width along x, in meters.
func (mb *MetricBoard) Width() float64 {
	return float64(mb.xMarkers) * mb.XMarkerSize.Meters()
}

// Height returns the board's total physical depth along z, in meters.
func (mb *MetricBoard) Height() float64 {
	return float64(mb.yMarkers) * mb.ZMarkerSize.Meters()
}

// ObjectPoint computes the 3D object point (in the board coordinate
// system) for the given marker point id. Interior module centers land
// exactly on a (col, row) grid step from the marker center; the four
// corner-module centers (IndexInMarker 0, 4, 20, 24) are inset by half a
// module width from the marker's true geometric corner, not flush with it.
func (mb *MetricBoard) ObjectPoint(id ObjectPointID) geometry.Point3D {
	col := id.IndexInMarker % layout.Size
	row := id.IndexInMarker / layout.Size
	return mb.ObjectPointAt(id.Coordinate, float64(col), float64(row))
}

// ObjectPointAt generalizes ObjectPoint to a fractional (col, row)
// position within the marker at coord, in the same 0..4 module-center
// frame ObjectPoint's IndexInMarker decomposes into. A module's four
// corners sit at col±0.5, row±0.5 around its own (integer) center, which
// lets a rasterizer read off a module's projected footprint without a
// second coordinate convention.
func (mb *MetricBoard) ObjectPointAt(coord Coordinate, col, row float64) geometry.Point3D {
	m := mb.MarkerAt(coord)

	xSize := mb.XMarkerSize.Meters()
	zSize := mb.ZMarkerSize.Meters()
	w := mb.Width()
	h := mb.Height()

	centerX := (float64(coord.X)+0.5)*xSize - w/2
	centerZ := (float64(coord.Y)+0.5)*zSize - h/2

	localX := (col - 2) * xSize / float64(layout.Size)
	localZ := (row - 2) * zSize / float64(layout.Size)

	rotation := geometry.RotationY(float64(m.Orientation.Degrees()) * math.Pi / 180)
	rotated := rotation.Apply(geometry.Point3D{X: localX, Y: 0, Z: localZ})

	return geometry.Point3D{
		X: centerX + rotated.X,
		Y: rotated.Y,
		Z: centerZ + rotated.Z,
	}
}

// AllObjectPoints enumerates every (coordinate, indexInMarker) object
// point on the board, in row-major marker order.
func (mb *MetricBoard) AllObjectPoints() []ObjectPointID {
	ids := make([]ObjectPointID, 0, mb.xMarkers*mb.yMarkers*layout.Size*layout.Size)
	for y := 0; y < mb.yMarkers; y++ {
		for x := 0; x < mb.xMarkers; x++ {
			coord := Coordinate{X: x, Y: y}
			for idx := 0; idx < layout.Size*layout.Size; idx++ {
				ids = append(ids, ObjectPointID{Coordinate: coord, IndexInMarker: idx})
			}
		}
	}
	return ids
}
