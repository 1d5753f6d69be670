package render

import (
	"fmt"
	"math"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/camera"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/pkg/geometry"
)

// dotRadiusFraction and the radius clamp below keep a rendered module's
// dot close to the ring-kernel radii point.Detector actually tries
// (point.DefaultParams' Radii tops out at 9px), regardless of how large
// the module's own cell projects to.
const (
	dotRadiusFraction = 0.15
	minDotRadiusPx    = 3.0
	maxDotRadiusPx    = 9.0
)

// PerspectiveFrame projects every module of every marker on the board
// through a real camera model and pose, rasterizing the result into a
// grayscale image. Unlike Frame's uniform pixel grid (which bypasses
// projection entirely), a module's image footprint here is whatever
// quadrilateral its four corners actually project to, so it carries the
// same perspective foreshortening and lens distortion a captured frame
// would, and can be fed to point.Detector/ChainQuadFinder instead of a
// grid-position shortcut.
func PerspectiveFrame(mb *board.MetricBoard, model camera.Model, worldTCamera geometry.Pose) (*imagery.GrayscaleImage, error) {
	if model.Width <= 0 || model.Height <= 0 {
		return nil, fmt.Errorf("render: camera model must have positive dimensions, got %dx%d", model.Width, model.Height)
	}

	img := imagery.NewGrayscaleImage(model.Width, model.Height)
	for i := range img.Data {
		img.Data[i] = 255
	}

	cat := mb.Catalog()
	for y := 0; y < mb.YMarkers(); y++ {
		for x := 0; x < mb.XMarkers(); x++ {
			coord := board.Coordinate{X: x, Y: y}
			bm := mb.MarkerAt(coord)
			rotated := cat.At(bm.ID).Rotated(int(bm.Orientation))
			paintProjectedMarker(img, mb, model, worldTCamera, coord, rotated, bm.Sign)
		}
	}
	return img, nil
}

// paintProjectedMarker rasterizes one marker's 25 modules by projecting
// each module's cell through model/worldTCamera, module by module: the
// cell is filled with the module's background shade, then a round dot of
// the opposite shade is drawn at its projected center, mirroring the
// "black dot on white background" (or its photographic complement)
// convention the board's markers encode their bits with. A module whose
// corners don't all project in front of the camera is left unpainted.
func paintProjectedMarker(img *imagery.GrayscaleImage, mb *board.MetricBoard, model camera.Model, worldTCamera geometry.Pose, coord board.Coordinate, m layout.Matrix5x5, sign board.Sign) {
	for row := 0; row < layout.Size; row++ {
		for col := 0; col < layout.Size; col++ {
			dark := m.Get(col, row)
			if sign == board.Inverted {
				dark = !dark
			}

			quad, center, ok := projectModuleCell(mb, model, worldTCamera, coord, col, row)
			if !ok {
				continue
			}

			dotValue, bgValue := byte(0), byte(255)
			if !dark {
				dotValue, bgValue = 255, 0
			}

			box := geometry.BoundingBox(quad[:])
			radius := dotRadiusFraction * math.Min(box.Width, box.Height)
			radius = math.Max(minDotRadiusPx, math.Min(maxDotRadiusPx, radius))

			rasterizeQuad(img, quad, bgValue)
			rasterizeCircle(img, center, radius, dotValue)
		}
	}
}

// projectModuleCell projects the four corners of module (col, row) within
// the marker at coord (clockwise from top-left) along with its center.
func projectModuleCell(mb *board.MetricBoard, model camera.Model, worldTCamera geometry.Pose, coord board.Coordinate, col, row int) ([4]geometry.Point2D, geometry.Point2D, bool) {
	c := float64(col)
	r := float64(row)
	corners3D := [4]geometry.Point3D{
		mb.ObjectPointAt(coord, c-0.5, r-0.5),
		mb.ObjectPointAt(coord, c+0.5, r-0.5),
		mb.ObjectPointAt(coord, c+0.5, r+0.5),
		mb.ObjectPointAt(coord, c-0.5, r+0.5),
	}

	var quad [4]geometry.Point2D
	for i, p3 := range corners3D {
		p2, ok := model.Project(worldTCamera, p3)
		if !ok {
			return quad, geometry.Point2D{}, false
		}
		quad[i] = p2
	}

	center, ok := model.Project(worldTCamera, mb.ObjectPointAt(coord, c, r))
	if !ok {
		return quad, geometry.Point2D{}, false
	}
	return quad, center, true
}

// rasterizeCircle fills every pixel whose center falls within radius of
// center with v.
func rasterizeCircle(img *imagery.GrayscaleImage, center geometry.Point2D, radius float64, v byte) {
	if radius <= 0 {
		return
	}
	r2 := radius * radius
	x0 := clampInt(int(center.X-radius), 0, img.Width)
	y0 := clampInt(int(center.Y-radius), 0, img.Height)
	x1 := clampInt(int(center.X+radius)+1, 0, img.Width)
	y1 := clampInt(int(center.Y+radius)+1, 0, img.Height)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - center.X
			dy := float64(y) + 0.5 - center.Y
			if dx*dx+dy*dy <= r2 {
				img.Set(x, y, v)
			}
		}
	}
}

// rasterizeQuad fills every pixel whose center falls inside quad with v,
// scanning only its image-space bounding box and testing membership with
// geometry.PointInPolygon.
func rasterizeQuad(img *imagery.GrayscaleImage, quad [4]geometry.Point2D, v byte) {
	box := geometry.BoundingBox(quad[:])
	x0 := clampInt(int(box.X), 0, img.Width)
	y0 := clampInt(int(box.Y), 0, img.Height)
	x1 := clampInt(int(box.X+box.Width)+1, 0, img.Width)
	y1 := clampInt(int(box.Y+box.Height)+1, 0, img.Height)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := geometry.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			if geometry.PointInPolygon(p, quad[:]) {
				img.Set(x, y, v)
			}
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
