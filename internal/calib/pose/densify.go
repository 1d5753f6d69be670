package pose

import (
	"calibgo/internal/calib/board"
	"calibgo/internal/calib/camera"
	"calibgo/internal/calib/layout"
	"calibgo/internal/calib/point"
	"calibgo/pkg/geometry"
)

// minSurvivorsPerMarker is the region-growth gate: a marker's 25 object points must reproject onto at
// least this many detections before its correspondences are trusted and
// its neighbors are explored.
const minSurvivorsPerMarker = 21

// Densify grows a sparse correspondence set into a dense one by walking
// the board's 4-neighbor grid outward from seed, reprojecting each
// marker's 25 object points with the current model/pose estimate and
// matching them against the detected points within matchTolerance pixels.
// A marker is accepted, and its neighbors queued, only once at least
// minSurvivorsPerMarker of its 25 points find a match.
func Densify(model camera.Model, worldTCamera geometry.Pose, mb *board.MetricBoard, seed board.Coordinate, detections []point.Point, matchTolerance float64) []Correspondence {
	visited := map[board.Coordinate]bool{seed: true}
	queue := []board.Coordinate{seed}

	var out []Correspondence

	for len(queue) > 0 {
		coord := queue[0]
		queue = queue[1:]

		matched := 0
		var local []Correspondence

		for idx := 0; idx < layout.Size*layout.Size; idx++ {
			id := board.ObjectPointID{Coordinate: coord, IndexInMarker: idx}
			obj := mb.ObjectPoint(id)

			proj, ok := model.Project(worldTCamera, obj)
			if !ok {
				continue
			}
			if det, found := nearestDetection(detections, proj, matchTolerance); found {
				matched++
				local = append(local, Correspondence{Object: obj, Image: geometry.Point2D{X: det.X, Y: det.Y}})
			}
		}

		if matched < minSurvivorsPerMarker {
			continue
		}
		out = append(out, local...)

		for _, dir := range []layout.Orientation{layout.North, layout.East, layout.South, layout.West} {
			n := coord.Neighbor(dir)
			if n.X < 0 || n.X >= mb.XMarkers() || n.Y < 0 || n.Y >= mb.YMarkers() {
				continue
			}
			if visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}

	return out
}

// nearestDetection finds the closest detected point to proj within
// tolerance pixels, accepting it only if it is unambiguous: the
// runner-up match must be at least twice as far away, otherwise a
// half-occluded or ambiguous marker could steal a neighbor's detection.
func nearestDetection(detections []point.Point, proj geometry.Point2D, tolerance float64) (point.Point, bool) {
	limit := tolerance * tolerance
	best, second := -1, -1
	bestDist, secondDist := limit, limit
	for i, d := range detections {
		dx, dy := d.X-proj.X, d.Y-proj.Y
		dist := dx*dx + dy*dy
		if dist > limit {
			continue
		}
		switch {
		case dist < bestDist:
			best, second = i, best
			bestDist, secondDist = dist, bestDist
		case dist < secondDist:
			second, secondDist = i, dist
		}
	}
	if best < 0 {
		return point.Point{}, false
	}
	if second >= 0 && secondDist < 4*bestDist {
		return point.Point{}, false
	}
	return detections[best], true
}
