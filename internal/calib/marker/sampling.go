package marker

import (
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"
	"calibgo/pkg/geometry"
)

// bilinear maps unit-square coordinates (u, v), both in [0, 1], to image
// space through the quad corners[0..3] ordered clockwise from top-left
// (top-left, top-right, bottom-right, bottom-left). This is a first-order
// approximation of the true perspective mapping, adequate for the small
// quads a marker occupies in frame.
func bilinear(corners [4]geometry.Point2D, u, v float64) geometry.Point2D {
	top := corners[0].Add(corners[1].Sub(corners[0]).Scale(u))
	bottom := corners[3].Add(corners[2].Sub(corners[3]).Scale(u))
	return top.Add(bottom.Sub(top).Scale(v))
}

// sampleModule returns the grayscale intensity at a module's center,
// where (col, row) are in [0, layout.Size).
func sampleModule(img *imagery.GrayscaleImage, corners [4]geometry.Point2D, col, row int) (byte, bool) {
	u := (float64(col) + 0.5) / float64(layout.Size)
	v := (float64(row) + 0.5) / float64(layout.Size)
	p := bilinear(corners, u, v)

	x, y := int(p.X+0.5), int(p.Y+0.5)
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return 0, false
	}
	return img.At(x, y), true
}

// SampleMatrix rasterizes a candidate quad's 25 modules into a binary
// matrix, thresholding each module's center intensity at `threshold`; a
// module below the threshold is a set ("dark") bit.
// It fails if any sample falls outside the image.
func SampleMatrix(img *imagery.GrayscaleImage, corners [4]geometry.Point2D, threshold float64) (layout.Matrix5x5, bool) {
	var m layout.Matrix5x5
	for row := 0; row < layout.Size; row++ {
		for col := 0; col < layout.Size; col++ {
			v, ok := sampleModule(img, corners, col, row)
			if !ok {
				return layout.Matrix5x5{}, false
			}
			m.Set(col, row, float64(v) < threshold)
		}
	}
	return m, true
}

// ModuleCenters returns the 25 image-space module-center positions for a
// candidate quad, in row-major order, matching the same bilinear mapping
// SampleMatrix itself samples. Used to seed correspondence densification
// with a per-module detection pool standing in for a dedicated
// dot-detector pass (see calibrator.flattenModuleSamples).
func ModuleCenters(corners [4]geometry.Point2D) [layout.Size * layout.Size]geometry.Point2D {
	var out [layout.Size * layout.Size]geometry.Point2D
	for row := 0; row < layout.Size; row++ {
		for col := 0; col < layout.Size; col++ {
			u := (float64(col) + 0.5) / float64(layout.Size)
			v := (float64(row) + 0.5) / float64(layout.Size)
			out[row*layout.Size+col] = bilinear(corners, u, v)
		}
	}
	return out
}

// invertMatrix flips every module, used to test the photographic
// complement ("inverted" sign) against the catalog.
func invertMatrix(m layout.Matrix5x5) layout.Matrix5x5 {
	var out layout.Matrix5x5
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			out.Set(x, y, !m.Get(x, y))
		}
	}
	return out
}
