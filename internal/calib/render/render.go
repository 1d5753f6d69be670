// Package render synthesizes calibration frames: it rasterizes a board's
// markers into a GrayscaleImage for tests and the calibviewer demo
// command, standing in for an actual camera capture. Pixel fill uses the
// same plain byte-slice writes as package imagery; camera-like softening
// is applied through gocv's GaussianBlur.
package render

import (
	"fmt"
	"image"

	"calibgo/internal/calib/board"
	"calibgo/internal/calib/imagery"
	"calibgo/internal/calib/layout"

	"gocv.io/x/gocv"
)

// Options configures a synthetic frame: a uniform pixel grid, one cell per
// marker, matching marker.UniformGridQuadFinder's expectations.
type Options struct {
	OriginX, OriginY float64
	CellSize         float64

	// BlurSigma, when > 0, applies a Gaussian blur to the rasterized frame
	// to approximate real lens/sensor softening.
	BlurSigma float64
}

// DefaultOptions returns a reasonable frame layout for a board's markers.
func DefaultOptions() Options {
	return Options{OriginX: 40, OriginY: 40, CellSize: 160, BlurSigma: 0.6}
}

// Frame rasterizes every marker of a board into a grayscale image on a
// uniform pixel grid, module-by-module, then optionally blurs it.
func Frame(mb *board.MetricBoard, opts Options) (*imagery.GrayscaleImage, error) {
	if opts.CellSize <= 0 {
		return nil, fmt.Errorf("render: cell size must be positive, got %g", opts.CellSize)
	}

	width := int(opts.OriginX*2 + opts.CellSize*float64(mb.XMarkers()))
	height := int(opts.OriginY*2 + opts.CellSize*float64(mb.YMarkers()))
	img := imagery.NewGrayscaleImage(width, height)
	for i := range img.Data {
		img.Data[i] = 255
	}

	cat := mb.Catalog()
	for y := 0; y < mb.YMarkers(); y++ {
		for x := 0; x < mb.XMarkers(); x++ {
			bm := mb.MarkerAt(board.Coordinate{X: x, Y: y})
			rotated := cat.At(bm.ID).Rotated(int(bm.Orientation))
			paintQuad(img, opts.OriginX+float64(x)*opts.CellSize, opts.OriginY+float64(y)*opts.CellSize, opts.CellSize, rotated, bm.Sign)
		}
	}

	if opts.BlurSigma <= 0 {
		return img, nil
	}
	return blur(img, opts.BlurSigma)
}

// paintQuad rasterizes one marker's 25 modules into an axis-aligned pixel
// block, flipping every module for an Inverted-sign marker so it renders
// as the photographic complement of its catalog pattern.
func paintQuad(img *imagery.GrayscaleImage, originX, originY, cellSize float64, m layout.Matrix5x5, sign board.Sign) {
	modulePx := cellSize / float64(layout.Size)
	for row := 0; row < layout.Size; row++ {
		for col := 0; col < layout.Size; col++ {
			dark := m.Get(col, row)
			if sign == board.Inverted {
				dark = !dark
			}
			v := byte(255)
			if dark {
				v = 0
			}
			x0 := int(originX + float64(col)*modulePx)
			y0 := int(originY + float64(row)*modulePx)
			x1 := int(originX + float64(col+1)*modulePx)
			y1 := int(originY + float64(row+1)*modulePx)
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					img.Set(x, y, v)
				}
			}
		}
	}
}

// blur runs a Gaussian blur over the rasterized frame via gocv, round
// tripping the pixel data through a gocv.Mat.
func blur(img *imagery.GrayscaleImage, sigma float64) (*imagery.GrayscaleImage, error) {
	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC1, img.Data)
	if err != nil {
		return nil, fmt.Errorf("render: building mat: %w", err)
	}
	defer mat.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(mat, &blurred, image.Point{X: 0, Y: 0}, sigma, sigma, gocv.BorderDefault)

	out := imagery.NewGrayscaleImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.Set(x, y, blurred.GetUCharAt(y, x))
		}
	}
	return out, nil
}
