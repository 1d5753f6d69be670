// Package imagery defines the GrayscaleImage contract that the
// detection pipeline reads from, independent of how a caller loaded or
// decoded the image.
package imagery

import (
	"fmt"
	stdimage "image"
)

// GrayscaleImage is a row-major, single-channel 8-bit image with origin
// at the top-left, one byte per pixel in [0, 255].
type GrayscaleImage struct {
	Width, Height int
	Stride        int // elements (bytes) per row; >= Width
	Data          []byte
}

// NewGrayscaleImage allocates a zeroed image with Stride == Width.
func NewGrayscaleImage(width, height int) *GrayscaleImage {
	return &GrayscaleImage{
		Width:  width,
		Height: height,
		Stride: width,
		Data:   make([]byte, width*height),
	}
}

// Validate reports InvalidImage-class errors: wrong pixel format or
// zero-sized dimensions.
func (g *GrayscaleImage) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("imagery: invalid dimensions %dx%d", g.Width, g.Height)
	}
	if g.Stride < g.Width {
		return fmt.Errorf("imagery: stride %d smaller than width %d", g.Stride, g.Width)
	}
	if len(g.Data) < g.Stride*g.Height {
		return fmt.Errorf("imagery: data length %d too small for %dx%d stride %d", len(g.Data), g.Width, g.Height, g.Stride)
	}
	return nil
}

// At returns the pixel value at (x, y) without bounds checking; callers
// in the hot detection loops are expected to have already range-checked
// against a margin (see point.Detect).
func (g *GrayscaleImage) At(x, y int) byte {
	return g.Data[y*g.Stride+x]
}

// Set writes the pixel value at (x, y).
func (g *GrayscaleImage) Set(x, y int, v byte) {
	g.Data[y*g.Stride+x] = v
}

// Offset returns the linear index of (x, y), used by callers that walk a
// kernel's memory-stride chain directly.
func (g *GrayscaleImage) Offset(x, y int) int {
	return y*g.Stride + x
}

// FromImage converts a standard library image.Image to a GrayscaleImage
// using the standard Rec. 601 luma weights.
func FromImage(src stdimage.Image) *GrayscaleImage {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewGrayscaleImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
			out.Set(x, y, byte(lum))
		}
	}
	return out
}
