package point

import "calibgo/internal/calib/imagery"

// refineSubPixel computes a sub-pixel center for the detection at integer
// (cx, cy) using an intensity-weighted centroid over a window sized by
// radius+SubPixelSearchMargin. This simplifies a reference pyramidal SSD
// block-matching refinement scheme to plain centroid refinement (see
// DESIGN.md). It also recomputes the signed strength at the final radius
// so the returned point carries the correct sign convention (dark
// positive, bright negative).
func (d *Detector) refineSubPixel(img *imagery.GrayscaleImage, cx, cy, radius int, dark bool) (x, y, signedStrength float64, ok bool) {
	k := d.pyramid.forStride(radius, img.Stride)

	var strength float64
	if dark {
		strength = darkPointStrength(img, cx, cy, k, d.params)
	} else {
		strength = brightPointStrength(img, cx, cy, k, d.params)
	}
	if strength <= 0 {
		return 0, 0, 0, false
	}

	margin := int(d.params.SubPixelSearchMargin) + radius

	var sumW, sumWx, sumWy float64
	for dy := -margin; dy <= margin; dy++ {
		py := cy + dy
		if py < 0 || py >= img.Height {
			continue
		}
		for dx := -margin; dx <= margin; dx++ {
			px := cx + dx
			if px < 0 || px >= img.Width {
				continue
			}
			v := float64(img.At(px, py))

			// Only the dot's own pixels (past Threshold on the dot's
			// side) carry weight, so the centroid lands on the dot.
			var w float64
			if dark {
				w = d.params.Threshold - v
			} else {
				w = v - d.params.Threshold
			}
			if w <= 0 {
				continue
			}
			sumW += w
			sumWx += w * float64(px)
			sumWy += w * float64(py)
		}
	}

	if sumW <= 0 {
		return float64(cx), float64(cy), signedStrengthOf(strength, dark), true
	}

	return sumWx / sumW, sumWy / sumW, signedStrengthOf(strength, dark), true
}

// signedStrengthOf applies the sign convention: dark detections
// are positive, bright detections negative.
func signedStrengthOf(strength float64, dark bool) float64 {
	if dark {
		return strength
	}
	return -strength
}
