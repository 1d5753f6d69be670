package point

import (
	"calibgo/internal/calib/imagery"
)

// darkPointStrength scores a dark center surrounded by a consistently
// brighter ring.
func darkPointStrength(img *imagery.GrayscaleImage, x, y int, k *kernel, params Params) float64 {
	c := float64(img.At(x, y))
	if c > 0.75*params.Threshold {
		return 0
	}

	m := params.Threshold * 0.25
	if floor := c + params.MinDifference; floor > m {
		m = floor
	}

	return ringStrength(img, x, y, k, c, m, params.VarianceCap, true)
}

// brightPointStrength is the symmetric rule for a bright center on a
// consistently darker ring.
func brightPointStrength(img *imagery.GrayscaleImage, x, y int, k *kernel, params Params) float64 {
	c := float64(img.At(x, y))
	if c < 0.25*params.Threshold {
		return 0
	}

	m := params.Threshold * 0.75
	if ceil := c - params.MinDifference; ceil < m {
		m = ceil
	}

	return ringStrength(img, x, y, k, c, m, params.VarianceCap, false)
}

// ringStrength walks the kernel's ring samples around (x, y) using its
// precomputed linear strides, rejecting as soon as a sample fails the
// brightness gate, then returns the accumulated squared-difference sum if
// the ring's own variance is below the cap.
func ringStrength(img *imagery.GrayscaleImage, x, y int, k *kernel, center, gate, varianceCap float64, dark bool) float64 {
	base := img.Offset(x, y)
	n := len(k.strides)
	if n == 0 {
		return 0
	}

	var sum float64
	var mean, m2 float64 // Welford's running mean/variance over raw samples

	for i, stride := range k.strides {
		idx := base + stride
		if idx < 0 || idx >= len(img.Data) {
			return 0
		}
		s := float64(img.Data[idx])

		if dark {
			if s < gate {
				return 0
			}
		} else {
			if s > gate {
				return 0
			}
		}

		diff := s - center
		sum += diff * diff

		count := float64(i + 1)
		delta := s - mean
		mean += delta / count
		m2 += delta * (s - mean)
	}

	variance := m2 / float64(n)
	if variance > varianceCap {
		return 0
	}

	return sum
}
