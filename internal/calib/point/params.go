// Package point implements the marker-point detector (component C3): it
// locates and sub-pixel refines the dark/bright round marker dots in a
// grayscale image.
package point

// Params tunes the detector via a DefaultParams + With* copy-and-return
// idiom.
type Params struct {
	// Radii is the descending list of ring-kernel outer radii tried at
	// each pixel, largest first.
	Radii []int

	// MinDifference is the minimum brightness gap between the candidate
	// pixel and its surround before a sample counts as qualifying.
	MinDifference float64

	// VarianceCap rejects a candidate whose surround samples are too
	// inconsistent to be a clean ring (30^2 = 900).
	VarianceCap float64

	// Threshold is the brightness level T used by the dark/bright point
	// strength formulas.
	Threshold float64

	// DuplicateBinSize is the bin resolution (pixels) used for duplicate
	// removal.
	DuplicateBinSize float64

	// DuplicateRadius is the minimum separation (pixels) below which two
	// detections, of either sign, are considered duplicates.
	DuplicateRadius float64

	// OppositeSignRejectRadius discards a bright detection within this
	// many pixels of an accepted dark detection; dark detections are not
	// dropped for a nearby bright one.
	OppositeSignRejectRadius float64

	// SubPixelSearchMargin is added to a point's radius to size the
	// sub-pixel centroid window.
	SubPixelSearchMargin float64
}

// DefaultParams returns reasonable ring-detector parameters.
func DefaultParams() Params {
	return Params{
		Radii:                    []int{9, 7, 5, 4, 3},
		MinDifference:            5,
		VarianceCap:              900, // 30^2
		Threshold:                128,
		DuplicateBinSize:         10,
		DuplicateRadius:          2,
		OppositeSignRejectRadius: 4,
		SubPixelSearchMargin:     2,
	}
}

// WithThreshold returns a copy of p with a custom brightness threshold.
func (p Params) WithThreshold(t float64) Params {
	p.Threshold = t
	return p
}

// WithRadii returns a copy of p with a custom descending radius list.
func (p Params) WithRadii(radii []int) Params {
	p.Radii = radii
	return p
}
