package calibrator

import "errors"

// Sentinel errors returned by Calibrator, always wrapped with
// context via fmt.Errorf("...: %w", ...) so callers can still use
// errors.Is against the sentinel.
var (
	// ErrInvalidImage means the supplied GrayscaleImage failed format
	// validation.
	ErrInvalidImage = errors.New("calibrator: invalid image")

	// ErrNoBoardDetected means no marker candidate could be anchored to
	// the known board in this image.
	ErrNoBoardDetected = errors.New("calibrator: no board detected")

	// ErrInsufficientObservations means an image (or the whole session)
	// does not carry enough correspondences to contribute to or run a
	// calibration pass.
	ErrInsufficientObservations = errors.New("calibrator: insufficient observations")

	// ErrOptimizerFailure means the nonlinear refinement failed to
	// converge or diverged.
	ErrOptimizerFailure = errors.New("calibrator: optimizer failure")

	// ErrArithmetic means a geometric computation (projection, pose
	// estimation) produced a non-finite or otherwise unusable result.
	ErrArithmetic = errors.New("calibrator: arithmetic error")
)
