package dynamo

import "errors"

// Domain errors for experiment setup and storage.
var (
	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrInvalidBounds indicates a degenerate container bounding box.
	ErrInvalidBounds = errors.New("dynamo: invalid container bounds")

	// ErrInvalidSchedule indicates schedule constants that are not monotonic.
	ErrInvalidSchedule = errors.New("dynamo: invalid phase schedule")

	// ErrMissingObject indicates a scene object the controller needs was not built.
	ErrMissingObject = errors.New("dynamo: required scene object missing")

	// ErrRunNotFound indicates a stored run id that does not exist.
	ErrRunNotFound = errors.New("dynamo: run not found")
)
