package finance

import "errors"

var (
	// ErrConfigurationMissing means no epoch exists and creating the default failed.
	ErrConfigurationMissing = errors.New("financial configuration missing")
	// ErrInvalidProject means the project identifier is empty.
	ErrInvalidProject = errors.New("invalid project id")
	// ErrInvalidRange means a caller supplied an unusable date range.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrEpochBackward means an epoch update would move the epoch earlier
	// without an explicit override.
	ErrEpochBackward = errors.New("financial core start date cannot move backward without override")
	// ErrEpochLocked means another epoch update for the project is in progress.
	ErrEpochLocked = errors.New("epoch update already in progress")
)
