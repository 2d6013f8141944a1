package tilecluster

import "errors"

// Error kinds returned by the package. Functions wrap these with context via
// fmt.Errorf("...: %w", ErrX); match them with errors.Is.
var (
	// ErrConfig reports an invalid caller configuration: an empty required
	// feature selection, a non-positive cluster count, or tiles of
	// different sizes being compared.
	ErrConfig = errors.New("tilecluster: invalid configuration")

	// ErrFormat reports malformed input data: a bad tile key, or image,
	// tile or window dimensions that are zero or negative.
	ErrFormat = errors.New("tilecluster: invalid format")

	// ErrIO reports a missing or corrupt persisted artifact.
	ErrIO = errors.New("tilecluster: i/o failure")
)
