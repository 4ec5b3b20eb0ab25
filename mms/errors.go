package mms

import "errors"

var (
	// ErrMissingColumn is returned when a column every row needs is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrPartialVector is returned when only some of x/y/z are filled in.
	ErrPartialVector = errors.New("partially populated vector")

	// ErrInvalidValue is returned for cells that do not parse as numbers.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidDuration is returned for percentages outside [0%, 100%].
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrAssetNotFound is returned when a gloss animation file does not exist.
	ErrAssetNotFound = errors.New("motion capture file not found")

	// ErrHoldWithoutPredecessor is returned when a HOLD has no gloss before it.
	ErrHoldWithoutPredecessor = errors.New("HOLD without a preceding gloss")
)
