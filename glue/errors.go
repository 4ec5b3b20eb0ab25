package glue

import "errors"

var (
	// ErrTimingDrift is returned when a merged gloss does not end within one
	// frame of where the timing says it should.
	ErrTimingDrift = errors.New("timing drift")

	// ErrNoChannels is returned when the reference animation has no curves.
	ErrNoChannels = errors.New("animation has no channels")
)
