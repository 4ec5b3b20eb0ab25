package host

import "errors"

var (
	// ErrStaleFrame is returned when a pose is read with an outdated Frame.
	ErrStaleFrame = errors.New("stale frame")

	// ErrNotFound is returned for unknown skeletons, joints, animations and
	// controllers.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating an object whose name is taken.
	ErrExists = errors.New("already exists")
)
