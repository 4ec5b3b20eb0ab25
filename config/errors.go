package config

import "errors"

// ErrInvalidTarget is returned when an inflection target entry fails
// validation.
var ErrInvalidTarget = errors.New("invalid inflection target")
