package targets

import "errors"

// ErrUnknownVariant is returned by New for an unrecognised target id.
var ErrUnknownVariant = errors.New("unknown target variant")
