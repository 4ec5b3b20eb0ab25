package orchestrator

import "errors"

// ErrInflectionUnavailable is returned when a category listed in
// timing.require has no columns in the table.
var ErrInflectionUnavailable = errors.New("required inflection not available in table")
