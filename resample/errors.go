package resample

import "errors"

// ErrTooFewSamples is returned when a gloss would be resampled to less than
// one frame.
var ErrTooFewSamples = errors.New("resample count below one frame")
