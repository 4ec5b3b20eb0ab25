package extract

import "errors"

var (
	ErrEmptyWindow    = errors.New("empty extraction window")
	ErrLengthMismatch = errors.New("source and target frame counts differ")
)
