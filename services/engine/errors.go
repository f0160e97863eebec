package engine

import "errors"

var (
	// ErrEmptyRange means a requested date range produced zero bars.
	ErrEmptyRange = errors.New("no bars in the requested date range")
	// ErrInsufficientData means there are too few bars to simulate.
	ErrInsufficientData = errors.New("insufficient data: need at least 2 bars")
)
