package engine

import (
	"errors"
	"fmt"
)

// PathDeviationError reports that the live graph disagrees with the
// historical trace being retraced. It is fatal: retracing must reproduce
// the exact sequence of nodes or abort, because a deviation means the
// graph changed or the trace is corrupt.
type PathDeviationError struct {
	// Index is the position in the historical part path.
	Index int

	// Expected is the historical name at that position.
	Expected string

	// Actual is the live name the run was about to visit.
	Actual string
}

func (e *PathDeviationError) Error() string {
	return fmt.Sprintf(
		"path deviation at index %d while retracing old run: expected %q, got %q",
		e.Index, e.Expected, e.Actual,
	)
}

// IsPathDeviation reports whether err is (or wraps) a PathDeviationError.
func IsPathDeviation(err error) bool {
	var pe *PathDeviationError
	return errors.As(err, &pe)
}
