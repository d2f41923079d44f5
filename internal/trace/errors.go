package trace

import (
	"errors"
	"fmt"
)

var errUnknownEvent = errors.New("unknown event")

// FormatError reports a malformed or unknown trace entry, or an
// unsupported file version, found while loading a historical trace.
// Format errors are fatal at load time; a trace is never partially
// tolerated.
type FormatError struct {
	// Index is the entry's position in the file, or -1 for file-level
	// problems.
	Index int

	// Event is the entry's discriminator, if one was readable.
	Event string

	// Message describes the problem.
	Message string
}

func (e *FormatError) Error() string {
	switch {
	case e.Index >= 0 && e.Event != "":
		return fmt.Sprintf("trace entry %d (%s): %s", e.Index, e.Event, e.Message)
	case e.Index >= 0:
		return fmt.Sprintf("trace entry %d: %s", e.Index, e.Message)
	default:
		return fmt.Sprintf("trace: %s", e.Message)
	}
}

// IsFormatError reports whether err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
