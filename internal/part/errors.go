package part

import (
	"errors"
	"fmt"
)

// ConfigError reports a misconfigured part graph: a missing or mis-typed
// config value, an unmapped required input or output, an unknown type
// name, or a malformed add-part request. Configuration errors are never
// retried; they surface as a hard stop during construction or fail the
// enclosing call immediately.
type ConfigError struct {
	// Part is the full name of the affected part, if known.
	Part string

	// Field names the config value, input, or output argument involved.
	Field string

	// Message describes what is wrong.
	Message string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Part != "" && e.Field != "":
		return fmt.Sprintf("config error in part %q, field %q: %s", e.Part, e.Field, e.Message)
	case e.Part != "":
		return fmt.Sprintf("config error in part %q: %s", e.Part, e.Message)
	default:
		return fmt.Sprintf("config error: %s", e.Message)
	}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
