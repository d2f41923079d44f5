package part

import (
	"fmt"
	"slices"

	"github.com/roach88/crucible/internal/value"
)

// AccessOption adjusts how Config/Input/SetOutput resolve a name.
type AccessOption func(*accessOptions)

type accessOptions struct {
	allow     []value.Kind
	optional  bool
	useGlobal bool
}

// Allow restricts the accepted value kinds. A value of any other kind
// fails the access.
func Allow(kinds ...value.Kind) AccessOption {
	return func(o *accessOptions) { o.allow = kinds }
}

// Optional makes a missing value or mapping non-fatal: the access returns
// Null (or, for SetOutput, writes nothing).
func Optional() AccessOption {
	return func(o *accessOptions) { o.optional = true }
}

// UseGlobal falls back to the argument name itself as the data store key
// when the input/output mapping is absent. Convenient, but it couples the
// part to the global namespace.
func UseGlobal() AccessOption {
	return func(o *accessOptions) { o.useGlobal = true }
}

func applyOptions(opts []AccessOption) accessOptions {
	var o accessOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o accessOptions) kindAllowed(v value.Value) bool {
	if len(o.allow) == 0 {
		return true
	}
	return slices.Contains(o.allow, v.Kind())
}

func (o accessOptions) kindList() string {
	names := make([]string, len(o.allow))
	for i, k := range o.allow {
		names[i] = k.String()
	}
	return fmt.Sprintf("%v", names)
}

// ConfigValue looks up a config value by name. A missing value is a
// ConfigError unless Optional is given, in which case Null is returned.
// With Allow, a value of the wrong kind is a ConfigError: it is always
// attributable to a mistake in the config file.
func (b *Base) ConfigValue(name string, opts ...AccessOption) (value.Value, error) {
	o := applyOptions(opts)
	v, ok := b.ctx.Config.Values[name]
	if !ok {
		if o.optional {
			return value.Null{}, nil
		}
		return nil, &ConfigError{
			Part:    b.FullName(),
			Field:   name,
			Message: "config value must be assigned",
		}
	}
	if !o.kindAllowed(v) {
		return nil, &ConfigError{
			Part:    b.FullName(),
			Field:   name,
			Message: fmt.Sprintf("config value has kind %s, allowed kinds: %s", v.Kind(), o.kindList()),
		}
	}
	return v, nil
}

// Input resolves an input argument to a data store key via the part's
// input mapping and reads it from staging. An unmapped argument is a
// ConfigError unless UseGlobal (the argument name itself becomes the key)
// or Optional (Null is returned) is given. With Allow, a value of the
// wrong kind fails the access.
func (b *Base) Input(name string, opts ...AccessOption) (value.Value, error) {
	o := applyOptions(opts)
	key, mapped := b.ctx.Config.Inputs[name]
	if !mapped {
		if o.useGlobal {
			key = name
		} else {
			if o.optional {
				return value.Null{}, nil
			}
			return nil, &ConfigError{
				Part:    b.FullName(),
				Field:   name,
				Message: "input must be mapped to the name of some experiment data",
			}
		}
	}
	v, ok := b.ctx.Host.GetData(key)
	if !ok {
		v = value.Null{}
	}
	if !o.kindAllowed(v) {
		return nil, fmt.Errorf(
			"experiment data %q for input %q of %s has kind %s, allowed kinds: %s",
			key, name, b.FullName(), v.Kind(), o.kindList(),
		)
	}
	return v, nil
}

// SetOutput resolves an output argument to a data store key via the
// part's output mapping and writes the value to staging. Only steps may
// produce outputs; calling this from a decision or flow is a programming
// error and fails immediately. An unmapped argument is a ConfigError
// unless UseGlobal or Optional (the write is skipped) is given.
func (b *Base) SetOutput(name string, v value.Value, opts ...AccessOption) error {
	if b.role != RoleStep {
		return fmt.Errorf("cannot set output %q: %s parts must not mutate experiment data", name, b.role)
	}
	o := applyOptions(opts)
	key, mapped := b.ctx.Config.Outputs[name]
	if !mapped {
		if o.useGlobal {
			key = name
		} else {
			if o.optional {
				return nil
			}
			return &ConfigError{
				Part:    b.FullName(),
				Field:   name,
				Message: "output must be mapped to the name of some experiment data",
			}
		}
	}
	b.ctx.Host.SetData(key, v)
	return nil
}

// CopyData returns a deep copy of the current experiment data. Parts may
// inspect it freely; writes still have to go through SetOutput.
func (b *Base) CopyData() value.Map {
	return b.ctx.Host.SnapshotData()
}
