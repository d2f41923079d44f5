// Package registry maps part type names to constructors.
//
// The set of available part types is statically known per build: packages
// register their types explicitly (see internal/parts.Builtin) and the
// engine resolves type names at construction time. An unknown type name is
// a fatal configuration error.
package registry

import (
	"fmt"
	"sort"

	"github.com/roach88/crucible/internal/part"
)

// Constructor builds a live part from its context. It should read and
// validate its config values (via ctx helpers on the embedded Base) and
// fail with a ConfigError on any mistake.
type Constructor func(ctx *part.Context) (part.Part, error)

// Info describes one registered part type.
type Info struct {
	Construct   Constructor
	Description string
}

// Registry is a name → part type mapping. Not safe for concurrent
// mutation; populate it at startup, then treat it as read-only.
type Registry struct {
	types map[string]Info
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]Info)}
}

// Register adds a part type under the given name. Registering the same
// name twice is a programming error.
func (r *Registry) Register(typeName string, info Info) error {
	if info.Construct == nil {
		return fmt.Errorf("part type %q: nil constructor", typeName)
	}
	if _, exists := r.types[typeName]; exists {
		return fmt.Errorf("part type %q registered twice", typeName)
	}
	r.types[typeName] = info
	return nil
}

// MustRegister is Register that panics on error. Intended for package-level
// registration of builtin types.
func (r *Registry) MustRegister(typeName string, info Info) {
	if err := r.Register(typeName, info); err != nil {
		panic(err)
	}
}

// Lookup returns the info for a type name.
func (r *Registry) Lookup(typeName string) (Info, bool) {
	info, ok := r.types[typeName]
	return info, ok
}

// TypeNames returns all registered names, sorted.
func (r *Registry) TypeNames() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
