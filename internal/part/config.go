package part

import (
	"github.com/roach88/crucible/internal/value"
)

// Config is the immutable descriptor for one node of the part graph, as
// produced by the config loader.
type Config struct {
	// FullName is the dot-separated hierarchical path, unique across the
	// run. Every part nested under a flow is prefixed by the flow's
	// FullName plus a dot.
	FullName string

	// TypeName keys into the part registry.
	TypeName string

	// Source is the path of the config file that defined this part.
	// Relative paths inside the part (e.g. flow.load) resolve against it.
	Source string

	// Raw is the part's raw config table, recorded in part_added trace
	// entries for auditability.
	Raw value.Map

	// Values holds the opaque config values interpreted by the part
	// implementation.
	Values value.Map

	// Inputs maps a part-local argument name to a data store key.
	// An absent entry means the argument is unmapped.
	Inputs map[string]string

	// Outputs is the symmetric mapping for outputs.
	Outputs map[string]string

	// Next maps a route name to a short destination name. The empty route
	// name is the unconditional default used by steps and flows.
	Next map[string]string

	// First is the short name of the node to enter when a flow begins.
	First string
}

// DefaultNext returns the unconditional default destination, or "" if the
// part has none configured.
func (c Config) DefaultNext() string {
	return c.Next[""]
}
