package part

import (
	"fmt"
	"strings"
)

// Flow child management helpers. Flows address their own parts by short
// name only: a flow should never reach outside its own sub-graph.

// StartHere returns the configured short name of the part to enter when
// this flow begins, or "" if none is configured.
func (b *Base) StartHere() string {
	return b.ctx.Config.First
}

// ChildNames lists the short names of the flow's direct children, in
// declaration order. Parts inside nested flows are not included.
func (b *Base) ChildNames() []string {
	return ChildShortNames(b.FullName(), b.ctx.Host.PartNames())
}

// ChildPart returns the direct child with the given short name.
func (b *Base) ChildPart(shortName string) (Part, bool) {
	return b.ctx.Host.FindPart(b.FullName() + "." + shortName)
}

// AddChild constructs a new part from config and adds it to this flow,
// replacing any existing child with the same name. The config's full name
// must be scoped under this flow.
func (b *Base) AddChild(cfg Config) error {
	if b.role != RoleFlow {
		return fmt.Errorf("cannot add part %q: %s parts do not own a sub-graph", cfg.FullName, b.role)
	}
	if !strings.HasPrefix(cfg.FullName, b.FullName()+".") {
		return &ConfigError{
			Part:    cfg.FullName,
			Message: fmt.Sprintf("cannot add to flow %q: a part's full name must start with its flow's full name", b.FullName()),
		}
	}
	return b.ctx.Host.AddPart(cfg)
}

// RemoveChild removes a direct child by short name. Removing a child that
// does not exist is a no-op.
func (b *Base) RemoveChild(shortName string) {
	b.ctx.Host.RemovePart(b.FullName() + "." + shortName)
}
