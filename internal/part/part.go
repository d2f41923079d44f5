// Package part defines the contract every node of the workflow graph
// implements. A part is one of three capability variants:
//
//   - Step: performs work and may mutate the experiment data.
//   - Decision: selects a route without mutating data.
//   - Flow: owns and sequences a nested sub-graph of parts.
//
// Concrete part types embed *Base (constructed from the Context the engine
// hands them) and implement exactly one variant interface. All data store
// access goes through the Base helpers; parts never touch the store
// directly.
package part

import (
	"io"

	"github.com/roach88/crucible/internal/value"
)

// Role identifies which variant a live part is. The engine assigns it when
// the part is constructed, based on which variant interface the concrete
// type implements.
type Role int

const (
	RoleUnknown Role = iota
	RoleStep
	RoleDecision
	RoleFlow
)

// String returns the role name used in trace entries.
func (r Role) String() string {
	switch r {
	case RoleStep:
		return "step"
	case RoleDecision:
		return "decision"
	case RoleFlow:
		return "flow"
	default:
		return "unknown"
	}
}

// Step performs work when the run loop reaches it. RunStep may be called
// multiple times over the process lifetime, so implementations must reset
// any internal state between calls.
type Step interface {
	Part
	RunStep() error
}

// Decision selects the route to take next. It must not mutate the
// experiment data.
type Decision interface {
	Part
	DecideRoute() (Route, error)
}

// Flow sets up and sequences a nested sub-graph. BeginFlow is called when
// the run loop enters the flow; EndFlow exactly once per enter/exit pair,
// in LIFO order with nested flows.
type Flow interface {
	Part
	BeginFlow() (Route, error)
	EndFlow() error
}

// Part is the common interface of all variants. It is sealed: concrete
// types satisfy it by embedding *Base.
type Part interface {
	base() *Base
}

// Host is the engine-side surface a part reaches through its Context.
// Implemented by the execution engine; tests may supply their own.
type Host interface {
	// GetData reads a named value from the staging generation of the
	// experiment data.
	GetData(name string) (value.Value, bool)

	// SetData writes a named value to the staging generation.
	SetData(name string, v value.Value)

	// SnapshotData returns a deep copy of the staging generation.
	SnapshotData() value.Map

	// PartNames lists the full names of all live parts in declaration
	// order.
	PartNames() []string

	// FindPart returns the live part with the given full name.
	FindPart(fullName string) (Part, bool)

	// AddPart constructs and registers a part from config. Replaces any
	// existing part with the same full name.
	AddPart(cfg Config) error

	// RemovePart removes the part with the given full name, if present.
	RemovePart(fullName string)

	// RecordPartData attaches a part-scoped payload to the trace entry of
	// the part currently running. Used to replay operator input.
	RecordPartData(v value.Value)

	// ReplayData returns the payload logged at the current position of a
	// historical trace being retraced, if any.
	ReplayData() (value.Value, bool)

	// RecordCustom appends a custom trace entry.
	RecordCustom(name string, payload value.Value)

	// Stdin and Stdout are the console endpoints interactive parts use.
	Stdin() io.Reader
	Stdout() io.Writer
}

// Context binds a part instance to its config and the engine that runs it.
type Context struct {
	Config Config
	Host   Host
}

// Base carries the context and implements the shared read/write helpers.
// Embed a *Base in every concrete part type.
type Base struct {
	ctx  *Context
	role Role
}

// NewBase wraps a context for embedding in a concrete part.
func NewBase(ctx *Context) *Base {
	return &Base{ctx: ctx}
}

func (b *Base) base() *Base { return b }

// AssignRole records the variant the engine detected for a freshly
// constructed part. Parts must not call it.
func AssignRole(p Part, role Role) { p.base().role = role }

// Role returns the variant assigned to this part.
func (b *Base) Role() Role { return b.role }

// FullName returns the full part name assigned to this instance.
func (b *Base) FullName() string { return b.ctx.Config.FullName }

// ConfigSource returns the path of the config file that defined this part.
func (b *Base) ConfigSource() string { return b.ctx.Config.Source }

// Host exposes the engine surface, for part implementations that need
// more than the access helpers (e.g. recording part data).
func (b *Base) Host() Host { return b.ctx.Host }
