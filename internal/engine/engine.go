// Package engine runs a configured part graph to completion.
//
// The engine is strictly sequential: it walks the graph one part at a
// time, staging data mutations per part and committing them only on
// success. Every transition is appended to a trace, and a prior trace can
// be fed back in to retrace, rerun, or continue an earlier run.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/crucible/internal/data"
	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/registry"
	"github.com/roach88/crucible/internal/trace"
	"github.com/roach88/crucible/internal/value"
)

// livePart pairs a constructed part with its config and detected variant.
type livePart struct {
	cfg      part.Config
	role     part.Role
	step     part.Step
	decision part.Decision
	flow     part.Flow
	p        part.Part
}

// Engine executes one experiment. Construct it with New, then call Run
// once per trace. An Engine is not safe for concurrent use.
type Engine struct {
	registry *registry.Registry
	configs  []part.Config

	name      string
	runNumber int
	entry     string
	initial   value.Map
	operator  Operator
	now       func() time.Time
	token     func() string
	stdin     io.Reader
	stdout    io.Writer
	log       *slog.Logger

	// per-run state, reset by Run
	tw        *trace.Writer
	data      *data.Store
	parts     map[string]*livePart
	order     []string
	flowStack []string
	replay    value.Value
	hasReplay bool
	partData  value.Value
	runToken  string
}

// Option customizes a new Engine.
type Option func(*Engine)

// WithExperimentName sets the experiment name recorded in the trace.
func WithExperimentName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// WithRunNumber sets the run number recorded in the trace.
func WithRunNumber(n int) Option {
	return func(e *Engine) { e.runNumber = n }
}

// WithEntry sets the full name of the part the run starts at. Without it
// the run opens at an ask point and the operator picks the first part.
func WithEntry(fullName string) Option {
	return func(e *Engine) { e.entry = fullName }
}

// WithInitialData seeds the experiment data store.
func WithInitialData(m value.Map) Option {
	return func(e *Engine) { e.initial = m }
}

// WithOperator sets the researcher-decision callback.
func WithOperator(op Operator) Option {
	return func(e *Engine) { e.operator = op }
}

// WithNow injects the timestamp source. Tests use a fixed clock to get
// byte-stable traces.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStdio sets the console endpoints handed to interactive parts.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(e *Engine) {
		e.stdin = in
		e.stdout = out
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTokenSource injects the run token generator. Tests use a fixed
// token to get byte-stable traces.
func WithTokenSource(gen func() string) Option {
	return func(e *Engine) { e.token = gen }
}

// New creates an engine over a part registry and the flattened part
// configs of one experiment.
func New(reg *registry.Registry, configs []part.Config, opts ...Option) *Engine {
	e := &Engine{
		registry:  reg,
		configs:   configs,
		name:      "experiment",
		runNumber: 1,
		now:       time.Now,
		token:     newRunToken,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// record appends a trace entry. A failing writer does not abort the run;
// the failure is logged and the run carries on with whatever entries did
// make it to disk.
func (e *Engine) record(entry trace.Entry) {
	if e.tw == nil {
		return
	}
	if err := e.tw.Record(entry); err != nil {
		e.log.Error("failed to record trace entry", "event", entry.Event(), "error", err)
	}
}

func (e *Engine) construct(cfg part.Config) (*livePart, error) {
	info, ok := e.registry.Lookup(cfg.TypeName)
	if !ok {
		return nil, &part.ConfigError{
			Part:    cfg.FullName,
			Field:   "type_name",
			Message: fmt.Sprintf("unknown part type %q", cfg.TypeName),
		}
	}
	p, err := info.Construct(&part.Context{Config: cfg, Host: e})
	if err != nil {
		return nil, err
	}

	lp := &livePart{cfg: cfg, p: p}
	variants := 0
	if s, ok := p.(part.Step); ok {
		lp.step, lp.role = s, part.RoleStep
		variants++
	}
	if d, ok := p.(part.Decision); ok {
		lp.decision, lp.role = d, part.RoleDecision
		variants++
	}
	if f, ok := p.(part.Flow); ok {
		lp.flow, lp.role = f, part.RoleFlow
		variants++
	}
	if variants != 1 {
		return nil, &part.ConfigError{
			Part:    cfg.FullName,
			Field:   "type_name",
			Message: fmt.Sprintf("part type %q must implement exactly one of step, decision, flow", cfg.TypeName),
		}
	}
	part.AssignRole(p, lp.role)
	return lp, nil
}

// Host implementation. Parts reach these through their Base helpers.

// GetData reads a named value from the staging generation.
func (e *Engine) GetData(name string) (value.Value, bool) {
	return e.data.Get(name)
}

// SetData writes a named value into the staging generation.
func (e *Engine) SetData(name string, v value.Value) {
	e.data.Set(name, v)
}

// SnapshotData returns a deep copy of the staging generation.
func (e *Engine) SnapshotData() value.Map {
	return e.data.Staging()
}

// PartNames lists all live part full names in declaration order.
func (e *Engine) PartNames() []string {
	return slices.Clone(e.order)
}

// FindPart returns the live part with the given full name.
func (e *Engine) FindPart(fullName string) (part.Part, bool) {
	lp, ok := e.parts[fullName]
	if !ok {
		return nil, false
	}
	return lp.p, true
}

// AddPart constructs and registers a part from config, replacing any
// existing part with the same full name.
func (e *Engine) AddPart(cfg part.Config) error {
	lp, err := e.construct(cfg)
	if err != nil {
		return err
	}
	if _, exists := e.parts[cfg.FullName]; !exists {
		e.order = append(e.order, cfg.FullName)
	}
	e.parts[cfg.FullName] = lp
	e.record(trace.PartAdded{
		Timestamp: e.now(),
		Part:      cfg.FullName,
		TypeName:  cfg.TypeName,
		Role:      lp.role.String(),
		Source:    cfg.Source,
		Raw:       cfg.Raw,
	})
	return nil
}

// RemovePart removes the part with the given full name. Unknown names are
// a no-op.
func (e *Engine) RemovePart(fullName string) {
	if _, ok := e.parts[fullName]; !ok {
		return
	}
	delete(e.parts, fullName)
	e.order = slices.DeleteFunc(e.order, func(n string) bool { return n == fullName })
	e.record(trace.PartRemoved{Timestamp: e.now(), Part: fullName})
}

// RecordPartData attaches a payload to the trace entry of the part
// currently running. The last call wins.
func (e *Engine) RecordPartData(v value.Value) {
	e.partData = v
}

// ReplayData returns the payload recorded at the current position of the
// trace being retraced, if any.
func (e *Engine) ReplayData() (value.Value, bool) {
	return e.replay, e.hasReplay
}

// RecordCustom appends a part-defined trace entry.
func (e *Engine) RecordCustom(name string, payload value.Value) {
	e.record(trace.Custom{Timestamp: e.now(), Name: name, Payload: payload})
}

// Stdin returns the console input handed to interactive parts.
func (e *Engine) Stdin() io.Reader { return e.stdin }

// Stdout returns the console output handed to interactive parts.
func (e *Engine) Stdout() io.Writer { return e.stdout }

func newRunToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
