// Package parts is the builtin part type catalog. Builtin returns a
// registry with every type in this package; programs embedding the engine
// can register their own types next to them.
package parts

import (
	"github.com/roach88/crucible/internal/part"
)

// standardFlow enters at its configured start_here child.
type standardFlow struct {
	*part.Base
}

func newStandardFlow(ctx *part.Context) (part.Part, error) {
	return &standardFlow{Base: part.NewBase(ctx)}, nil
}

func (f *standardFlow) BeginFlow() (part.Route, error) {
	return part.RouteToPart(f.StartHere()), nil
}

func (f *standardFlow) EndFlow() error { return nil }

// manualFlow always opens at an ask point: the researcher picks the first
// part to run.
type manualFlow struct {
	*part.Base
}

func newManualFlow(ctx *part.Context) (part.Part, error) {
	return &manualFlow{Base: part.NewBase(ctx)}, nil
}

func (f *manualFlow) BeginFlow() (part.Route, error) {
	return part.Undecided, nil
}

func (f *manualFlow) EndFlow() error { return nil }
