package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/crucible/internal/data"
	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/trace"
)

// Mode selects how a prior trace constrains the run.
type Mode int

const (
	// ModeNormal runs fresh with no prior trace.
	ModeNormal Mode = iota

	// ModeRerun retraces a prior run end to end, replaying its decisions
	// and failing on the first deviation.
	ModeRerun

	// ModeContinue retraces a prior run up to the point where it quit,
	// then hands control back to the operator.
	ModeContinue
)

// String returns the mode name used in logs and CLI flags.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeRerun:
		return "rerun"
	case ModeContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// destination is where the run loop goes next. Names produced by parts
// and operators are flow-relative; names replayed from history are
// already fully qualified.
type destination struct {
	name      string
	qualified bool
}

// Run executes the experiment, appending every transition to tw. In
// ModeRerun and ModeContinue, old supplies the prior run to retrace; a
// live destination that differs from the recorded one aborts the run with
// a PathDeviationError.
//
// Run leaves tw open; the caller owns closing it, so a failed run still
// gets its entries finalized.
func (e *Engine) Run(ctx context.Context, tw *trace.Writer, mode Mode, old *trace.Trace) error {
	hist, err := historyForMode(mode, old)
	if err != nil {
		return err
	}

	e.tw = tw
	e.data = data.New(e.initial)
	e.parts = make(map[string]*livePart)
	e.order = nil
	e.flowStack = nil
	e.replay, e.hasReplay = nil, false
	e.partData = nil
	e.runToken = e.token()

	e.record(trace.ExperimentBegin{
		Timestamp:  e.now(),
		Experiment: e.name,
		RunNumber:  e.runNumber,
		RunToken:   e.runToken,
	})
	for _, cfg := range e.configs {
		if err := e.AddPart(cfg); err != nil {
			return err
		}
	}

	e.log.Info("experiment started",
		"experiment", e.name, "run", e.runNumber, "mode", mode.String(), "parts", len(e.parts))

	current := e.entry
	idx := 0
	for current != part.CommandQuit {
		if err := ctx.Err(); err != nil {
			return err
		}
		if idx < len(hist) {
			if hist[idx].Part != current {
				return &PathDeviationError{Index: idx, Expected: hist[idx].Part, Actual: current}
			}
			e.replay, e.hasReplay = hist[idx].Data, hist[idx].Data != nil
		} else {
			e.replay, e.hasReplay = nil, false
		}

		e.record(trace.AtPart{Timestamp: e.now(), Part: current})

		var next destination
		lp, known := e.parts[current]
		switch {
		case current == part.CommandDone:
			next = e.endFlow()
		case current != "" && known:
			next = e.runPart(lp)
		case idx+1 < len(hist):
			// replay the recorded destination instead of asking
			next = destination{name: hist[idx+1].Part, qualified: true}
		default:
			if current != "" {
				e.log.Warn("no part with this name, asking researcher", "part", current)
			}
			name, err := e.askOperator(ctx, current)
			if err != nil {
				return err
			}
			e.record(trace.ResearcherDecision{Timestamp: e.now(), NextPart: name})
			next = destination{name: name}
		}

		idx++
		current = e.qualify(next)
	}

	e.record(trace.AtPart{Timestamp: e.now(), Part: part.CommandQuit})
	for len(e.flowStack) > 0 {
		e.endFlow()
	}
	e.record(trace.ExperimentEnd{
		Timestamp:  e.now(),
		Experiment: e.name,
		RunNumber:  e.runNumber,
		RunToken:   e.runToken,
	})
	e.log.Info("experiment finished", "experiment", e.name, "run", e.runNumber)
	return nil
}

// historyForMode derives the path to retrace from a prior trace. Continue
// mode turns the trailing quit into an ask point so the operator regains
// control where the old run stopped.
func historyForMode(mode Mode, old *trace.Trace) ([]trace.PathStep, error) {
	switch mode {
	case ModeNormal:
		return nil, nil
	case ModeRerun, ModeContinue:
		if old == nil {
			return nil, fmt.Errorf("mode %s needs a prior trace", mode)
		}
		hist := old.PartPath()
		if mode == ModeContinue {
			if n := len(hist); n > 0 && hist[n-1].Part == part.CommandQuit {
				hist[n-1] = trace.PathStep{}
			} else {
				hist = append(hist, trace.PathStep{})
			}
		}
		return hist, nil
	default:
		return nil, fmt.Errorf("unknown run mode %d", mode)
	}
}

// runPart executes one live part inside a staging generation. A failing
// part is rolled back, its error recorded, and control handed to the
// operator; the run itself carries on.
func (e *Engine) runPart(lp *livePart) destination {
	e.data.Begin()
	e.partData = nil
	name := lp.cfg.FullName

	switch lp.role {
	case part.RoleStep:
		before := e.data.Committed()
		if err := lp.step.RunStep(); err != nil {
			return e.failPart(lp, err)
		}
		e.record(trace.Step{
			Timestamp:  e.now(),
			Part:       name,
			DataBefore: before,
			DataAfter:  e.data.Staging(),
			PartData:   e.partData,
		})
		e.data.Commit()
		return destination{name: lp.cfg.DefaultNext()}

	case part.RoleDecision:
		route, err := lp.decision.DecideRoute()
		if err != nil {
			return e.failPart(lp, err)
		}
		dest := resolveRoute(lp.cfg, route)
		e.record(trace.Decision{
			Timestamp: e.now(),
			Part:      name,
			NextPart:  dest,
			PartData:  e.partData,
		})
		e.data.Commit()
		return destination{name: dest}

	case part.RoleFlow:
		route, err := lp.flow.BeginFlow()
		if err != nil {
			return e.failPart(lp, err)
		}
		e.flowStack = append(e.flowStack, name)
		e.record(trace.FlowBegin{Timestamp: e.now(), Flow: name, FirstPart: route.Name})
		e.data.Commit()
		return destination{name: route.Name}
	}

	return e.failPart(lp, fmt.Errorf("part %q has no runnable variant", name))
}

func (e *Engine) failPart(lp *livePart, err error) destination {
	e.data.Rollback()
	e.record(trace.Error{Timestamp: e.now(), Part: lp.cfg.FullName, Message: err.Error()})
	e.log.Error("part failed", "part", lp.cfg.FullName, "error", err)
	return destination{}
}

// resolveRoute maps a decision's route to a destination short name. A
// route with no mapping and no part-name fallback is left undecided.
func resolveRoute(cfg part.Config, r part.Route) string {
	switch {
	case r.IsUndecided():
		return ""
	case r.IsCommand():
		return r.Name
	}
	if dest, ok := cfg.Next[r.Name]; ok {
		return dest
	}
	if r.CanUsePartName {
		return r.Name
	}
	return ""
}

// endFlow closes the innermost open flow and routes to its configured
// successor. With no flow open, ending means quitting.
func (e *Engine) endFlow() destination {
	if len(e.flowStack) == 0 {
		return destination{name: part.CommandQuit, qualified: true}
	}
	full := e.flowStack[len(e.flowStack)-1]
	e.flowStack = e.flowStack[:len(e.flowStack)-1]

	lp, ok := e.parts[full]
	if !ok || lp.flow == nil {
		e.log.Warn("open flow disappeared before its end", "flow", full)
		return destination{}
	}
	if err := lp.flow.EndFlow(); err != nil {
		e.record(trace.Error{Timestamp: e.now(), Part: full, Message: err.Error()})
		e.log.Error("flow end failed", "flow", full, "error", err)
		return destination{}
	}
	e.record(trace.FlowEnd{Timestamp: e.now(), Flow: full})
	return destination{name: lp.cfg.DefaultNext()}
}

func (e *Engine) currentFlow() string {
	if len(e.flowStack) == 0 {
		return ""
	}
	return e.flowStack[len(e.flowStack)-1]
}

func (e *Engine) qualify(d destination) string {
	if d.qualified {
		return d.name
	}
	return part.Qualify(e.currentFlow(), d.name)
}

// askOperator suspends the run until the operator names a reachable part
// or a reserved command. Unreachable answers re-ask.
func (e *Engine) askOperator(ctx context.Context, current string) (string, error) {
	if e.operator == nil {
		return "", errors.New("run needs a researcher decision but no operator is configured")
	}
	flow := e.currentFlow()
	var choices []Choice
	for _, full := range e.order {
		if part.IsChild(flow, full) {
			choices = append(choices, Choice{
				Short:    part.ShortName(flow, full),
				TypeName: e.parts[full].cfg.TypeName,
			})
		}
	}
	prompt := Prompt{Experiment: e.name, Flow: flow, Current: current, Choices: choices}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ans, err := e.operator.Decide(ctx, prompt)
		if err != nil {
			return "", err
		}
		ans = strings.TrimSpace(ans)
		if part.IsCommand(ans) {
			return ans, nil
		}
		if ans != "" {
			if _, ok := e.parts[part.Qualify(flow, ans)]; ok {
				return ans, nil
			}
		}
		e.log.Warn("researcher named an unreachable part, asking again", "answer", ans)
	}
}
