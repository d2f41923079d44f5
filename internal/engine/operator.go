package engine

import "context"

// Choice is one reachable destination offered to the operator.
type Choice struct {
	// Short is the flow-relative name to enter.
	Short string

	// TypeName is the part's registered type, shown for orientation.
	TypeName string
}

// Prompt describes the decision the operator is being asked to make.
type Prompt struct {
	// Experiment is the experiment name.
	Experiment string

	// Flow is the full name of the currently open flow, "" at top level.
	Flow string

	// Current is the name the run loop stopped at: an unknown part name,
	// or "" when the previous part produced no destination.
	Current string

	// Choices lists the direct children of the current flow.
	Choices []Choice
}

// Operator is the researcher-decision boundary: a single synchronous call
// that suspends the run loop until a human supplies the next destination.
// The engine re-asks until the returned value names a reachable part or a
// reserved command ("done", "quit").
//
// When retracing, the engine resolves decisions from history and the
// operator is never invoked.
type Operator interface {
	Decide(ctx context.Context, p Prompt) (string, error)
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc func(ctx context.Context, p Prompt) (string, error)

// Decide implements Operator.
func (f OperatorFunc) Decide(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}
