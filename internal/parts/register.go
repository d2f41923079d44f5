package parts

import (
	"github.com/roach88/crucible/internal/registry"
)

// Builtin returns a registry populated with every builtin part type.
func Builtin() *registry.Registry {
	r := registry.New()
	r.MustRegister("flow.standard", registry.Info{
		Construct:   newStandardFlow,
		Description: "flow that enters at its configured start_here child",
	})
	r.MustRegister("flow.manual", registry.Info{
		Construct:   newManualFlow,
		Description: "flow whose first part is chosen by the researcher",
	})
	r.MustRegister("flow.load", registry.Info{
		Construct:   newLoadFlow,
		Description: "flow that loads its parts from another config file",
	})
	r.MustRegister("decision.conditional", registry.Info{
		Construct:   newConditionalDecision,
		Description: "decision routed by ordered conditional statements",
	})
	r.MustRegister("step.expression", registry.Info{
		Construct:   newExpressionStep,
		Description: "step that evaluates assignment statements over the data",
	})
	r.MustRegister("step.terminal", registry.Info{
		Construct:   newTerminalStep,
		Description: "step that prompts the researcher on the console",
	})
	r.MustRegister("step.dump", registry.Info{
		Construct:   newDumpStep,
		Description: "step that prints the experiment data",
	})
	return r
}
