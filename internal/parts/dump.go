package parts

import (
	"fmt"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/value"
)

// dumpStep prints the experiment data to the console.
type dumpStep struct {
	*part.Base
}

func newDumpStep(ctx *part.Context) (part.Part, error) {
	return &dumpStep{Base: part.NewBase(ctx)}, nil
}

func (s *dumpStep) RunStep() error {
	out := s.Host().Stdout()
	fmt.Fprintln(out, "Experiment Data:")
	data := s.CopyData()
	if len(data) == 0 {
		fmt.Fprintln(out, "  (no data)")
		return nil
	}
	for _, name := range data.SortedKeys() {
		fmt.Fprintf(out, "  %s: %s\n", name, value.Render(data[name]))
	}
	return nil
}
