package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/crucible/internal/engine"
	"github.com/roach88/crucible/internal/part"
)

// consoleOperator answers researcher decisions from the terminal.
type consoleOperator struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsoleOperator(in io.Reader, out io.Writer) *consoleOperator {
	return &consoleOperator{in: bufio.NewReader(in), out: out}
}

func (o *consoleOperator) Decide(ctx context.Context, p engine.Prompt) (string, error) {
	if p.Current != "" {
		fmt.Fprintf(o.out, "No part named %q here.\n", p.Current)
	}
	if p.Flow != "" {
		fmt.Fprintf(o.out, "Current flow: %s\n", p.Flow)
	}
	fmt.Fprintln(o.out, "Available parts:")
	if len(p.Choices) == 0 {
		fmt.Fprintln(o.out, "  (none)")
	}
	for _, c := range p.Choices {
		fmt.Fprintf(o.out, "  %s (%s)\n", c.Short, c.TypeName)
	}
	fmt.Fprintf(o.out, "Commands: %s, %s\n", part.CommandDone, part.CommandQuit)
	fmt.Fprint(o.out, "Where to next? ")

	line, err := o.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			// console closed, end the experiment cleanly
			fmt.Fprintln(o.out)
			return part.CommandQuit, nil
		}
		return "", fmt.Errorf("read researcher decision: %w", err)
	}
	return strings.TrimSpace(line), nil
}
