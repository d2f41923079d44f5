package parts

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/parts/eval"
	"github.com/roach88/crucible/internal/value"
)

// terminalStep shows a prompt on the console, with {name} data
// interpolation. With "enter" and "to" configured it also reads a typed
// value from the researcher and stores it under the given data name; the
// entered value is recorded as part data, and a retraced run consumes the
// recorded value instead of prompting again.
type terminalStep struct {
	*part.Base
	prompt    string
	enterKind string // "", "str", "int" or "float"
	storeName string
	in        *bufio.Reader
}

func newTerminalStep(ctx *part.Context) (part.Part, error) {
	t := &terminalStep{Base: part.NewBase(ctx)}

	v, err := t.ConfigValue("prompt", part.Allow(value.KindString))
	if err != nil {
		return nil, err
	}
	t.prompt, _ = value.AsString(v)

	enter, err := t.ConfigValue("enter", part.Allow(value.KindString), part.Optional())
	if err != nil {
		return nil, err
	}
	store, err := t.ConfigValue("to", part.Allow(value.KindString), part.Optional())
	if err != nil {
		return nil, err
	}
	t.enterKind, _ = value.AsString(enter)
	t.storeName, _ = value.AsString(store)

	switch {
	case t.enterKind != "":
		switch t.enterKind {
		case "str", "int", "float":
		default:
			return nil, &part.ConfigError{
				Part:    t.FullName(),
				Field:   "enter",
				Message: fmt.Sprintf("unsupported input type %q", t.enterKind),
			}
		}
		if t.storeName == "" {
			return nil, &part.ConfigError{
				Part:    t.FullName(),
				Field:   "to",
				Message: "'enter' needs 'to' naming the data to store the input",
			}
		}
	case t.storeName != "":
		return nil, &part.ConfigError{
			Part:    t.FullName(),
			Field:   "to",
			Message: "cannot use 'to' without 'enter'",
		}
	}
	return t, nil
}

func (t *terminalStep) RunStep() error {
	vars := make(value.Map)
	for _, name := range eval.ExtractNames(t.prompt) {
		v, err := t.Input(name, part.UseGlobal())
		if err != nil {
			return err
		}
		vars[name] = v
	}
	text, err := eval.Interpolate(t.prompt, vars)
	if err != nil {
		return err
	}

	out := t.Host().Stdout()
	if t.storeName == "" {
		fmt.Fprintln(out, text)
		return nil
	}

	if replayed, ok := t.Host().ReplayData(); ok {
		t.Host().RecordPartData(replayed)
		return t.SetOutput(t.storeName, replayed, part.UseGlobal())
	}

	for {
		fmt.Fprint(out, text)
		line, err := t.readLine()
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		entered, convErr := convertInput(t.enterKind, line)
		if convErr != nil {
			fmt.Fprintf(out, "Could not convert %q to %s.\nPlease try again.\n", line, t.enterKind)
			continue
		}
		t.Host().RecordPartData(entered)
		return t.SetOutput(t.storeName, entered, part.UseGlobal())
	}
}

func (t *terminalStep) readLine() (string, error) {
	if t.in == nil {
		t.in = bufio.NewReader(t.Host().Stdin())
	}
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func convertInput(kind, line string) (value.Value, error) {
	switch kind {
	case "str":
		return value.String(line), nil
	case "int":
		i, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			return nil, err
		}
		return value.Int(i), nil
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return nil, err
		}
		return value.Float(f), nil
	default:
		return nil, fmt.Errorf("unsupported input type %q", kind)
	}
}
