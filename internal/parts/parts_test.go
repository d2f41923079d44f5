package parts

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/value"
)

// testHost is a minimal in-memory engine surface for exercising part
// implementations directly.
type testHost struct {
	data    value.Map
	names   []string
	added   []part.Config
	removed []string
	logged  value.Value
	replay  value.Value
	stdin   io.Reader
	stdout  bytes.Buffer
}

func (h *testHost) GetData(name string) (value.Value, bool) {
	v, ok := h.data[name]
	return v, ok
}

func (h *testHost) SetData(name string, v value.Value) {
	if h.data == nil {
		h.data = value.Map{}
	}
	h.data[name] = v
}

func (h *testHost) SnapshotData() value.Map { return h.data.CopyMap() }

func (h *testHost) PartNames() []string { return h.names }

func (h *testHost) FindPart(string) (part.Part, bool) { return nil, false }

func (h *testHost) AddPart(cfg part.Config) error {
	h.added = append(h.added, cfg)
	return nil
}

func (h *testHost) RemovePart(fullName string) {
	h.removed = append(h.removed, fullName)
}

func (h *testHost) RecordPartData(v value.Value) { h.logged = v }

func (h *testHost) ReplayData() (value.Value, bool) {
	return h.replay, h.replay != nil
}

func (h *testHost) RecordCustom(string, value.Value) {}

func (h *testHost) Stdin() io.Reader {
	if h.stdin == nil {
		return strings.NewReader("")
	}
	return h.stdin
}

func (h *testHost) Stdout() io.Writer { return &h.stdout }

func build(t *testing.T, typeName string, cfg part.Config, h part.Host, role part.Role) part.Part {
	t.Helper()
	info, ok := Builtin().Lookup(typeName)
	require.True(t, ok, "type %q not registered", typeName)
	p, err := info.Construct(&part.Context{Config: cfg, Host: h})
	require.NoError(t, err)
	part.AssignRole(p, role)
	return p
}

func buildErr(t *testing.T, typeName string, cfg part.Config) error {
	t.Helper()
	info, ok := Builtin().Lookup(typeName)
	require.True(t, ok, "type %q not registered", typeName)
	_, err := info.Construct(&part.Context{Config: cfg, Host: &testHost{}})
	require.Error(t, err)
	return err
}

func statements(items ...string) value.Map {
	list := make(value.List, len(items))
	for i, s := range items {
		list[i] = value.String(s)
	}
	return value.Map{"statements": list}
}

func TestConditionalDecisionFirstMatchWins(t *testing.T) {
	h := &testHost{data: value.Map{"x": value.Int(5)}}
	cfg := part.Config{
		FullName: "route",
		Values:   statements("low if {x} < 3", "high if {x} >= 3", "else fallback"),
	}
	p := build(t, "decision.conditional", cfg, h, part.RoleDecision)

	route, err := p.(part.Decision).DecideRoute()
	require.NoError(t, err)
	assert.Equal(t, "high", route.Name)
	assert.True(t, route.CanUsePartName)
}

func TestConditionalDecisionElse(t *testing.T) {
	h := &testHost{data: value.Map{"x": value.Int(0)}}
	cfg := part.Config{
		FullName: "route",
		Values:   statements("low if {x} > 10", "else fallback"),
	}
	p := build(t, "decision.conditional", cfg, h, part.RoleDecision)

	route, err := p.(part.Decision).DecideRoute()
	require.NoError(t, err)
	assert.Equal(t, "fallback", route.Name)
}

func TestConditionalDecisionUndecided(t *testing.T) {
	h := &testHost{data: value.Map{"x": value.Int(0)}}
	cfg := part.Config{
		FullName: "route",
		Values:   statements("low if {x} > 10"),
	}
	p := build(t, "decision.conditional", cfg, h, part.RoleDecision)

	route, err := p.(part.Decision).DecideRoute()
	require.NoError(t, err)
	assert.True(t, route.IsUndecided())
}

func TestConditionalDecisionInputMapping(t *testing.T) {
	h := &testHost{data: value.Map{"global_count": value.Int(7)}}
	cfg := part.Config{
		FullName: "route",
		Values:   statements("go if {count} > 5"),
		Inputs:   map[string]string{"count": "global_count"},
	}
	p := build(t, "decision.conditional", cfg, h, part.RoleDecision)

	route, err := p.(part.Decision).DecideRoute()
	require.NoError(t, err)
	assert.Equal(t, "go", route.Name)
}

func TestConditionalDecisionConfigErrors(t *testing.T) {
	err := buildErr(t, "decision.conditional", part.Config{FullName: "route"})
	assert.True(t, part.IsConfigError(err))

	err = buildErr(t, "decision.conditional", part.Config{
		FullName: "route",
		Values:   statements("else early", "low if {x} > 10"),
	})
	assert.Contains(t, err.Error(), "else statement must be last")

	err = buildErr(t, "decision.conditional", part.Config{
		FullName: "route",
		Values:   statements("no separator here"),
	})
	assert.Contains(t, err.Error(), "invalid statement")
}

func TestExpressionStepRunsStatementsInOrder(t *testing.T) {
	h := &testHost{}
	cfg := part.Config{
		FullName: "calc",
		Values:   statements("x = 2", "y = {x} * 3"),
	}
	p := build(t, "step.expression", cfg, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.True(t, value.Equal(value.Int(2), h.data["x"]))
	assert.True(t, value.Equal(value.Int(6), h.data["y"]))
}

func TestExpressionStepOutputMapping(t *testing.T) {
	h := &testHost{}
	cfg := part.Config{
		FullName: "calc",
		Values:   statements("result = 1 + 1"),
		Outputs:  map[string]string{"result": "stored_result"},
	}
	p := build(t, "step.expression", cfg, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.True(t, value.Equal(value.Int(2), h.data["stored_result"]))
	_, ok := h.data["result"]
	assert.False(t, ok)
}

func TestExpressionStepConfigErrors(t *testing.T) {
	err := buildErr(t, "step.expression", part.Config{
		FullName: "calc",
		Values:   statements("just an expression"),
	})
	assert.Contains(t, err.Error(), "must be of the form")

	err = buildErr(t, "step.expression", part.Config{
		FullName: "calc",
		Values:   statements("x = 1 = 2"),
	})
	assert.Contains(t, err.Error(), "must be of the form")
}

func TestTerminalStepDisplayOnly(t *testing.T) {
	h := &testHost{data: value.Map{"name": value.String("bob")}}
	cfg := part.Config{
		FullName: "greet",
		Values:   value.Map{"prompt": value.String("hello {name}")},
	}
	p := build(t, "step.terminal", cfg, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.Equal(t, "hello bob\n", h.stdout.String())
	assert.Nil(t, h.logged)
}

func TestTerminalStepReadsTypedInput(t *testing.T) {
	h := &testHost{stdin: strings.NewReader("oops\n42\n")}
	cfg := part.Config{
		FullName: "age",
		Values: value.Map{
			"prompt": value.String("age? "),
			"enter":  value.String("int"),
			"to":     value.String("age"),
		},
	}
	p := build(t, "step.terminal", cfg, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.True(t, value.Equal(value.Int(42), h.data["age"]))
	assert.True(t, value.Equal(value.Int(42), h.logged))
	assert.Contains(t, h.stdout.String(), `Could not convert "oops" to int.`)
}

func TestTerminalStepReplaySkipsPrompt(t *testing.T) {
	h := &testHost{replay: value.Float(1.5)}
	cfg := part.Config{
		FullName: "weight",
		Values: value.Map{
			"prompt": value.String("weight? "),
			"enter":  value.String("float"),
			"to":     value.String("weight"),
		},
	}
	p := build(t, "step.terminal", cfg, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.True(t, value.Equal(value.Float(1.5), h.data["weight"]))
	assert.True(t, value.Equal(value.Float(1.5), h.logged))
	assert.Empty(t, h.stdout.String())
}

func TestTerminalStepConfigErrors(t *testing.T) {
	err := buildErr(t, "step.terminal", part.Config{
		FullName: "bad",
		Values: value.Map{
			"prompt": value.String("p"),
			"enter":  value.String("bytes"),
			"to":     value.String("x"),
		},
	})
	assert.Contains(t, err.Error(), "unsupported input type")

	err = buildErr(t, "step.terminal", part.Config{
		FullName: "bad",
		Values: value.Map{
			"prompt": value.String("p"),
			"enter":  value.String("int"),
		},
	})
	assert.Contains(t, err.Error(), "'enter' needs 'to'")

	err = buildErr(t, "step.terminal", part.Config{
		FullName: "bad",
		Values: value.Map{
			"prompt": value.String("p"),
			"to":     value.String("x"),
		},
	})
	assert.Contains(t, err.Error(), "cannot use 'to' without 'enter'")
}

func TestDumpStep(t *testing.T) {
	h := &testHost{data: value.Map{
		"beta":  value.Int(2),
		"alpha": value.String("one"),
	}}
	p := build(t, "step.dump", part.Config{FullName: "show"}, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.Equal(t, "Experiment Data:\n  alpha: one\n  beta: 2\n", h.stdout.String())
}

func TestDumpStepEmpty(t *testing.T) {
	h := &testHost{}
	p := build(t, "step.dump", part.Config{FullName: "show"}, h, part.RoleStep)

	require.NoError(t, p.(part.Step).RunStep())
	assert.Equal(t, "Experiment Data:\n  (no data)\n", h.stdout.String())
}

func TestStandardFlowEntersAtFirst(t *testing.T) {
	p := build(t, "flow.standard", part.Config{FullName: "main", First: "setup"}, &testHost{}, part.RoleFlow)

	route, err := p.(part.Flow).BeginFlow()
	require.NoError(t, err)
	assert.Equal(t, "setup", route.Name)
	assert.True(t, route.CanUsePartName)
	assert.NoError(t, p.(part.Flow).EndFlow())
}

func TestManualFlowAsksResearcher(t *testing.T) {
	p := build(t, "flow.manual", part.Config{FullName: "main"}, &testHost{}, part.RoleFlow)

	route, err := p.(part.Flow).BeginFlow()
	require.NoError(t, err)
	assert.True(t, route.IsUndecided())
}

const loadedTable = `
part:
  start_here: first
  first:
    type_name: step.expression
    config_values:
      statements:
        - "x = 1"
    next_part: second
  second:
    type_name: step.dump
`

func TestLoadFlowLoadsAtConstruction(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub.yaml")
	require.NoError(t, os.WriteFile(sub, []byte(loadedTable), 0o644))

	h := &testHost{}
	cfg := part.Config{
		FullName: "loader",
		Source:   filepath.Join(dir, "main.yaml"),
		Values:   value.Map{"path": value.String("sub.yaml")},
	}
	p := build(t, "flow.load", cfg, h, part.RoleFlow)

	require.Len(t, h.added, 2)
	assert.Equal(t, "loader.first", h.added[0].FullName)
	assert.Equal(t, "loader.second", h.added[1].FullName)

	route, err := p.(part.Flow).BeginFlow()
	require.NoError(t, err)
	assert.Equal(t, "first", route.Name)
}

func TestLoadFlowReloadsFromInput(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub.yaml")
	require.NoError(t, os.WriteFile(sub, []byte(loadedTable), 0o644))

	h := &testHost{data: value.Map{"table_path": value.String(sub)}}
	cfg := part.Config{
		FullName: "loader",
		Source:   filepath.Join(dir, "main.yaml"),
		Inputs:   map[string]string{"path": "table_path"},
	}
	p := build(t, "flow.load", cfg, h, part.RoleFlow)
	require.Empty(t, h.added)

	// previously loaded children are replaced on reload
	h.names = []string{"loader", "loader.stale"}

	route, err := p.(part.Flow).BeginFlow()
	require.NoError(t, err)
	assert.Equal(t, "first", route.Name)
	assert.Equal(t, []string{"loader.stale"}, h.removed)
	require.Len(t, h.added, 2)
}

func TestLoadFlowMissingFile(t *testing.T) {
	cfg := part.Config{
		FullName: "loader",
		Source:   filepath.Join(t.TempDir(), "main.yaml"),
		Values:   value.Map{"path": value.String("nope.yaml")},
	}
	err := buildErr(t, "flow.load", cfg)
	assert.True(t, part.IsConfigError(err))
}
