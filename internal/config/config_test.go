package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/value"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullConfig = `
experiment:
  name: demo
  out_dir: runs
  initial_values:
    count: 0
    label: start

part:
  start_here: main
  main:
    type_name: flow.standard
    first_part: calc
    calc:
      type_name: step.expression
      config_values:
        statements:
          - "x = 1"
      next_part: report
    report:
      type_name: step.dump
      next_part:
        done: quit
  solo:
    type_name: step.dump
`

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, fullConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "runs"), cfg.OutDir)
	assert.Equal(t, "main", cfg.StartHere)
	assert.True(t, value.Equal(value.Int(0), cfg.Initial["count"]))
	assert.True(t, value.Equal(value.String("start"), cfg.Initial["label"]))

	names := make([]string, len(cfg.Parts))
	for i, p := range cfg.Parts {
		names[i] = p.FullName
	}
	assert.Equal(t, []string{"main", "main.calc", "main.report", "solo"}, names,
		"parts flatten parents before children, in declaration order")

	main := cfg.Parts[0]
	assert.Equal(t, "flow.standard", main.TypeName)
	assert.Equal(t, "calc", main.First)
	assert.Equal(t, path, main.Source)

	calc := cfg.Parts[1]
	assert.Equal(t, "step.expression", calc.TypeName)
	assert.Equal(t, map[string]string{"": "report"}, calc.Next)
	stmts, ok := value.AsList(calc.Values["statements"])
	require.True(t, ok)
	require.Len(t, stmts, 1)

	report := cfg.Parts[2]
	assert.Equal(t, map[string]string{"done": "quit"}, report.Next)
	assert.Equal(t, "", report.DefaultNext())
}

func TestLoadAbsoluteOutDir(t *testing.T) {
	out := t.TempDir()
	path := writeConfig(t, `
experiment:
  name: demo
  out_dir: `+out+`

part:
  only:
    type_name: step.dump
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(out), cfg.OutDir)
}

func TestLoadRejectsMissingTables(t *testing.T) {
	path := writeConfig(t, "part:\n  only:\n    type_name: step.dump\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing experiment table")

	path = writeConfig(t, "experiment:\n  name: demo\n  out_dir: runs\n")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing part table")
}

func TestLoadRejectsEmptyPartTable(t *testing.T) {
	path := writeConfig(t, `
experiment:
  name: demo
  out_dir: runs

part:
  start_here: main
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parts found")
}

func TestLoadValidatesShapes(t *testing.T) {
	for name, content := range map[string]string{
		"empty experiment name": `
experiment:
  name: ""
  out_dir: runs
part:
  only:
    type_name: step.dump
`,
		"part without type_name": `
experiment:
  name: demo
  out_dir: runs
part:
  only:
    next_part: quit
`,
		"scalar initial_values": `
experiment:
  name: demo
  out_dir: runs
  initial_values: 5
part:
  only:
    type_name: step.dump
`,
	} {
		path := writeConfig(t, content)
		_, err := Load(path)
		assert.Error(t, err, name)
		assert.True(t, part.IsConfigError(err), name)
	}
}

func TestLoadRejectsBadNextPart(t *testing.T) {
	path := writeConfig(t, `
experiment:
  name: demo
  out_dir: runs
part:
  only:
    type_name: step.dump
    next_part: 7
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadPartTablePrefixesNames(t *testing.T) {
	path := writeConfig(t, `
part:
  start_here: a
  a:
    type_name: step.dump
    next_part: b
  b:
    type_name: step.dump
`)
	first, parts, err := LoadPartTable(path, "outer.inner")
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	require.Len(t, parts, 2)
	assert.Equal(t, "outer.inner.a", parts[0].FullName)
	assert.Equal(t, "outer.inner.b", parts[1].FullName)
}

func TestLoadRejectsNonMappingDocument(t *testing.T) {
	path := writeConfig(t, "- just\n- a\n- list\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}
