package config

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaErr  error
)

func schema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		schemaVal = ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		schemaErr = schemaVal.Err()
	})
	return schemaVal, schemaErr
}

// validateShape unifies a decoded table against a schema definition.
// Concreteness is required, so a missing required field fails here rather
// than surfacing later as a zero value.
func validateShape(defName string, data map[string]any) error {
	root, err := schema()
	if err != nil {
		return fmt.Errorf("compile embedded schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath(defName))
	if !def.Exists() {
		return fmt.Errorf("embedded schema has no definition %s", defName)
	}
	unified := def.Unify(root.Context().Encode(data))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
