// Package eval evaluates the restricted expression grammar used by
// conditional decisions and expression steps.
//
// Expressions reference experiment data as {name}. References are
// rewritten to lookups in a vars map before compilation; the rest of the
// source is an expr-lang expression, pre-validated to reject member
// access, function calls and statement separators.
package eval

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/roach88/crucible/internal/value"
)

var refPattern = regexp.MustCompile(`\{(.*?)\}`)

// ExtractNames returns all {name} data references in the text, in order of
// appearance.
func ExtractNames(text string) []string {
	var names []string
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}

// Interpolate replaces every {name} reference in text with the rendered
// value from vars. A reference to a name not present in vars is an error.
func Interpolate(text string, vars value.Map) (string, error) {
	missing := ""
	out := refPattern.ReplaceAllStringFunc(text, func(ref string) string {
		name := ref[1 : len(ref)-1]
		v, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return ref
		}
		return value.Render(v)
	})
	if missing != "" {
		return "", fmt.Errorf("data name %q not found", missing)
	}
	return out, nil
}

// Eval evaluates one expression against the given variables and converts
// the result back to a Value.
func Eval(src string, vars value.Map) (value.Value, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty expression")
	}
	if err := Validate(src); err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}
	rewritten := refPattern.ReplaceAllStringFunc(src, func(ref string) string {
		return fmt.Sprintf("vars[%q]", ref[1:len(ref)-1])
	})
	out, err := expr.Eval(rewritten, map[string]any{"vars": value.MapToAny(vars)})
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", src, err)
	}
	v, err := value.FromAny(out)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", src, err)
	}
	return v, nil
}

// EvalBool evaluates a condition and reduces the result to its truthiness.
func EvalBool(cond string, vars value.Map) (bool, error) {
	v, err := Eval(cond, vars)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy reports whether a value counts as true in a condition: false for
// Null, zero numbers, empty strings and empty containers.
func Truthy(v value.Value) bool {
	switch x := v.(type) {
	case nil, value.Null:
		return false
	case value.Bool:
		return bool(x)
	case value.Int:
		return x != 0
	case value.Float:
		return x != 0
	case value.String:
		return x != ""
	case value.List:
		return len(x) > 0
	case value.Map:
		return len(x) > 0
	default:
		return false
	}
}
