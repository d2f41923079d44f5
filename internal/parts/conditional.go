package parts

import (
	"fmt"
	"strings"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/parts/eval"
	"github.com/roach88/crucible/internal/value"
)

// conditionalDecision routes on the first true condition in an ordered
// statement list. Statements have the form
//
//	<route> if <condition>
//	else <route>
//
// where the condition references experiment data as {name}. An else
// statement must be last. With no matching statement the decision stays
// undecided and the researcher picks the route.
type conditionalDecision struct {
	*part.Base
	statements []condStatement
}

type condStatement struct {
	route string
	cond  string // empty for else statements
	names []string
}

func newConditionalDecision(ctx *part.Context) (part.Part, error) {
	d := &conditionalDecision{Base: part.NewBase(ctx)}
	raw, err := d.ConfigValue("statements", part.Allow(value.KindList))
	if err != nil {
		return nil, err
	}
	list, _ := value.AsList(raw)
	for i, item := range list {
		text, ok := value.AsString(item)
		if !ok {
			return nil, &part.ConfigError{
				Part:    d.FullName(),
				Field:   "statements",
				Message: fmt.Sprintf("statement %d must be a string", i),
			}
		}
		st, err := parseStatement(text)
		if err != nil {
			return nil, &part.ConfigError{
				Part:    d.FullName(),
				Field:   "statements",
				Message: err.Error(),
			}
		}
		if st.cond == "" && i != len(list)-1 {
			return nil, &part.ConfigError{
				Part:    d.FullName(),
				Field:   "statements",
				Message: "else statement must be last",
			}
		}
		d.statements = append(d.statements, st)
	}
	return d, nil
}

func parseStatement(text string) (condStatement, error) {
	if route, cond, ok := strings.Cut(text, " if "); ok {
		route = strings.TrimSpace(route)
		cond = strings.TrimSpace(cond)
		if route == "" || cond == "" {
			return condStatement{}, fmt.Errorf("invalid statement %q", text)
		}
		return condStatement{route: route, cond: cond, names: eval.ExtractNames(cond)}, nil
	}
	if rest, ok := strings.CutPrefix(text, "else "); ok {
		route := strings.TrimSpace(rest)
		if route == "" {
			return condStatement{}, fmt.Errorf("invalid statement %q", text)
		}
		return condStatement{route: route}, nil
	}
	return condStatement{}, fmt.Errorf("invalid statement %q", text)
}

func (d *conditionalDecision) DecideRoute() (part.Route, error) {
	for _, st := range d.statements {
		if st.cond == "" {
			return part.RouteToPart(st.route), nil
		}
		vars := make(value.Map, len(st.names))
		for _, name := range st.names {
			v, err := d.Input(name, part.UseGlobal())
			if err != nil {
				return part.Undecided, err
			}
			vars[name] = v
		}
		hit, err := eval.EvalBool(st.cond, vars)
		if err != nil {
			return part.Undecided, fmt.Errorf("condition %q: %w", st.cond, err)
		}
		if hit {
			return part.RouteToPart(st.route), nil
		}
	}
	return part.Undecided, nil
}
