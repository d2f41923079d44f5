package parts

import (
	"fmt"
	"strings"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/parts/eval"
	"github.com/roach88/crucible/internal/value"
)

// expressionStep evaluates assignment statements of the form
//
//	<data_name> = <expression>
//
// in order, writing each result to the named experiment data. Expressions
// reference existing data as {name}; the whole store is in scope.
type expressionStep struct {
	*part.Base
	statements []exprStatement
}

type exprStatement struct {
	target string
	expr   string
}

func newExpressionStep(ctx *part.Context) (part.Part, error) {
	s := &expressionStep{Base: part.NewBase(ctx)}
	raw, err := s.ConfigValue("statements", part.Allow(value.KindList))
	if err != nil {
		return nil, err
	}
	list, _ := value.AsList(raw)
	for i, item := range list {
		text, ok := value.AsString(item)
		if !ok {
			return nil, &part.ConfigError{
				Part:    s.FullName(),
				Field:   "statements",
				Message: fmt.Sprintf("statement %d must be a string", i),
			}
		}
		target, expr, found := strings.Cut(text, "=")
		target = strings.TrimSpace(target)
		expr = strings.TrimSpace(expr)
		if !found || target == "" || expr == "" || strings.Contains(expr, "=") {
			return nil, &part.ConfigError{
				Part:    s.FullName(),
				Field:   "statements",
				Message: fmt.Sprintf("statement %q must be of the form '<data_name> = <expression>'", text),
			}
		}
		s.statements = append(s.statements, exprStatement{target: target, expr: expr})
	}
	return s, nil
}

func (s *expressionStep) RunStep() error {
	for _, st := range s.statements {
		result, err := eval.Eval(st.expr, s.CopyData())
		if err != nil {
			return fmt.Errorf("statement %q: %w", st.target+" = "+st.expr, err)
		}
		if err := s.SetOutput(st.target, result, part.UseGlobal()); err != nil {
			return err
		}
	}
	return nil
}
