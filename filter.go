package jsonvisit

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"github.com/streamvisit/jsonvisit/internal/jlog"
)

// Filter wraps inner so that inner's leaf callback only runs for values
// where expr evaluates truthy. expr sees the fully decoded candidate
// value bound to the name "value"; non-leaf schemas (Array, Fields) are
// supported too — the expression is evaluated once per candidate before
// it is handed down to inner, so an Array(Filter(...)) drops elements
// without visiting their descendants.
//
// The program is compiled once, on the first call, and reused; a
// compile error is surfaced the first time a candidate reaches this
// node rather than at construction time, since Schema is a plain value
// with no error-returning constructor.
func Filter(predicate string, inner Schema) Schema {
	var program *vm.Program
	var compileErr error
	compiled := false

	evalTruthy := func(value any) (bool, error) {
		if !compiled {
			program, compileErr = expr.Compile(predicate, expr.Env(map[string]any{"value": any(nil)}))
			compiled = true
		}
		if compileErr != nil {
			return false, compileErr
		}
		out, err := expr.Run(program, map[string]any{"value": value})
		if err != nil {
			return false, err
		}
		truthy, ok := out.(bool)
		if !ok {
			truthy = false
		}
		if jlog.Filter() {
			jlog.L().Debug("filter", zap.String("predicate", predicate), zap.Bool("result", truthy))
		}
		return truthy, nil
	}

	switch v := inner.(type) {
	case Leaf:
		return Leaf(func(value any) error {
			ok, err := evalTruthy(value)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return v(value)
		})
	default:
		// Array and Fields descend structurally; filtering their already
		// decoded subtree value is only meaningful once the whole subtree
		// has been materialized, so Filter over a non-leaf schema wraps it
		// as a buffering leaf that re-dispatches the matching value through
		// a fresh in-memory Visit-free decode rather than the token-level
		// automaton — this keeps Filter a pure post-decode combinator, at
		// the cost of losing the selective skip for rejected non-leaf
		// subtrees.
		return Leaf(func(value any) error {
			ok, err := evalTruthy(value)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return applySchema(inner, value)
		})
	}
}

// applySchema drives an already-decoded Go value (map[string]any,
// []any, or a scalar) through schema's leaf callbacks directly, without
// a token stream. It is used only by Filter to re-apply a non-leaf
// schema against a value Filter already had to fully decode in order to
// evaluate its predicate.
func applySchema(schema Schema, value any) error {
	switch s := schema.(type) {
	case Leaf:
		return s(value)
	case arrayOf:
		arr, ok := value.([]any)
		if !ok {
			return &LexicalError{Err: errNotArray}
		}
		for _, elem := range arr {
			if err := applySchema(s.inner, elem); err != nil {
				return err
			}
		}
		return nil
	case Fields:
		obj, ok := value.(map[string]any)
		if !ok {
			return &LexicalError{Err: errNotObject}
		}
		for key, child := range s {
			v, present := obj[key]
			if !present {
				continue
			}
			if err := applySchema(child, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
