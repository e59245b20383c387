package adoc

import (
	"github.com/expr-lang/expr"
)

// evalCondition evaluates the bracket body of an ifeval:: directive
// against the current attributes, which are exposed to the expression as
// string variables. The guarded block is active when the expression
// evaluates to true.
//
// Anything that keeps the expression from producing a boolean — a compile
// error, an evaluation error, a non-boolean result — counts as active, so
// a broken ifeval degrades to emitting its block unconditionally instead
// of silently swallowing content.
func evalCondition(expression string, attrs AttributeMap) bool {
	env := make(map[string]any, len(attrs))
	for name, value := range attrs {
		env[name] = value
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return true
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return true
	}
	active, ok := out.(bool)
	return !ok || active
}
