//go:build js_eval

package statebox

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs expressions as JavaScript with goja. Every run gets a
// fresh runtime, so expressions can't leak globals into each other.
type jsEvaluator struct {
	cfg engineConfig
}

// NewJSEvaluator returns the JavaScript engine.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	return &jsEvaluator{cfg: newEngineConfig(opts)}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, compileError(EngineJS, expression, errEmptyExpression)
	}
	if cached, ok := e.cfg.cached(EngineJS, expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return &jsRule{evaluator: e, program: program, expression: expression}, nil
		}
	}
	program, err := goja.Compile("condition", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	if err != nil {
		return nil, compileError(EngineJS, expression, err)
	}
	e.cfg.remember(EngineJS, expression, program)
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	scope := newRuleScope(ctx)
	vm := goja.New()
	for name, value := range scope.variables() {
		if err := vm.Set(name, value); err != nil {
			return nil, evaluateError(EngineJS, r.expression, ctx.Label, err)
		}
	}
	bindings := map[string]any{
		builtinChanged: scope.changed,
		builtinAt:      scope.at,
		builtinBefore:  scope.before,
	}
	for _, name := range r.evaluator.cfg.functionNames() {
		fn, _ := r.evaluator.cfg.functions.Lookup(name)
		bindings[name] = func(args ...any) (any, error) { return fn(args...) }
	}
	for name, fn := range bindings {
		if err := vm.Set(name, fn); err != nil {
			return nil, evaluateError(EngineJS, r.expression, ctx.Label, err)
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, evaluateError(EngineJS, r.expression, ctx.Label, err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}

func isJSEvaluator(e Evaluator) bool {
	_, ok := e.(*jsEvaluator)
	return ok
}
