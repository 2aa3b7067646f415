package statebox

import (
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprPrototype types the bindings at compile time. The values are replaced
// per run by the ruleScope being evaluated.
var exprPrototype = map[string]any{
	bindNow:        time.Time{},
	bindArgs:       map[string]any{},
	bindMetadata:   map[string]any{},
	bindState:      map[string]any{},
	bindPrevious:   map[string]any{},
	bindChange:     map[string]any{},
	builtinChanged: func(string) (bool, error) { return false, nil },
	builtinAt:      func(string) (any, error) { return nil, nil },
	builtinBefore:  func(string) (any, error) { return nil, nil },
}

// exprEvaluator runs expressions with github.com/expr-lang/expr. It is the
// default engine.
type exprEvaluator struct {
	cfg engineConfig
}

// NewExprEvaluator returns the expr engine.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	return &exprEvaluator{cfg: newEngineConfig(opts)}
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, compileError(EngineExpr, expression, errEmptyExpression)
	}
	if cached, ok := e.cfg.cached(EngineExpr, expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return &exprRule{program: program, expression: expression}, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(exprPrototype),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.cfg.functionNames() {
		fn, _ := e.cfg.functions.Lookup(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, compileError(EngineExpr, expression, err)
	}
	e.cfg.remember(EngineExpr, expression, program)
	return &exprRule{program: program, expression: expression}, nil
}

type exprRule struct {
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	scope := newRuleScope(ctx)
	env := scope.variables()
	env[builtinChanged] = scope.changed
	env[builtinAt] = scope.at
	env[builtinBefore] = scope.before
	result, err := exprlang.Run(r.program, env)
	if err != nil {
		return nil, evaluateError(EngineExpr, r.expression, ctx.Label, err)
	}
	return result, nil
}
