package statebox

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celMaxArity bounds the overloads declared for registry functions, which
// CEL requires to have a fixed signature.
const celMaxArity = 4

var celMapType = celgo.MapType(celgo.StringType, celgo.DynType)

// celEvaluator runs expressions with cel-go. CEL checks identifiers at
// compile time, so programs are built per set of top-level state keys.
type celEvaluator struct {
	cfg engineConfig
}

// NewCELEvaluator returns the CEL engine.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{cfg: newEngineConfig(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile parses expression to report syntax errors early. Type checking
// waits for the first evaluation, when the state keys are known.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, compileError(EngineCEL, expression, errEmptyExpression)
	}
	env, err := celgo.NewEnv()
	if err != nil {
		return nil, compileError(EngineCEL, expression, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, compileError(EngineCEL, expression, issues.Err())
	}
	return &celRule{evaluator: e, expression: expression}, nil
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	scope := newRuleScope(ctx)
	vars := scope.variables()
	program, err := r.evaluator.program(r.expression, vars)
	if err != nil {
		return nil, err
	}
	out, err := program.run(scope, vars)
	if err != nil {
		return nil, evaluateError(EngineCEL, r.expression, ctx.Label, err)
	}
	return out.Value(), nil
}

// celProgram is a checked program plus the scope its built-ins read. Runs of
// one program are serialised because the bindings are fixed at plan time.
type celProgram struct {
	mu      sync.Mutex
	scope   *ruleScope
	program celgo.Program
}

func (p *celProgram) run(scope *ruleScope, vars map[string]any) (ref.Val, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scope = scope
	defer func() { p.scope = nil }()
	out, _, err := p.program.Eval(vars)
	return out, err
}

func (e *celEvaluator) program(expression string, vars map[string]any) (*celProgram, error) {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		if celDeclarable(key) {
			keys = append(keys, key)
		} else {
			delete(vars, key)
		}
	}
	sort.Strings(keys)
	cacheKey := expression + "\x00" + strings.Join(keys, ",")
	if cached, ok := e.cfg.cached(EngineCEL, cacheKey); ok {
		if program, ok := cached.(*celProgram); ok {
			return program, nil
		}
	}

	bundle := &celProgram{}
	env, err := celgo.NewEnv(e.envOptions(bundle, keys)...)
	if err != nil {
		return nil, compileError(EngineCEL, expression, err)
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError(EngineCEL, expression, issues.Err())
	}
	bundle.program, err = env.Program(checked)
	if err != nil {
		return nil, compileError(EngineCEL, expression, err)
	}
	e.cfg.remember(EngineCEL, cacheKey, bundle)
	return bundle, nil
}

func (e *celEvaluator) envOptions(bundle *celProgram, keys []string) []celgo.EnvOption {
	opts := make([]celgo.EnvOption, 0, len(keys)+3+len(e.cfg.functionNames()))
	for _, key := range keys {
		switch key {
		case bindNow:
			opts = append(opts, celgo.Variable(key, celgo.TimestampType))
		case bindArgs, bindMetadata, bindState, bindPrevious, bindChange:
			opts = append(opts, celgo.Variable(key, celMapType))
		default:
			opts = append(opts, celgo.Variable(key, celgo.DynType))
		}
	}
	opts = append(opts,
		celgo.Function(builtinChanged, celgo.Overload("statebox_changed_string",
			[]*celgo.Type{celgo.StringType}, celgo.BoolType,
			celgo.UnaryBinding(func(path ref.Val) ref.Val {
				return celResult(bundle.scope.changed(fmt.Sprint(path.Value())))
			}))),
		celgo.Function(builtinAt, celgo.Overload("statebox_at_string",
			[]*celgo.Type{celgo.StringType}, celgo.DynType,
			celgo.UnaryBinding(func(path ref.Val) ref.Val {
				return celResult(bundle.scope.at(fmt.Sprint(path.Value())))
			}))),
		celgo.Function(builtinBefore, celgo.Overload("statebox_before_string",
			[]*celgo.Type{celgo.StringType}, celgo.DynType,
			celgo.UnaryBinding(func(path ref.Val) ref.Val {
				return celResult(bundle.scope.before(fmt.Sprint(path.Value())))
			}))),
	)
	for _, name := range e.cfg.functionNames() {
		fn, _ := e.cfg.functions.Lookup(name)
		opts = append(opts, celgo.Function(name, celOverloads(name, fn)...))
	}
	return opts
}

// celOverloads declares fn for every arity up to celMaxArity with dynamic
// arguments and result.
func celOverloads(name string, fn Function) []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(func(args ...ref.Val) ref.Val {
		native := make([]any, len(args))
		for i, arg := range args {
			native[i] = arg.Value()
		}
		return celResult(fn(native...))
	})
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
	for arity := 0; arity <= celMaxArity; arity++ {
		params := make([]*celgo.Type, arity)
		for i := range params {
			params[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("statebox_%s_%d", name, arity), params, celgo.DynType, binding))
	}
	return overloads
}

func celResult(value any, err error) ref.Val {
	if err != nil {
		return types.WrapErr(err)
	}
	if value == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(value)
}

// celDeclarable filters state keys CEL can't name as variables. Those stay
// reachable through state.
func celDeclarable(key string) bool {
	if !functionName.MatchString(key) {
		return false
	}
	switch key {
	case "true", "false", "null", "in", "as", "break", "const", "continue", "else",
		"for", "function", "if", "import", "let", "loop", "package", "namespace",
		"return", "var", "void", "while":
		return false
	}
	return true
}
