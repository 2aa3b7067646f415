package statebox

import (
	"errors"
	"fmt"
	"strings"
)

// Engine names accepted by WithEngine and the evaluator config key.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

var (
	// ErrNoEvaluator is returned when no evaluator could be resolved.
	ErrNoEvaluator = errors.New("statebox: evaluator not configured")
	// ErrUnknownEngine is returned for engine names other than expr, cel and js.
	ErrUnknownEngine = errors.New("statebox: unknown evaluator engine")
)

// EvaluatorOption configures any of the bundled engines.
type EvaluatorOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EvaluatorCache keeps compiled programs in cache. Keys are prefixed with the
// engine name so engines can share one cache.
func EvaluatorCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EvaluatorFunctions exposes the functions in registry by name. The registry
// is copied; later registrations are not seen.
func EvaluatorFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

func newEngineConfig(opts []EvaluatorOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c engineConfig) cached(engine, expression string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(engine + ":" + expression)
}

func (c engineConfig) remember(engine, expression string, program any) {
	if c.cache != nil {
		c.cache.Set(engine+":"+expression, program)
	}
}

func (c engineConfig) functionNames() []string {
	if c.functions == nil {
		return nil
	}
	return c.functions.Names()
}

// WithEngine selects the default evaluator by name when WithEvaluator is not
// used. The store's program cache and functions are passed to it. An
// unknown name makes New fail with ErrUnknownEngine.
func WithEngine(name string) Option {
	return func(cfg *storeConfig) {
		engine := strings.ToLower(strings.TrimSpace(name))
		switch engine {
		case "", EngineExpr, EngineCEL, EngineJS:
			cfg.engine = engine
		default:
			if cfg.err == nil {
				cfg.err = fmt.Errorf("%w %q", ErrUnknownEngine, name)
			}
		}
	}
}

// NewEvaluator builds the named engine. The js engine is only available in
// builds tagged js_eval.
func NewEvaluator(engine string, opts ...EvaluatorOption) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEngine, engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	default:
		if isJSEvaluator(e) {
			return EngineJS
		}
		return "custom"
	}
}
