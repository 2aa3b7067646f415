package statebox

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

var evaluatorFactories = []struct {
	name string
	new  func(opts ...EvaluatorOption) Evaluator
}{
	{name: EngineExpr, new: NewExprEvaluator},
	{name: EngineCEL, new: NewCELEvaluator},
	{name: EngineJS, new: NewJSEvaluator},
}

func skipUnavailable(t *testing.T, name string) {
	t.Helper()
	if name == "js" && !jsEvaluatorAvailable() {
		t.Skip("js evaluator requires the js_eval build tag")
	}
}

type fakeProgramCache struct {
	mu     sync.Mutex
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.store[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *fakeProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = value
}

type capturingEvaluator struct {
	mu       sync.Mutex
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(expr string) (CompiledRule, error) {
	return capturingRule{evaluator: c, expr: expr}, nil
}

type capturingRule struct {
	evaluator *capturingEvaluator
	expr      string
}

func (r capturingRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expr)
}

func TestEvaluateAgainstCurrentState(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			store := newTestStore(t, WithEvaluator(factory.new()))
			mustAssign(t, store, map[string]any{"count": 3, "user": map[string]any{"name": "ana"}})

			resp, err := store.Evaluate(`count > 1 && user.name == "ana"`)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if value, ok := resp.Value.(bool); !ok || !value {
				t.Fatalf("expected true, got %#v", resp.Value)
			}
		})
	}
}

func TestEvaluateWithSnapshotOverride(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			store := newTestStore(t, WithEvaluator(factory.new()))
			mustAssign(t, store, map[string]any{
				"Features": map[string]any{"NewUI": map[string]any{"Enabled": false}},
			})

			ctx := RuleContext{
				Snapshot: map[string]any{
					"Features": map[string]any{"NewUI": map[string]any{"Enabled": true}},
				},
			}
			resp, err := store.EvaluateWith(ctx, "Features.NewUI.Enabled")
			if err != nil {
				t.Fatalf("evaluate with: %v", err)
			}
			if value, ok := resp.Value.(bool); !ok || !value {
				t.Fatalf("expected snapshot override to win, got %#v", resp.Value)
			}
		})
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			cache := &fakeProgramCache{}
			store := newTestStore(t, WithEvaluator(factory.new(EvaluatorCache(cache))))
			mustAssign(t, store, map[string]any{"count": 2})

			for i := 0; i < 3; i++ {
				if _, err := store.Evaluate("count > 1"); err != nil {
					t.Fatalf("iteration %d: %v", i, err)
				}
			}
			if cache.misses != 1 || cache.hits != 2 {
				t.Fatalf("expected 1 miss and 2 hits, got %d misses and %d hits", cache.misses, cache.hits)
			}
		})
	}
}

func TestDefaultEvaluatorUsesStoreCacheAndFunctions(t *testing.T) {
	cache := &fakeProgramCache{}
	store := newTestStore(t,
		WithProgramCache(cache),
		WithCustomFunction("double", func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("double expects 1 arg")
			}
			n, ok := args[0].(int)
			if !ok {
				return nil, fmt.Errorf("double expects an int, got %T", args[0])
			}
			return n * 2, nil
		}),
	)
	mustAssign(t, store, map[string]any{"count": 4})

	for _, expr := range []string{"double(count)", "double(count)"} {
		resp, err := store.Evaluate(expr)
		if err != nil {
			t.Fatalf("evaluate %q: %v", expr, err)
		}
		if resp.Value != 8 {
			t.Fatalf("expected 8 from %q, got %#v", expr, resp.Value)
		}
	}
	if cache.hits == 0 {
		t.Fatalf("expected the default evaluator to reuse cached programs")
	}
}

func TestCustomFunctionsInJavaScript(t *testing.T) {
	if !jsEvaluatorAvailable() {
		t.Skip("js evaluator requires the js_eval build tag")
	}
	registry := NewFunctionRegistry()
	if err := registry.Register("greet", func(args ...any) (any, error) {
		return fmt.Sprintf("hi %v", args[0]), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	store := newTestStore(t, WithEvaluator(NewJSEvaluator(EvaluatorFunctions(registry))))
	mustAssign(t, store, map[string]any{"name": "ana"})

	resp, err := store.Evaluate("greet(name)")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if resp.Value != "hi ana" {
		t.Fatalf("unexpected value %#v", resp.Value)
	}
}

func TestEvaluateDefaultsRuleContext(t *testing.T) {
	capture := &capturingEvaluator{}
	store := newTestStore(t, WithEvaluator(capture))
	mustAssign(t, store, map[string]any{"flag": true})

	if _, err := store.Evaluate("flag"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected one context, got %d", len(capture.contexts))
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || ctx.Now.IsZero() {
		t.Fatalf("expected Evaluate to default RuleContext.Now")
	}
	if ctx.Args == nil || ctx.Metadata == nil {
		t.Fatalf("expected Evaluate to default args and metadata")
	}
	snapshot, ok := ctx.Snapshot.(map[string]any)
	if !ok || snapshot["flag"] != true {
		t.Fatalf("expected current state as snapshot, got %#v", ctx.Snapshot)
	}
	if ctx.Previous == nil || len(ctx.Previous) != 0 {
		t.Fatalf("expected the empty pre-assign state as previous, got %#v", ctx.Previous)
	}
	if ctx.Change["flag"] != true {
		t.Fatalf("expected last change record, got %#v", ctx.Change)
	}
	if got := evaluatorEngineName(capture); got != "custom" {
		t.Fatalf("expected custom engine name, got %q", got)
	}
}

func TestEvaluateErrors(t *testing.T) {
	var events []EvaluatorLogEvent
	store := newTestStore(t, WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})))

	if _, err := store.Evaluate(""); err == nil {
		t.Fatalf("expected empty expression to fail")
	}

	_, err := store.EvaluateWith(RuleContext{Label: "quota"}, "count >")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != "expr" || evalErr.Label != "quota" || evalErr.Expr != "count >" {
		t.Fatalf("unexpected error metadata %+v", evalErr)
	}
	if len(events) != 1 || events[0].Err == nil || events[0].Engine != "expr" {
		t.Fatalf("expected one logged failure, got %+v", events)
	}
}

func TestConditionsAcrossEvaluators(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			store := newTestStore(t, WithEvaluator(factory.new()))
			rec := &recorder{}
			mustWatch(t, store, "level", rec.handle, WithCondition("args.value >= threshold"))

			mustAssign(t, store, map[string]any{"threshold": 5})
			for _, n := range []int{1, 5, 9} {
				mustAssign(t, store, map[string]any{"level": n})
			}
			got := rec.snapshot()
			if len(got) != 2 || got[0] != 5 || got[1] != 9 {
				t.Fatalf("expected values at or above the threshold, got %v", got)
			}
		})
	}
}

func TestBuiltinsAcrossEvaluators(t *testing.T) {
	const expr = `changed("count") && !changed("user.name") && at("count") == 2 && ` +
		`before("count") == 1 && previous.count == 1 && change.count == 2 && at("user.missing") == null`
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			source := expr
			if factory.name == EngineExpr {
				source = strings.ReplaceAll(source, "null", "nil")
			}
			store := newTestStore(t, WithEvaluator(factory.new()))
			mustAssign(t, store, map[string]any{"count": 1, "user": map[string]any{"name": "ana"}})
			mustAssign(t, store, map[string]any{"count": 2})

			resp, err := store.Evaluate(source)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if resp.Value != true {
				t.Fatalf("expected true, got %#v", resp.Value)
			}
		})
	}
}

func TestBuiltinsRejectMalformedPaths(t *testing.T) {
	store := newTestStore(t)
	mustAssign(t, store, map[string]any{"count": 1})

	_, err := store.Evaluate(`at("count..x")`)
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestConditionSeesChangeRecord(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			store := newTestStore(t, WithEvaluator(factory.new()))
			rec := &recorder{}
			mustWatch(t, store, "", rec.handle, WithCondition(`changed("level")`))

			mustAssign(t, store, map[string]any{"level": 1})
			mustAssign(t, store, map[string]any{"other": true})
			mustAssign(t, store, map[string]any{"level": 1, "other": false})
			mustAssign(t, store, map[string]any{"level": 2})

			got := rec.snapshot()
			if len(got) != 2 {
				t.Fatalf("expected two level changes, got %v", got)
			}
			if level := got[1].(map[string]any)["level"]; level != 2 {
				t.Fatalf("expected level 2 last, got %v", level)
			}
		})
	}
}

func TestCustomFunctionsAcrossEvaluators(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("tag", func(args ...any) (any, error) {
		var b strings.Builder
		for _, arg := range args {
			fmt.Fprint(&b, arg)
		}
		return b.String(), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			store := newTestStore(t, WithEvaluator(factory.new(EvaluatorFunctions(registry))))
			mustAssign(t, store, map[string]any{"count": 3})

			resp, err := store.Evaluate(`tag("n", count) == "n3"`)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if resp.Value != true {
				t.Fatalf("expected true, got %#v", resp.Value)
			}
		})
	}
}

func TestFunctionRegistryValidation(t *testing.T) {
	registry := NewFunctionRegistry()
	noop := func(...any) (any, error) { return nil, nil }

	for _, name := range []string{"changed", "at", "state", "previous", "bad-name", "1st", ""} {
		if err := registry.Register(name, noop); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
	if err := registry.Register("noop", nil); err == nil {
		t.Fatalf("expected nil function to be rejected")
	}
	if err := registry.Register("Double", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("Double", noop); err == nil {
		t.Fatalf("expected duplicate to be rejected")
	}
	if _, ok := registry.Lookup("double"); ok {
		t.Fatalf("expected names to be case sensitive")
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got %v", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "Double" {
		t.Fatalf("unexpected names %v", names)
	}

	if _, err := New(WithCustomFunction("before", noop)); err == nil {
		t.Fatalf("expected New to reject a reserved function name")
	}
}

func TestDefaultProgramCache(t *testing.T) {
	cache := NewProgramCache()
	store := newTestStore(t, WithProgramCache(cache), WithEngine(EngineCEL))
	mustAssign(t, store, map[string]any{"count": 2})

	for i := 0; i < 3; i++ {
		if _, err := store.Evaluate("count > 1"); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
	mustAssign(t, store, map[string]any{"extra": true})
	if _, err := store.Evaluate("count > 1"); err != nil {
		t.Fatalf("evaluate after new key: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected a program per key set, got %d", cache.Len())
	}
	cache.Reset()
	if cache.Len() != 0 {
		t.Fatalf("expected reset cache to be empty")
	}
}
