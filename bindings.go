package statebox

import (
	"time"

	"github.com/goliatone/go-statebox/internal/values"
)

// Variables and built-in functions every engine binds. State keys with these
// names are reachable through state only.
const (
	bindNow      = "now"
	bindArgs     = "args"
	bindMetadata = "metadata"
	bindState    = "state"
	bindPrevious = "previous"
	bindChange   = "change"

	builtinChanged = "changed"
	builtinAt      = "at"
	builtinBefore  = "before"
)

func reservedBinding(name string) bool {
	switch name {
	case bindNow, bindArgs, bindMetadata, bindState, bindPrevious, bindChange,
		builtinChanged, builtinAt, builtinBefore:
		return true
	}
	return false
}

// ruleScope is the store view an expression runs against: the state being
// evaluated, the history entry before it and the partial that produced it.
type ruleScope struct {
	now      time.Time
	state    map[string]any
	previous map[string]any
	change   map[string]any
	args     map[string]any
	metadata map[string]any
}

func newRuleScope(ctx RuleContext) *ruleScope {
	ctx = ctx.withDefaultNow().withDefaultMaps()
	return &ruleScope{
		now:      *ctx.Now,
		state:    snapshotAsMap(ctx.Snapshot),
		previous: ctx.Previous,
		change:   ctx.Change,
		args:     ctx.Args,
		metadata: ctx.Metadata,
	}
}

// variables returns the named bindings followed by the non-reserved state
// keys. previous and change are empty mappings when unknown.
func (r *ruleScope) variables() map[string]any {
	previous, change := r.previous, r.change
	if previous == nil {
		previous = map[string]any{}
	}
	if change == nil {
		change = map[string]any{}
	}
	vars := make(map[string]any, len(r.state)+6)
	for key, value := range r.state {
		if !reservedBinding(key) {
			vars[key] = value
		}
	}
	vars[bindNow] = r.now
	vars[bindArgs] = r.args
	vars[bindMetadata] = r.metadata
	vars[bindState] = r.state
	vars[bindPrevious] = previous
	vars[bindChange] = change
	return vars
}

// at resolves path in the evaluated state, nil when absent.
func (r *ruleScope) at(raw string) (any, error) {
	path, err := ParsePath(raw)
	if err != nil {
		return nil, err
	}
	value, _ := path.Resolve(r.state)
	return value, nil
}

// before resolves path in the state preceding the evaluated one.
func (r *ruleScope) before(raw string) (any, error) {
	path, err := ParsePath(raw)
	if err != nil {
		return nil, err
	}
	value, _ := path.Resolve(r.previous)
	return value, nil
}

// changed reports whether the value at path differs from the previous state.
// A known change record that does not reach path short-circuits to false.
func (r *ruleScope) changed(raw string) (bool, error) {
	path, err := ParsePath(raw)
	if err != nil {
		return false, err
	}
	if r.change != nil && !path.IsRoot() {
		if _, touched := path.Resolve(r.change); !touched {
			return false, nil
		}
	}
	next, present := path.Resolve(r.state)
	prev, existed := path.Resolve(r.previous)
	if present != existed {
		return true, nil
	}
	return present && !values.Equal(next, prev), nil
}

func snapshotAsMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}
