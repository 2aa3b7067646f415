package statebox

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-statebox/internal/values"
	"github.com/google/uuid"
)

const (
	modeWatch  = "watch"
	modeSelect = "select"
)

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	label       string
	byReference bool
	condition   string
}

// WithLabel attaches a human readable label, reported by Subscribers and in
// log events.
func WithLabel(label string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.label = label
	}
}

// ByReference delivers the live value instead of a deep copy. Handlers must
// not mutate it.
func ByReference() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.byReference = true
	}
}

// WithCondition gates emissions on an expression evaluated by the store's
// evaluator. The candidate value is exposed as args.value and its path as
// args.path; the state keys are bound as top-level variables.
func WithCondition(expr string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.condition = expr
	}
}

// Subscription is an observer registration created by Watch or Select.
//
// Lifecycle: armed -> (select with an initial value) primed -> armed, and
// disposed from any state. While primed, the first emission equal to the
// value delivered at subscribe time is swallowed.
type Subscription struct {
	store     *Store
	info      SubscriberInfo
	path      Path
	handler   Handler
	condition CompiledRule

	disposed atomic.Bool

	mu          sync.Mutex
	primed      bool
	primedValue any
	superseded  bool
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.info.ID
}

// Label returns the label supplied with WithLabel.
func (s *Subscription) Label() string {
	return s.info.Label
}

// Path returns the watched path.
func (s *Subscription) Path() Path {
	return s.path
}

// Disposed reports whether Dispose was called.
func (s *Subscription) Disposed() bool {
	return s.disposed.Load()
}

// Dispose stops all further emissions. It is idempotent and safe to call from
// the subscription's own handler.
func (s *Subscription) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.store.cell.unregister(s)
	s.store.registry.Delete(s.info.ID)
	s.store.cfg.recorder.ObserveSubscriptions(s.store.registry.Size())
	s.store.emitSubscriptionEvent(verbSubscriptionDisposed, s.info)
}

// Watch subscribes handler to future changes at path ("" for the whole
// state). It never emits at subscribe time.
func (s *Store) Watch(path string, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	return s.subscribe(modeWatch, path, handler, opts)
}

// Select behaves like Watch but first emits the current value at path when
// one exists.
func (s *Store) Select(path string, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	return s.subscribe(modeSelect, path, handler, opts)
}

func (s *Store) subscribe(mode, raw string, handler Handler, opts []SubscribeOption) (*Subscription, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if handler == nil {
		return nil, fmt.Errorf("statebox: %s %q: handler is required", mode, raw)
	}
	path, err := ParsePath(raw)
	if err != nil {
		return nil, err
	}
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	sub := &Subscription{
		store:   s,
		path:    path,
		handler: handler,
		info: SubscriberInfo{
			ID:          uuid.NewString(),
			Label:       cfg.label,
			Path:        path.String(),
			Mode:        mode,
			ByReference: cfg.byReference,
			CreatedAt:   time.Now(),
		},
	}
	if cfg.condition != "" {
		evaluator, err := s.resolveEvaluator()
		if err != nil {
			return nil, err
		}
		rule, err := evaluator.Compile(cfg.condition)
		if err != nil {
			return nil, annotateEvaluationError(evaluatorEngineName(evaluator), phaseCompile, cfg.condition, sub.label(), err)
		}
		sub.condition = rule
	}

	var (
		initial    any
		hasInitial bool
		snapshot   map[string]any
	)
	var prime func(map[string]any)
	if mode == modeSelect {
		prime = func(current map[string]any) {
			initial, hasInitial = path.Resolve(current)
			if !hasInitial {
				return
			}
			snapshot = current
			sub.mu.Lock()
			sub.primed = true
			sub.primedValue = initial
			sub.mu.Unlock()
		}
	}
	s.cell.register(sub, prime)
	s.registry.Store(sub.info.ID, sub.info)
	s.cfg.recorder.ObserveSubscriptions(s.registry.Size())
	s.emitSubscriptionEvent(verbSubscriptionCreated, sub.info)

	if !hasInitial {
		return sub, nil
	}
	// The condition runs outside the cell lock so rule functions may read
	// the store.
	if !sub.passes(delivery{state: snapshot}, initial) {
		sub.mu.Lock()
		sub.primed, sub.primedValue = false, nil
		sub.mu.Unlock()
		return sub, nil
	}
	sub.mu.Lock()
	superseded := sub.superseded
	sub.mu.Unlock()
	if !superseded {
		sub.emit(initial)
	}
	return sub, nil
}

// deliver runs the per-subscription diff for one broadcast.
func (s *Subscription) deliver(d delivery) {
	if s.disposed.Load() {
		return
	}
	value, ok := s.diff(d)
	if !ok {
		return
	}
	s.mu.Lock()
	primed, primedValue := s.primed, s.primedValue
	s.primed, s.primedValue = false, nil
	s.mu.Unlock()
	if primed {
		if values.Equal(value, primedValue) {
			s.store.cfg.recorder.ObserveEmission(s.info.Mode, false)
			s.store.logDelivery(s, "suppress", nil)
			return
		}
		s.mu.Lock()
		s.superseded = true
		s.mu.Unlock()
	}
	if !s.passes(d, value) {
		s.store.cfg.recorder.ObserveEmission(s.info.Mode, false)
		return
	}
	s.emit(value)
}

// diff decides whether d changes the watched value. The root path changes on
// every broadcast. A keyed path is only considered when the change record
// reaches it, and only reported when it differs from the previous history
// entry. Absent values are never reported.
func (s *Subscription) diff(d delivery) (any, bool) {
	if s.path.IsRoot() {
		return d.state, true
	}
	if _, touched := s.path.Resolve(d.change); !touched {
		return nil, false
	}
	next, present := s.path.Resolve(d.state)
	if !present {
		return nil, false
	}
	prev, existed := s.path.Resolve(d.previous)
	if existed && values.Equal(next, prev) {
		s.store.cfg.recorder.ObserveEmission(s.info.Mode, false)
		return nil, false
	}
	return next, true
}

// passes evaluates the subscription condition against the broadcast that
// produced value.
func (s *Subscription) passes(d delivery, value any) bool {
	if s.condition == nil {
		return true
	}
	result, err := s.condition.Evaluate(RuleContext{
		Snapshot: d.state,
		Previous: d.previous,
		Change:   d.change,
		Args: map[string]any{
			"value": value,
			"path":  s.path.String(),
		},
		Metadata: map[string]any{
			"subscription_id": s.info.ID,
			"label":           s.info.Label,
		},
		Label: s.label(),
	})
	if err != nil {
		s.store.logDelivery(s, "condition", err)
		return false
	}
	ok, _ := result.(bool)
	return ok
}

func (s *Subscription) emit(value any) {
	if s.disposed.Load() {
		return
	}
	if !s.info.ByReference {
		value = values.Clone(value)
	}
	defer func() {
		if r := recover(); r != nil {
			s.store.logDelivery(s, "panic", fmt.Errorf("statebox: handler panic: %v", r))
			if handler := s.store.cfg.panicHandler; handler != nil {
				handler(s.info, value, r)
			}
		}
	}()
	s.store.cfg.recorder.ObserveEmission(s.info.Mode, true)
	s.handler(value)
}

func (s *Subscription) label() string {
	if s.info.Label != "" {
		return s.info.Label
	}
	if s.info.Path != "" {
		return s.info.Path
	}
	return s.info.Mode
}
