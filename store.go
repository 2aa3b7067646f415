package statebox

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-statebox/internal/values"
	"github.com/goliatone/go-statebox/pkg/activity"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

var exclusiveLive atomic.Bool

// Store is an in-memory keyed state container. Writes are shallow merged into
// the current state and broadcast to Watch and Select subscriptions.
type Store struct {
	id  string
	cfg storeConfig

	// mu serialises mutations: history push, change record and cell swap
	// happen as one step. It is never held while handlers run.
	mu      sync.Mutex
	debug   bool
	history *history
	change  map[string]any

	cell     *cell
	registry *xsync.MapOf[string, SubscriberInfo]
	loop     *taskLoop
	emitter  *activity.Emitter
	closed   atomic.Bool

	evalMu sync.Mutex
}

// New constructs a Store. With WithExclusive it fails with
// ErrAlreadyInitialized while another exclusive store is open.
func New(opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	if cfg.err != nil {
		return nil, cfg.err
	}
	if cfg.exclusive && !exclusiveLive.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}
	s := &Store{
		id:       uuid.NewString(),
		cfg:      cfg,
		debug:    cfg.debug,
		history:  newHistory(cfg.history),
		cell:     newCell(),
		registry: xsync.NewMapOf[string, SubscriberInfo](),
		loop:     newTaskLoop(),
		emitter:  activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
	}
	return s, nil
}

// ID returns the store identifier used in activity events and logs.
func (s *Store) ID() string {
	return s.id
}

// Close stops the async loop after running already queued assignments,
// disposes every subscription and releases the exclusive slot.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.loop.close()
	s.cell.reset()
	s.registry.Clear()
	if s.cfg.exclusive {
		exclusiveLive.Store(false)
	}
	return nil
}

// GetState returns the current state. By reference returns the live map,
// which callers must not mutate; otherwise a deep copy is returned.
func (s *Store) GetState(byReference bool) map[string]any {
	return s.cell.get(byReference)
}

// Get resolves a dotted path against the current state and returns a deep
// copy of the value found there.
func (s *Store) Get(path string) (any, bool, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, false, err
	}
	value, ok := parsed.Resolve(s.cell.get(true))
	if !ok {
		return nil, false, nil
	}
	return values.Clone(value), true, nil
}

// GetHistory returns the recorded pre-mutation snapshots, oldest first. The
// slice is returned by reference and must not be mutated.
func (s *Store) GetHistory() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.list()
}

// ClearHistory drops every recorded snapshot.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	s.history.clear()
	s.mu.Unlock()
	s.emitStoreEvent(verbHistoryCleared, nil)
}

// SetDebug toggles debug mode at runtime: partial updates are scanned for
// callables and the history keeps every snapshot.
func (s *Store) SetDebug(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = enabled
	s.history.retain = enabled || s.cfg.history
}

// SetPersistence toggles writes to the local and session storages.
func (s *Store) SetPersistence(local, session bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.persistLocal = local
	s.cfg.persistSession = session
}

// Subscribers lists live subscriptions ordered by creation time.
func (s *Store) Subscribers() []SubscriberInfo {
	out := make([]SubscriberInfo, 0, s.registry.Size())
	s.registry.Range(func(_ string, info SubscriberInfo) bool {
		out = append(out, info)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Flush waits until every AssignStateAsync call queued so far has been
// applied.
func (s *Store) Flush(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.loop.wait(ctx)
}
