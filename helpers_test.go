package statebox

import (
	"sync"
	"testing"
)

// recorder collects handler values.
type recorder struct {
	mu     sync.Mutex
	values []any
}

func (r *recorder) handle(value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
}

func (r *recorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.values...)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := New(opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustAssign(t *testing.T, store *Store, partial map[string]any) {
	t.Helper()
	if err := store.AssignState(partial); err != nil {
		t.Fatalf("assign %v: %v", partial, err)
	}
}

func mustWatch(t *testing.T, store *Store, path string, handler Handler, opts ...SubscribeOption) *Subscription {
	t.Helper()
	sub, err := store.Watch(path, handler, opts...)
	if err != nil {
		t.Fatalf("watch %q: %v", path, err)
	}
	return sub
}

func mustSelect(t *testing.T, store *Store, path string, handler Handler, opts ...SubscribeOption) *Subscription {
	t.Helper()
	sub, err := store.Select(path, handler, opts...)
	if err != nil {
		t.Fatalf("select %q: %v", path, err)
	}
	return sub
}
