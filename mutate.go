package statebox

import (
	"context"
	"time"

	"github.com/goliatone/go-statebox/internal/values"
)

// AssignState shallow merges partial into the current state. Top-level keys
// of partial replace the existing values wholesale. It returns once every
// subscriber has seen the new state; called from a handler, it returns at
// once and the broadcast follows the current cycle.
//
// In debug mode partial is scanned for callables first and the call fails
// with ErrValueNotSerializable, leaving state and history untouched. Storage
// failures are reported as *PersistError after the state was updated.
func (s *Store) AssignState(partial map[string]any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	s.mu.Lock()
	if s.debug {
		if err := wrapValidationError(values.Validate(partial)); err != nil {
			s.mu.Unlock()
			s.cfg.recorder.ObserveMutation(kindAssign, err)
			s.logMutation(kindAssign, partial, time.Since(start), err)
			return err
		}
	}
	current := s.cell.get(true)
	previous := values.CloneMap(current)
	s.history.push(previous)
	s.change = partial
	merged := values.ShallowMerge(current, partial)
	done := s.cell.set(merged, delivery{change: partial, previous: previous})
	persistErr := s.persistLocked(merged)
	s.mu.Unlock()

	s.cfg.recorder.ObserveBroadcast(done == nil)
	if done != nil {
		s.cell.drain(done)
	}

	s.cfg.recorder.ObserveMutation(kindAssign, persistErr)
	s.logMutation(kindAssign, partial, time.Since(start), persistErr)
	s.emitStoreEvent(verbStateAssigned, partial)
	return persistErr
}

// AssignStateAsync applies partial on a later turn of the store's task loop.
// Calls are applied in the order they were made. The returned channel
// receives the result of the assignment and is then closed; a ctx cancelled
// before the assignment runs yields ctx.Err() instead.
func (s *Store) AssignStateAsync(ctx context.Context, partial map[string]any) <-chan error {
	if ctx == nil {
		ctx = context.Background()
	}
	result := make(chan error, 1)
	err := s.loop.schedule(func() {
		defer close(result)
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- s.AssignState(partial)
	})
	if err != nil {
		result <- err
		close(result)
	}
	return result
}

// ClearState replaces the state with an empty mapping. The change is
// broadcast only when the state was not already empty.
func (s *Store) ClearState() error {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	s.mu.Lock()
	current := s.cell.get(true)
	previous := values.CloneMap(current)
	s.history.push(previous)
	change := values.Keys(current)
	s.change = change
	empty := map[string]any{}
	done := s.cell.set(empty, delivery{change: change, previous: previous})
	persistErr := s.persistLocked(empty)
	s.mu.Unlock()

	s.cfg.recorder.ObserveBroadcast(done == nil)
	if done != nil {
		s.cell.drain(done)
	}

	s.cfg.recorder.ObserveMutation(kindClear, persistErr)
	s.logMutation(kindClear, change, time.Since(start), persistErr)
	s.emitStoreEvent(verbStateCleared, change)
	return persistErr
}

// LastChange returns the partial applied by the most recent mutation.
func (s *Store) LastChange() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return nil
	}
	return values.CloneMap(s.change)
}
