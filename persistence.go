package statebox

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-statebox/pkg/storage"
)

const (
	targetLocal   = "local"
	targetSession = "session"
)

// persistLocked writes state to every enabled storage. Callers hold s.mu so
// slot writes land in mutation order.
func (s *Store) persistLocked(state map[string]any) error {
	targets := s.persistTargets()
	if len(targets) == 0 {
		return nil
	}
	data, err := s.cfg.codec.Encode(state)
	if err != nil {
		return &PersistError{Target: "codec", Err: err}
	}
	text := string(data)
	var errs []error
	for _, target := range targets {
		if err := target.store.SetItem(context.Background(), s.cfg.slot, text); err != nil {
			errs = append(errs, &PersistError{Target: target.name, Err: err})
		}
	}
	return errors.Join(errs...)
}

type persistTarget struct {
	name  string
	store storage.Storage
}

func (s *Store) persistTargets() []persistTarget {
	var targets []persistTarget
	if s.cfg.persistLocal && s.cfg.local != nil {
		targets = append(targets, persistTarget{name: targetLocal, store: s.cfg.local})
	}
	if s.cfg.persistSession && s.cfg.session != nil {
		targets = append(targets, persistTarget{name: targetSession, store: s.cfg.session})
	}
	return targets
}

// GetStoreFromLocalStorage reads and decodes the state last written to the
// long-lived storage.
func (s *Store) GetStoreFromLocalStorage(ctx context.Context) (map[string]any, error) {
	return s.readSlot(ctx, targetLocal, s.cfg.local)
}

// GetStoreFromSessionStorage reads and decodes the state last written to the
// session storage.
func (s *Store) GetStoreFromSessionStorage(ctx context.Context) (map[string]any, error) {
	return s.readSlot(ctx, targetSession, s.cfg.session)
}

func (s *Store) readSlot(ctx context.Context, name string, store storage.Storage) (map[string]any, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: %s", ErrStorageNotConfigured, name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	text, ok, err := store.GetItem(ctx, s.cfg.slot)
	if err != nil {
		return nil, fmt.Errorf("statebox: read %s storage: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s slot %q", ErrSlotEmpty, name, s.cfg.slot)
	}
	state, err := s.cfg.codec.Decode([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("statebox: decode %s slot %q: %w", name, s.cfg.slot, err)
	}
	return state, nil
}
