package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Pebble is a disk-backed Storage that survives process restarts.
type Pebble struct {
	mu         sync.RWMutex
	db         *pebble.DB
	syncWrites bool
	closed     bool
}

// PebbleOption configures OpenPebble.
type PebbleOption func(*pebbleConfig)

type pebbleConfig struct {
	sync    bool
	options *pebble.Options
}

// WithSyncWrites fsyncs every SetItem before returning.
func WithSyncWrites() PebbleOption {
	return func(cfg *pebbleConfig) {
		cfg.sync = true
	}
}

// WithPebbleOptions overrides the options passed to pebble.Open.
func WithPebbleOptions(options *pebble.Options) PebbleOption {
	return func(cfg *pebbleConfig) {
		cfg.options = options
	}
}

// OpenPebble opens or creates a database in dir.
func OpenPebble(dir string, opts ...PebbleOption) (*Pebble, error) {
	cfg := pebbleConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.options == nil {
		cfg.options = &pebble.Options{}
	}
	db, err := pebble.Open(dir, cfg.options)
	if err != nil {
		return nil, fmt.Errorf("storage: open pebble %q: %w", dir, err)
	}
	return &Pebble{db: db, syncWrites: cfg.sync}, nil
}

func (p *Pebble) SetItem(ctx context.Context, key, value string) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	options := pebble.NoSync
	if p.syncWrites {
		options = pebble.Sync
	}
	if err := p.db.Set([]byte(key), []byte(value), options); err != nil {
		return fmt.Errorf("storage: set %q: %w", key, err)
	}
	return nil
}

func (p *Pebble) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := contextErr(ctx); err != nil {
		return "", false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", false, ErrClosed
	}
	val, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: get %q: %w", key, err)
	}
	value := string(val)
	if closer != nil {
		_ = closer.Close()
	}
	return value, true, nil
}

func (p *Pebble) RemoveItem(ctx context.Context, key string) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if err := p.db.Delete([]byte(key), pebble.NoSync); err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database.
func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
