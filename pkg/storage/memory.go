package storage

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is a process-lifetime Storage.
type Memory struct {
	items  *xsync.MapOf[string, string]
	closed atomic.Bool
}

// NewMemory constructs an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{items: xsync.NewMapOf[string, string]()}
}

func (m *Memory) SetItem(ctx context.Context, key, value string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.items.Store(key, value)
	return nil
}

func (m *Memory) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := m.check(ctx); err != nil {
		return "", false, err
	}
	value, ok := m.items.Load(key)
	return value, ok, nil
}

func (m *Memory) RemoveItem(ctx context.Context, key string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.items.Delete(key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	return m.items.Size()
}

// Close drops every item. Later calls fail with ErrClosed.
func (m *Memory) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.items.Clear()
	}
	return nil
}

func (m *Memory) check(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}
