// Package storage holds the key/value backends a store persists its
// serialized state into.
//
// Two lifetimes are modelled: Memory lives as long as the process (session
// storage), Pebble survives restarts (local storage). Both expose the same
// text-in, text-out contract so the store never depends on a backend.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage: closed")

// Storage persists text values under string keys.
type Storage interface {
	SetItem(ctx context.Context, key, value string) error
	GetItem(ctx context.Context, key string) (string, bool, error)
}

// Remover is implemented by backends that can delete a key.
type Remover interface {
	RemoveItem(ctx context.Context, key string) error
}
