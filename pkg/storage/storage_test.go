package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.GetItem(ctx, "__rxbox")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "__rxbox", `{"a":1}`))
	value, ok, err := s.GetItem(ctx, "__rxbox")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, value)

	require.NoError(t, s.SetItem(ctx, "__rxbox", `{"a":2}`))
	value, _, err = s.GetItem(ctx, "__rxbox")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, value)

	if remover, ok := s.(Remover); ok {
		require.NoError(t, remover.RemoveItem(ctx, "__rxbox"))
		_, ok, err = s.GetItem(ctx, "__rxbox")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.SetItem(cancelled, "k", "v"), context.Canceled)
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemory()
	exerciseStorage(t, m)

	require.NoError(t, m.SetItem(context.Background(), "k", "v"))
	assert.Equal(t, 1, m.Len())
	require.NoError(t, m.Close())
	_, _, err := m.GetItem(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPebbleStorage(t *testing.T) {
	p, err := OpenPebble(t.TempDir())
	require.NoError(t, err)
	defer p.Close()
	exerciseStorage(t, p)
}

func TestPebbleSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p, err := OpenPebble(dir, WithSyncWrites())
	require.NoError(t, err)
	require.NoError(t, p.SetItem(ctx, "slot", "persisted"))
	require.NoError(t, p.Close())

	_, _, err = p.GetItem(ctx, "slot")
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenPebble(dir)
	require.NoError(t, err)
	defer reopened.Close()
	value, ok, err := reopened.GetItem(ctx, "slot")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", value)
}
