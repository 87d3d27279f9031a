package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetReset(t *testing.T) {
	m := NewMemory[string]()

	_, ok := m.Get("whoami")
	assert.False(t, ok)

	m.Set("whoami", "alice")
	value, ok := m.Get("whoami")
	require.True(t, ok)
	assert.Equal(t, "alice", value)

	m.Reset()
	_, ok = m.Get("whoami")
	assert.False(t, ok)
	assert.Equal(t, Stats{Entries: 0, Hits: 1, Misses: 2}, m.Stats())
}

func TestMemoryLoadCachesResult(t *testing.T) {
	m := NewMemory[int]()
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for range 3 {
		value, err := m.Load(context.Background(), "answer", load)
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	}
	assert.Equal(t, 1, calls)
}

func TestMemoryLoadDoesNotCacheErrors(t *testing.T) {
	m := NewMemory[int]()
	loadErr := errors.New("offline")

	_, err := m.Load(context.Background(), "answer", func(context.Context) (int, error) { return 0, loadErr })
	require.ErrorIs(t, err, loadErr)
	assert.Zero(t, m.Stats().Entries)
}

func TestMemoryLoadAcrossResetIsNotCached(t *testing.T) {
	m := NewMemory[string]()

	value, err := m.Load(context.Background(), "whoami", func(context.Context) (string, error) {
		m.Reset()
		return "alice", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", value)

	_, ok := m.Get("whoami")
	assert.False(t, ok)
}
