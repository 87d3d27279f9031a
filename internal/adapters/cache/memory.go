package cache

import (
	"context"
	"sync"

	"github.com/bnema/chatctl/internal/ports"
)

// Memory is an in-process cache for data that belongs to the active account.
// The controller resets it on every account switch.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]V
	gen     uint64
	hits    int
	misses  int
}

var _ ports.AccountScopedCache = (*Memory[string])(nil)

type Stats struct {
	Entries int
	Hits    int
	Misses  int
}

func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{entries: make(map[string]V)}
}

func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.entries[key]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return value, ok
}

func (m *Memory[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value
}

// Load returns the cached value or stores the result of load. A value
// loaded across a Reset is returned but not cached, since it may belong to
// the previous account.
func (m *Memory[V]) Load(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if value, ok := m.Get(key); ok {
		return value, nil
	}

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	value, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	m.mu.Lock()
	if m.gen == gen {
		m.entries[key] = value
	}
	m.mu.Unlock()

	return value, nil
}

func (m *Memory[V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	m.gen++
}

func (m *Memory[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{Entries: len(m.entries), Hits: m.hits, Misses: m.misses}
}
