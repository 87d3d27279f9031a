package mocks

import (
	"sync"

	"github.com/bnema/chatctl/internal/ports"
)

type FakeNetwork struct {
	mu          sync.Mutex
	online      bool
	next        int
	subscribers map[int]func(bool)
}

func NewFakeNetwork(online bool) *FakeNetwork {
	return &FakeNetwork{online: online, subscribers: map[int]func(bool){}}
}

func (n *FakeNetwork) Online() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

func (n *FakeNetwork) Subscribe(fn func(bool)) ports.Unsubscribe {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := n.next
	n.next++
	n.subscribers[key] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subscribers, key)
	}
}

func (n *FakeNetwork) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}

// Set changes connectivity and notifies subscribers synchronously.
func (n *FakeNetwork) Set(online bool) {
	n.mu.Lock()
	n.online = online
	subscribers := make([]func(bool), 0, len(n.subscribers))
	for _, fn := range n.subscribers {
		subscribers = append(subscribers, fn)
	}
	n.mu.Unlock()

	for _, fn := range subscribers {
		fn(online)
	}
}

// SetQuietly changes connectivity without notifying anyone.
func (n *FakeNetwork) SetQuietly(online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.online = online
}
