package network

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bnema/chatctl/internal/ports"
)

const (
	DefaultProbeInterval = 10 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type ProbeOptions struct {
	// Address is a host:port reachable whenever the host is online,
	// usually the chat server itself.
	Address  string
	Interval time.Duration
	Timeout  time.Duration
	Dial     DialFunc
	Logger   *slog.Logger
}

// ProbeMonitor derives connectivity from periodic TCP dials and tells
// subscribers about every change.
type ProbeMonitor struct {
	address  string
	interval time.Duration
	timeout  time.Duration
	dial     DialFunc
	logger   *slog.Logger

	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int

	stop chan struct{}
	done chan struct{}
}

var _ ports.NetworkMonitor = (*ProbeMonitor)(nil)

// NewProbeMonitor starts optimistic: the host counts as online until a
// probe says otherwise.
func NewProbeMonitor(opts ProbeOptions) *ProbeMonitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultProbeInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ProbeMonitor{
		address:  opts.Address,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		dial:     opts.Dial,
		logger:   opts.Logger,
		online:   true,
		subs:     make(map[int]func(bool)),
	}
}

func (m *ProbeMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

func (m *ProbeMonitor) Subscribe(fn func(online bool)) ports.Unsubscribe {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}
}

// Start probes once and then every interval until ctx ends or Stop is called.
func (m *ProbeMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	m.Probe(ctx)

	go func() {
		defer close(done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				m.Probe(ctx)
			}
		}
	}()
}

func (m *ProbeMonitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop = nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Probe dials the address once and records the result.
func (m *ProbeMonitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(probeCtx, "tcp", m.address)
	online := err == nil
	if conn != nil {
		_ = conn.Close()
	}
	if ctx.Err() != nil {
		return m.Online()
	}

	m.set(online, err)
	return online
}

func (m *ProbeMonitor) set(online bool, cause error) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if online {
		m.logger.Info("network online", "address", m.address)
	} else {
		m.logger.Warn("network offline", "address", m.address, "error", cause)
	}

	for _, fn := range subs {
		fn(online)
	}
}

// AlwaysOnline is the monitor used when probing is disabled.
type AlwaysOnline struct{}

var _ ports.NetworkMonitor = AlwaysOnline{}

func (AlwaysOnline) Online() bool { return true }

func (AlwaysOnline) Subscribe(func(bool)) ports.Unsubscribe { return func() {} }
