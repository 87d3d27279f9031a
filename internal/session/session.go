package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

const DefaultReconnectDelay = 1500 * time.Millisecond

const clientLogoutTimeout = 5 * time.Second

var ErrDestroyed = errors.New("session destroyed")

type Options struct {
	AccountID      domain.AccountID
	Factory        ports.ClientFactory
	ClientOptions  ports.ClientOptions
	Network        ports.NetworkMonitor
	Clock          ports.Clock
	ReconnectDelay time.Duration
	Logger         *slog.Logger
	// OnFailure receives errors the session cannot return to a caller, such
	// as a credential rejected while reconnecting.
	OnFailure func(err error)
}

// Session drives the connection lifecycle of one account and owns at most one
// realtime client.
type Session struct {
	id        domain.AccountID
	factory   ports.ClientFactory
	clientOpt ports.ClientOptions
	network   ports.NetworkMonitor
	clock     ports.Clock
	delay     time.Duration
	logger    *slog.Logger
	onFailure func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	client     ports.RealtimeClient
	clientSubs []ports.Unsubscribe
	retryTimer ports.Timer
	networkSub ports.Unsubscribe
	destroyed  bool
}

func New(opts Options) (*Session, error) {
	if opts.Factory == nil {
		return nil, errors.New("client factory is nil")
	}
	if opts.Network == nil {
		return nil, errors.New("network monitor is nil")
	}
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts.ClientOptions.AutoReconnect = false

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        opts.AccountID,
		factory:   opts.Factory,
		clientOpt: opts.ClientOptions,
		network:   opts.Network,
		clock:     opts.Clock,
		delay:     opts.ReconnectDelay,
		logger:    opts.Logger.With("account_id", string(opts.AccountID)),
		onFailure: opts.OnFailure,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateReady,
	}
	if !opts.Network.Online() {
		s.state = StateOffline
	}

	s.networkSub = opts.Network.Subscribe(s.handleNetwork)

	return s, nil
}

func (s *Session) AccountID() domain.AccountID {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Client returns the owned client, or nil.
func (s *Session) Client() ports.RealtimeClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client
}

// Ready reports whether the owned client has resolved the current user.
// Online alone does not imply this.
func (s *Session) Ready() bool {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	return client != nil && client.UserID() != ""
}

func (s *Session) UserID() string {
	if client := s.Client(); client != nil {
		return client.UserID()
	}
	return ""
}

// Emit applies ev. A Login blocks until the client has resumed the session or
// failed; every other event is applied immediately.
func (s *Session) Emit(ctx context.Context, ev Event) error {
	if login, ok := ev.(Login); ok {
		return s.login(ctx, login)
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	effects, err := s.applyLocked(ev)
	s.mu.Unlock()

	runEffects(effects)
	return err
}

// Destroy releases the client, cancels any pending reconnect and drops the
// network subscription. It is safe to call more than once.
func (s *Session) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.stopRetryLocked()
	var effects []func()
	if s.client != nil {
		effects = append(effects, s.releaseClientLocked())
		s.state = StateReady
	}
	networkSub := s.networkSub
	s.networkSub = nil
	s.mu.Unlock()

	if networkSub != nil {
		networkSub()
	}
	runEffects(effects)
	s.cancel()
	s.logger.Debug("session destroyed")
}

func (s *Session) login(ctx context.Context, ev Login) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	if err := s.assertLocked(ev, StateReady); err != nil {
		s.mu.Unlock()
		return err
	}

	client := s.factory.NewClient(s.clientOpt)
	s.client = client
	s.clientSubs = []ports.Unsubscribe{
		client.OnReady(func() { s.handleClientEvent(client, Success{}) }),
		client.OnDropped(func(err error) {
			s.logger.Debug("client dropped", "client_id", client.ID(), "error", err)
			s.handleClientEvent(client, Disconnect{})
		}),
	}
	s.setStateLocked(StateConnecting, ev)
	s.mu.Unlock()

	s.logger.Info("resuming session", "origin", string(ev.Origin), "client_id", client.ID())

	err := client.UseExistingSession(ctx, ev.Credential)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	var effects []func()
	if s.client == client {
		effects = append(effects, s.releaseClientLocked())
		if s.state == StateConnecting {
			s.setStateLocked(StateReady, ev)
		}
	}
	s.mu.Unlock()
	runEffects(effects)

	return fmt.Errorf("resume session for account %s: %w", s.id, err)
}

func (s *Session) applyLocked(ev Event) ([]func(), error) {
	switch ev.(type) {
	case Success:
		if err := s.assertLocked(ev, StateConnecting); err != nil {
			return nil, err
		}
		s.setStateLocked(StateOnline, ev)
		return nil, nil

	case Disconnect:
		if !s.network.Online() {
			s.logger.Debug("ignoring disconnect while offline", "state", string(s.state))
			return nil, nil
		}
		if err := s.assertLocked(ev, StateOnline); err != nil {
			return nil, err
		}
		s.setStateLocked(StateDisconnected, ev)
		s.scheduleRetryLocked()
		return nil, nil

	case Retry:
		if err := s.assertLocked(ev, StateDisconnected); err != nil {
			return nil, err
		}
		return []func(){s.reconnectLocked(ev)}, nil

	case Logout:
		if err := s.assertLocked(ev, StateConnecting, StateOnline, StateDisconnected); err != nil {
			return nil, err
		}
		release := s.releaseClientLocked()
		s.setStateLocked(StateReady, ev)
		return []func(){release}, nil

	case Offline:
		s.setStateLocked(StateOffline, ev)
		return nil, nil

	case Online:
		if err := s.assertLocked(ev, StateOffline); err != nil {
			return nil, err
		}
		if s.client == nil {
			s.setStateLocked(StateReady, ev)
			return nil, nil
		}
		s.setStateLocked(StateDisconnected, ev)
		return []func(){s.reconnectLocked(Retry{})}, nil

	default:
		return nil, fmt.Errorf("unsupported session event %T", ev)
	}
}

// reconnectLocked moves Disconnected to Connecting and returns the effect
// that asks the client to reconnect.
func (s *Session) reconnectLocked(ev Event) func() {
	client := s.client
	s.setStateLocked(StateConnecting, ev)

	return func() {
		go s.connect(client)
	}
}

func (s *Session) connect(client ports.RealtimeClient) {
	err := client.Connect(s.ctx)
	if err == nil {
		return
	}

	s.mu.Lock()
	if s.destroyed || s.client != client || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}

	if errors.Is(err, domain.ErrUnauthorized) {
		release := s.releaseClientLocked()
		s.setStateLocked(StateReady, Retry{})
		s.mu.Unlock()
		release()
		s.logger.Warn("reconnect rejected", "error", err)
		if s.onFailure != nil {
			s.onFailure(fmt.Errorf("reconnect account %s: %w", s.id, err))
		}
		return
	}

	if s.network.Online() {
		s.setStateLocked(StateDisconnected, Retry{})
		s.scheduleRetryLocked()
	}
	s.mu.Unlock()
	s.logger.Warn("reconnect failed", "error", err)
}

func (s *Session) handleClientEvent(client ports.RealtimeClient, ev Event) {
	s.mu.Lock()
	if s.destroyed || s.client != client {
		s.mu.Unlock()
		return
	}
	effects, err := s.applyLocked(ev)
	s.mu.Unlock()

	runEffects(effects)
	if err != nil {
		s.logger.Warn("client event rejected", "event", ev.Name(), "error", err)
	}
}

func (s *Session) handleNetwork(online bool) {
	var ev Event = Offline{}
	if online {
		ev = Online{}
	}

	if err := s.Emit(s.ctx, ev); err != nil && !errors.Is(err, ErrDestroyed) {
		s.logger.Warn("network event rejected", "event", ev.Name(), "error", err)
	}
}

func (s *Session) scheduleRetryLocked() {
	s.stopRetryLocked()
	s.retryTimer = s.clock.AfterFunc(s.delay, func() {
		if err := s.Emit(s.ctx, Retry{}); err != nil && !errors.Is(err, ErrDestroyed) {
			s.logger.Warn("scheduled retry rejected", "error", err)
		}
	})
}

func (s *Session) stopRetryLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// releaseClientLocked detaches the owned client and returns the effect that
// logs it out and closes it. The effect must run without the lock held.
func (s *Session) releaseClientLocked() func() {
	client := s.client
	subs := s.clientSubs
	s.client = nil
	s.clientSubs = nil

	for _, unsubscribe := range subs {
		unsubscribe()
	}

	return func() {
		if client == nil {
			return
		}
		client.RemoveAllListeners()
		ctx, cancel := context.WithTimeout(context.Background(), clientLogoutTimeout)
		defer cancel()
		if err := client.Logout(ctx); err != nil {
			s.logger.Debug("client logout failed", "client_id", client.ID(), "error", err)
		}
		if err := client.Close(); err != nil {
			s.logger.Debug("client close failed", "client_id", client.ID(), "error", err)
		}
	}
}

func (s *Session) setStateLocked(next State, ev Event) {
	if s.state == StateDisconnected && next != StateDisconnected {
		s.stopRetryLocked()
	}
	prev := s.state
	s.state = next
	s.logger.Debug("session transition", "event", ev.Name(), "from", string(prev), "to", string(next))
}

func (s *Session) assertLocked(ev Event, allowed ...State) error {
	for _, state := range allowed {
		if s.state == state {
			return nil
		}
	}

	return &domain.InvalidTransitionError{
		Event:    ev.Name(),
		Required: stateNames(allowed),
		Actual:   string(s.state),
	}
}

func runEffects(effects []func()) {
	for _, effect := range effects {
		effect()
	}
}
