package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

// fakeEventServer accepts "good-*" tokens and rejects everything else.
type fakeEventServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	// authDelay holds the Authenticated reply back, widening the handshake.
	authDelay time.Duration

	mu       sync.Mutex
	conns    []*websocket.Conn
	pings    int
	open     int
	accepted int
}

func newFakeEventServer(t *testing.T) *fakeEventServer {
	t.Helper()

	s := &fakeEventServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakeEventServer) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *fakeEventServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	s.mu.Lock()
	s.open++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.open--
		s.mu.Unlock()
	}()

	var auth frame
	if err := conn.ReadJSON(&auth); err != nil || auth.Type != frameAuthenticate {
		return
	}
	if !strings.HasPrefix(auth.Token, "good-") {
		_ = conn.WriteJSON(frame{Type: frameError, Error: "InvalidSession"})
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.accepted++
	s.mu.Unlock()

	time.Sleep(s.authDelay)
	_ = conn.WriteJSON(frame{Type: frameAuthenticated})
	_ = conn.WriteJSON(frame{Type: frameReady, User: &frameUser{ID: "user-1", Username: "alice"}})

	for {
		var msg frame
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == framePing {
			s.mu.Lock()
			s.pings++
			s.mu.Unlock()
			_ = conn.WriteJSON(frame{Type: framePong, Data: msg.Data})
		}
	}
}

func (s *fakeEventServer) dropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *fakeEventServer) sendToAll(msg frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.conns {
		_ = conn.WriteJSON(msg)
	}
}

func (s *fakeEventServer) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *fakeEventServer) acceptedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *fakeEventServer) pingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	client := NewClient(ports.ClientOptions{WebsocketURL: url}, nil, time.Hour, time.Second)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestUseExistingSessionFiresReady(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	ready := make(chan struct{}, 1)
	client.OnReady(func() { ready <- struct{}{} })

	err := client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"})
	require.NoError(t, err)
	waitSignal(t, ready, "ready")

	assert.Equal(t, "user-1", client.UserID())
	assert.Equal(t, "alice", client.Username())
	assert.NotEmpty(t, client.ID())
}

func TestUseExistingSessionRejectedToken(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	err := client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "revoked"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, client.UserID())
}

func TestUseExistingSessionRequiresToken(t *testing.T) {
	client := newTestClient(t, "ws://127.0.0.1:1")

	err := client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a"})
	require.ErrorIs(t, err, ErrNoSession)
	require.ErrorIs(t, client.Connect(context.Background()), ErrNoSession)
}

func TestUseExistingSessionDialFailure(t *testing.T) {
	client := newTestClient(t, "ws://127.0.0.1:1")

	err := client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial")
}

func TestDroppedFiresOnServerClose(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	ready := make(chan struct{}, 2)
	dropped := make(chan struct{}, 2)
	client.OnReady(func() { ready <- struct{}{} })
	client.OnDropped(func(error) { dropped <- struct{}{} })

	require.NoError(t, client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"}))
	waitSignal(t, ready, "ready")

	server.dropAll()
	waitSignal(t, dropped, "dropped")

	require.NoError(t, client.Connect(context.Background()))
	waitSignal(t, ready, "ready after reconnect")
}

func TestServerErrorFrameDropsWithUnauthorized(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	ready := make(chan struct{}, 1)
	dropErr := make(chan error, 1)
	client.OnReady(func() { ready <- struct{}{} })
	client.OnDropped(func(err error) { dropErr <- err })

	require.NoError(t, client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"}))
	waitSignal(t, ready, "ready")

	server.sendToAll(frame{Type: frameError, Error: "NotAuthenticated"})

	select {
	case err := <-dropErr:
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dropped")
	}
}

func TestLogoutDoesNotFireDropped(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	ready := make(chan struct{}, 1)
	dropped := make(chan struct{}, 1)
	client.OnReady(func() { ready <- struct{}{} })
	client.OnDropped(func(error) { dropped <- struct{}{} })

	require.NoError(t, client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"}))
	waitSignal(t, ready, "ready")

	require.NoError(t, client.Logout(context.Background()))
	assert.Empty(t, client.UserID())

	select {
	case <-dropped:
		t.Fatal("logout must not report a drop")
	case <-time.After(100 * time.Millisecond):
	}
	require.ErrorIs(t, client.Connect(context.Background()), ErrNoSession)
}

func TestUnsubscribeAndRemoveAllListeners(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	var mu sync.Mutex
	calls := 0
	unsubscribe := client.OnReady(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	unsubscribe()
	unsubscribe()

	ready := make(chan struct{}, 1)
	client.OnReady(func() { ready <- struct{}{} })
	client.RemoveAllListeners()
	client.OnDropped(func(error) {})
	client.RemoveAllListeners()

	require.NoError(t, client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"}))
	require.Eventually(t, func() bool { return client.UserID() == "user-1" }, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
	assert.Empty(t, ready)
}

func TestPingLoopSendsPings(t *testing.T) {
	server := newFakeEventServer(t)
	client := NewClient(ports.ClientOptions{WebsocketURL: server.URL()}, nil, 10*time.Millisecond, time.Second)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"}))
	require.Eventually(t, func() bool { return server.pingCount() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectAfterCloseFails(t *testing.T) {
	server := newFakeEventServer(t)
	client := newTestClient(t, server.URL())

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	err := client.UseExistingSession(context.Background(), domain.Credential{AccountID: "a", Token: "good-a"})
	require.Error(t, err)
}

func TestFactoryBuildsDistinctClients(t *testing.T) {
	factory := Factory{PingInterval: time.Minute}

	first := factory.NewClient(ports.ClientOptions{WebsocketURL: "ws://example.invalid"})
	second := factory.NewClient(ports.ClientOptions{WebsocketURL: "ws://example.invalid"})

	assert.NotEqual(t, first.ID(), second.ID())
}

func TestServerErrorMapping(t *testing.T) {
	assert.True(t, errors.Is(serverError("InvalidSession"), domain.ErrUnauthorized))
	assert.True(t, errors.Is(serverError("NotAuthenticated"), domain.ErrUnauthorized))
	assert.False(t, errors.Is(serverError("InternalError"), domain.ErrUnauthorized))
	assert.EqualError(t, serverError(""), "server error")
}

func TestConcurrentConnectKeepsOneConnection(t *testing.T) {
	server := newFakeEventServer(t)
	server.authDelay = 100 * time.Millisecond
	client := newTestClient(t, server.URL())

	client.mu.Lock()
	client.token = "good-a"
	client.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.Connect(context.Background())
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Eventually(t, func() bool { return server.openCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return server.openCount() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestReadyFromReplacedConnectionIsIgnored(t *testing.T) {
	server := newFakeEventServer(t)
	server.authDelay = 50 * time.Millisecond
	client := newTestClient(t, server.URL())

	client.mu.Lock()
	client.token = "good-a"
	client.mu.Unlock()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Connect(context.Background())
		}()
	}
	wg.Wait()
	require.Eventually(t, func() bool { return client.UserID() == "user-1" }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Logout(context.Background()))
	server.sendToAll(frame{Type: frameReady, User: &frameUser{ID: "user-ghost", Username: "ghost"}})

	assert.Never(t, func() bool { return client.UserID() != "" }, 200*time.Millisecond, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return server.openCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
