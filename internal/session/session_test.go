package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports/mocks"
)

var testCredential = domain.Credential{AccountID: "acc-1", UserID: "user-1", Token: "token-1"}

type harness struct {
	session *Session
	network *mocks.FakeNetwork
	clock   *mocks.FakeClock
	factory *mocks.FakeFactory
	client  *mocks.FakeClient
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()

	h := &harness{
		network: mocks.NewFakeNetwork(online),
		clock:   mocks.NewFakeClock(time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)),
		client:  mocks.NewFakeClient("client-1"),
	}
	h.factory = mocks.NewFakeFactory(h.client)

	s, err := New(Options{
		AccountID: "acc-1",
		Factory:   h.factory,
		Network:   h.network,
		Clock:     h.clock,
	})
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	h.session = s

	return h
}

func (h *harness) goOnline(t *testing.T) {
	t.Helper()

	h.client.WithReadyOnResume("user-1")
	require.NoError(t, h.session.Emit(context.Background(), Login{Credential: testCredential, Origin: domain.OriginExisting}))
	require.Equal(t, StateOnline, h.session.State())
}

func TestNewStartsReadyWhenOnline(t *testing.T) {
	h := newHarness(t, true)

	assert.Equal(t, StateReady, h.session.State())
	assert.Nil(t, h.session.Client())
	assert.False(t, h.session.Ready())
	assert.Equal(t, 1, h.network.SubscriberCount())
}

func TestNewStartsOfflineWhenNetworkDown(t *testing.T) {
	h := newHarness(t, false)

	assert.Equal(t, StateOffline, h.session.State())
}

func TestNewRequiresFactoryAndNetwork(t *testing.T) {
	_, err := New(Options{Network: mocks.NewFakeNetwork(true)})
	require.Error(t, err)

	_, err = New(Options{Factory: mocks.NewFakeFactory()})
	require.Error(t, err)
}

func TestLoginMovesToConnectingBeforeResumeCompletes(t *testing.T) {
	h := newHarness(t, true)
	release := h.client.BlockResume()

	var wg sync.WaitGroup
	var loginErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		loginErr = h.session.Emit(context.Background(), Login{Credential: testCredential, Origin: domain.OriginNew})
	}()

	require.Eventually(t, func() bool { return h.session.State() == StateConnecting }, time.Second, time.Millisecond)
	assert.Same(t, h.client, h.session.Client())
	assert.False(t, h.session.Ready())

	release()
	wg.Wait()
	require.NoError(t, loginErr)
	assert.Equal(t, StateConnecting, h.session.State())
	assert.False(t, h.factory.Options[0].AutoReconnect)

	h.client.SetUserID("user-1")
	h.client.FireReady()
	assert.Equal(t, StateOnline, h.session.State())
	assert.True(t, h.session.Ready())
	assert.Equal(t, "user-1", h.session.UserID())
}

func TestOnlineIsNotReadyUntilUserResolves(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.session.Emit(context.Background(), Login{Credential: testCredential}))
	h.client.FireReady()

	assert.Equal(t, StateOnline, h.session.State())
	assert.False(t, h.session.Ready())
}

func TestLoginFailureRevertsToReadyAndReturnsError(t *testing.T) {
	h := newHarness(t, true)
	resumeErr := errors.New("connection refused")
	h.client.WithResumeError(resumeErr)

	err := h.session.Emit(context.Background(), Login{Credential: testCredential})

	require.ErrorIs(t, err, resumeErr)
	assert.Equal(t, StateReady, h.session.State())
	assert.Nil(t, h.session.Client())
	assert.Equal(t, 0, h.client.ListenerCount())
	assert.Equal(t, 1, h.client.RemovedAll)
}

func TestLoginFailureKeepsUnauthorizedClassification(t *testing.T) {
	h := newHarness(t, true)
	h.client.WithResumeError(domain.ErrUnauthorized)

	err := h.session.Emit(context.Background(), Login{Credential: testCredential})

	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, StateReady, h.session.State())
}

func TestSecondLoginIsAnInvalidTransition(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)

	err := h.session.Emit(context.Background(), Login{Credential: testCredential})

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "LOGIN", transitionErr.Event)
	assert.Equal(t, []string{"Ready"}, transitionErr.Required)
	assert.Equal(t, "Online", transitionErr.Actual)
	assert.Equal(t, StateOnline, h.session.State())
	assert.Equal(t, 1, h.factory.CreatedCount())
}

func TestInvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(h *harness, t *testing.T)
		event Event
		state State
	}{
		{name: "success from ready", event: Success{}, state: StateReady},
		{name: "retry from ready", event: Retry{}, state: StateReady},
		{name: "logout from ready", event: Logout{}, state: StateReady},
		{name: "disconnect from ready", event: Disconnect{}, state: StateReady},
		{name: "online from ready", event: Online{}, state: StateReady},
		{name: "retry from online", setup: (*harness).goOnline, event: Retry{}, state: StateOnline},
		{name: "success from online", setup: (*harness).goOnline, event: Success{}, state: StateOnline},
		{
			name: "logout from offline",
			setup: func(h *harness, t *testing.T) {
				require.NoError(t, h.session.Emit(context.Background(), Offline{}))
			},
			event: Logout{},
			state: StateOffline,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, true)
			if tc.setup != nil {
				tc.setup(h, t)
			}

			err := h.session.Emit(context.Background(), tc.event)

			require.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, tc.state, h.session.State())
		})
	}
}

func TestDisconnectSchedulesRetryAfterDelay(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)

	h.client.FireDropped(errors.New("eof"))
	assert.Equal(t, StateDisconnected, h.session.State())
	assert.Equal(t, 1, h.clock.Pending())

	h.clock.Advance(DefaultReconnectDelay - time.Millisecond)
	assert.Equal(t, StateDisconnected, h.session.State())

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, StateConnecting, h.session.State())
	require.Eventually(t, func() bool { return h.client.ConnectCount() == 1 }, time.Second, time.Millisecond)

	h.client.FireReady()
	assert.Equal(t, StateOnline, h.session.State())
}

func TestDisconnectWhileOfflineIsIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	h.network.SetQuietly(false)

	require.NoError(t, h.session.Emit(context.Background(), Disconnect{}))

	assert.Equal(t, StateOnline, h.session.State())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestDuplicateDisconnectFailsLoudly(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)

	require.NoError(t, h.session.Emit(context.Background(), Disconnect{}))
	err := h.session.Emit(context.Background(), Disconnect{})

	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, StateDisconnected, h.session.State())
	assert.Equal(t, 1, h.clock.Pending())
}

func TestDropBeforeReadyStaysConnectingUntilNetworkRecovers(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.session.Emit(context.Background(), Login{Credential: testCredential, Origin: domain.OriginExisting}))
	require.Equal(t, StateConnecting, h.session.State())

	h.client.FireDropped(errors.New("eof"))

	assert.Equal(t, StateConnecting, h.session.State())
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, 0, h.client.ConnectCount())

	h.network.Set(false)
	require.Equal(t, StateOffline, h.session.State())
	h.network.Set(true)

	assert.Equal(t, StateConnecting, h.session.State())
	require.Eventually(t, func() bool { return h.client.ConnectCount() == 1 }, time.Second, time.Millisecond)

	h.client.SetUserID("user-1")
	h.client.FireReady()
	assert.Equal(t, StateOnline, h.session.State())
}

func TestLogoutCancelsPendingRetry(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	h.client.FireDropped(nil)
	require.Equal(t, 1, h.clock.Pending())

	require.NoError(t, h.session.Emit(context.Background(), Logout{}))

	assert.Equal(t, StateReady, h.session.State())
	assert.Equal(t, 0, h.clock.Pending())
	assert.Nil(t, h.session.Client())
	assert.Equal(t, 1, h.client.Logouts)
	assert.Equal(t, 1, h.client.Closes)
	assert.Equal(t, 0, h.client.ListenerCount())

	// A retry that raced the cancellation is rejected without touching state.
	h.clock.FireStopped()
	assert.Equal(t, StateReady, h.session.State())
	assert.Equal(t, 0, h.client.ConnectCount())
}

func TestOfflineFromAnyState(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)

	h.network.Set(false)

	assert.Equal(t, StateOffline, h.session.State())
	assert.Same(t, h.client, h.session.Client())
}

func TestOnlineWithClientReconnects(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	h.network.Set(false)
	require.Equal(t, StateOffline, h.session.State())

	h.network.Set(true)

	assert.Equal(t, StateConnecting, h.session.State())
	require.Eventually(t, func() bool { return h.client.ConnectCount() == 1 }, time.Second, time.Millisecond)
}

func TestOnlineWithoutClientBecomesReady(t *testing.T) {
	h := newHarness(t, false)

	h.network.Set(true)

	assert.Equal(t, StateReady, h.session.State())
	assert.Equal(t, 0, h.factory.CreatedCount())
}

func TestOfflineCancelsRetryTimer(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	h.client.FireDropped(nil)

	h.network.Set(false)

	assert.Equal(t, StateOffline, h.session.State())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestReconnectRejectedReleasesClientAndReportsFailure(t *testing.T) {
	network := mocks.NewFakeNetwork(true)
	clock := mocks.NewFakeClock(time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC))
	client := mocks.NewFakeClient("client-1").WithReadyOnResume("user-1").WithConnectError(domain.ErrUnauthorized)

	failures := make(chan error, 1)
	s, err := New(Options{
		AccountID: "acc-1",
		Factory:   mocks.NewFakeFactory(client),
		Network:   network,
		Clock:     clock,
		OnFailure: func(err error) { failures <- err },
	})
	require.NoError(t, err)
	t.Cleanup(s.Destroy)

	require.NoError(t, s.Emit(context.Background(), Login{Credential: testCredential}))
	require.NoError(t, s.Emit(context.Background(), Disconnect{}))
	clock.Advance(DefaultReconnectDelay)

	select {
	case failure := <-failures:
		assert.ErrorIs(t, failure, domain.ErrUnauthorized)
	case <-time.After(time.Second):
		t.Fatal("expected reconnect failure to be reported")
	}
	assert.Equal(t, StateReady, s.State())
	assert.Nil(t, s.Client())
}

func TestReconnectFailureSchedulesAnotherRetry(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	h.client.WithConnectError(errors.New("dial tcp: refused"))

	h.client.FireDropped(nil)
	h.clock.Advance(DefaultReconnectDelay)

	require.Eventually(t, func() bool {
		return h.session.State() == StateDisconnected && h.clock.Pending() == 1
	}, time.Second, time.Millisecond)
}

func TestStaleClientEventsAreIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	require.NoError(t, h.session.Emit(context.Background(), Logout{}))

	h.client.FireDropped(nil)
	h.client.FireReady()

	assert.Equal(t, StateReady, h.session.State())
}

func TestDestroyReleasesEverything(t *testing.T) {
	h := newHarness(t, true)
	h.goOnline(t)
	h.client.FireDropped(nil)

	h.session.Destroy()
	h.session.Destroy()

	assert.Equal(t, 0, h.network.SubscriberCount())
	assert.Equal(t, 0, h.clock.Pending())
	assert.Nil(t, h.session.Client())
	assert.Equal(t, 1, h.client.Logouts)
	assert.Equal(t, 1, h.client.Closes)
	require.ErrorIs(t, h.session.Emit(context.Background(), Offline{}), ErrDestroyed)
	require.ErrorIs(t, h.session.Emit(context.Background(), Login{Credential: testCredential}), ErrDestroyed)
}
