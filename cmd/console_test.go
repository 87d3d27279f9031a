package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/chatctl/internal/adapters/cache"
	statusadapter "github.com/bnema/chatctl/internal/adapters/render/status"
	"github.com/bnema/chatctl/internal/application"
	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports/mocks"
)

type scriptedReader struct {
	lines   []string
	end     error
	prompts []string
	history []string
	closed  bool
}

func (r *scriptedReader) Prompt(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		if r.end != nil {
			return "", r.end
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) AppendHistory(item string) {
	r.history = append(r.history, item)
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

type consoleHarness struct {
	ctrl    *application.Controller
	creds   *mocks.MockCredentialStore
	factory *mocks.FakeFactory
	profile *cache.Memory[string]
	reader  *scriptedReader
	out     *bytes.Buffer
	session *consoleSession
}

func newConsoleHarness(t *testing.T, accounts ...string) *consoleHarness {
	t.Helper()

	h := &consoleHarness{
		creds:   mocks.NewMockCredentialStore(t),
		factory: mocks.NewFakeFactory(),
		profile: cache.NewMemory[string](),
		reader:  &scriptedReader{},
		out:     &bytes.Buffer{},
	}
	h.factory.OnCreate = func(client *mocks.FakeClient) {
		client.WithAutoReady()
	}

	ctrl, err := application.NewController(application.ControllerDeps{
		API:          mocks.NewMockAPI(t),
		Credentials:  h.creds,
		Factory:      h.factory,
		Network:      mocks.NewFakeNetwork(true),
		Prompter:     mocks.NewMockMFAPrompter(t),
		Notifier:     mocks.NewMockNotifier(t),
		Clock:        mocks.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		WebsocketURL: "ws://fallback.test/ws",
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	ctrl.RegisterCache(h.profile)
	h.ctrl = ctrl

	credentials := make([]domain.Credential, 0, len(accounts))
	for _, id := range accounts {
		credentials = append(credentials, consoleCredential(id))
	}
	require.NoError(t, ctrl.Hydrate(context.Background(), credentials))
	ctrl.Wait()

	h.session = &consoleSession{
		ctrl:    ctrl,
		profile: h.profile,
		render:  statusadapter.Render,
		reader:  h.reader,
		out:     h.out,
	}
	return h
}

func consoleCredential(id string) domain.Credential {
	return domain.Credential{AccountID: domain.AccountID(id), UserID: "user-" + id, Name: id, Token: "tok-" + id}
}

func (h *consoleHarness) run(t *testing.T, lines ...string) string {
	t.Helper()
	h.reader.lines = lines
	require.NoError(t, h.session.run(context.Background()))
	return h.out.String()
}

func TestConsoleListMarksActiveSession(t *testing.T) {
	h := newConsoleHarness(t, "b", "a")

	out := h.run(t, "list")

	assert.Contains(t, out, "* a\tOnline")
	assert.Contains(t, out, "  b\tOnline")
	assert.Equal(t, []string{"list"}, h.reader.history)
	assert.Equal(t, "a> ", h.reader.prompts[0])
}

func TestConsoleSwitchChangesPromptAndResetsWhoami(t *testing.T) {
	h := newConsoleHarness(t, "a", "b")
	h.creds.EXPECT().SetCurrent(mock.Anything, domain.AccountID("b")).Return(nil).Once()

	out := h.run(t, "whoami", "switch b", "whoami")

	assert.Contains(t, out, "user-a")
	assert.Contains(t, out, "Active account: b")
	assert.Contains(t, out, "user-b")
	assert.Equal(t, []string{"a> ", "a> ", "b> ", "b> "}, h.reader.prompts)
	assert.Equal(t, domain.AccountID("b"), h.ctrl.Current())
}

func TestConsoleSwitchUnknownAccountReportsError(t *testing.T) {
	h := newConsoleHarness(t, "a")

	out := h.run(t, "switch zz")

	assert.Contains(t, out, "error: switch account zz: account not found")
	assert.Equal(t, domain.AccountID("a"), h.ctrl.Current())
}

func TestConsoleWhoamiIsCachedUntilSwitch(t *testing.T) {
	h := newConsoleHarness(t, "a")

	h.run(t, "whoami", "whoami")

	stats := h.profile.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 1, stats.Hits)
}

func TestConsoleLogout(t *testing.T) {
	h := newConsoleHarness(t, "a", "b")

	out := h.run(t, "logout b", "logout", "logout", "list")

	assert.Contains(t, out, "Logged out of b")
	assert.Contains(t, out, "Logged out of the active session")
	assert.Contains(t, out, "error: no active session")
	assert.Contains(t, out, "no sessions")
	assert.Empty(t, h.ctrl.Sessions())
}

func TestConsoleLogoutUnknownAccount(t *testing.T) {
	h := newConsoleHarness(t, "a")

	out := h.run(t, "logout zz")

	assert.Contains(t, out, "error: logout zz: account not found")
	assert.Len(t, h.ctrl.Sessions(), 1)
}

func TestConsoleRetryRequiresFailedSession(t *testing.T) {
	h := newConsoleHarness(t, "a")

	out := h.run(t, "retry", "retry a")

	assert.Contains(t, out, "error: usage: retry <account-id>")
	assert.Contains(t, out, "error: retry account a:")
}

func TestConsoleReloadReportsChanges(t *testing.T) {
	h := newConsoleHarness(t, "a")
	h.creds.EXPECT().List(mock.Anything).Return([]domain.Credential{consoleCredential("a"), consoleCredential("c")}, nil).Once()
	h.creds.EXPECT().List(mock.Anything).Return([]domain.Credential{consoleCredential("a"), consoleCredential("c")}, nil).Once()

	out := h.run(t, "reload", "reload")
	h.ctrl.Wait()

	assert.Contains(t, out, "Accounts added c")
	assert.Contains(t, out, "Accounts unchanged")
}

func TestConsoleStatusAndHelp(t *testing.T) {
	h := newConsoleHarness(t, "a")

	out := h.run(t, "help", "status")

	assert.Contains(t, out, "switch <id>")
	assert.Contains(t, out, "Chat Sessions")
	assert.Contains(t, out, "user: user-a")
}

func TestConsoleUnknownCommandKeepsRunning(t *testing.T) {
	h := newConsoleHarness(t)

	out := h.run(t, "dance", "", "quit", "list")

	assert.Contains(t, out, `error: unknown command "dance", type help`)
	assert.NotContains(t, out, "no sessions")
	assert.Equal(t, []string{"dance", "quit"}, h.reader.history)
	assert.Equal(t, "chatctl> ", h.reader.prompts[0])
}

func TestConsoleStopsOnAbort(t *testing.T) {
	h := newConsoleHarness(t)
	h.reader.end = liner.ErrPromptAborted

	assert.Empty(t, h.run(t))
}

func TestConsoleReturnsReaderFailure(t *testing.T) {
	h := newConsoleHarness(t)
	h.reader.end = errors.New("tty gone")

	err := h.session.run(context.Background())

	require.ErrorContains(t, err, "read command: tty gone")
}

func TestCompleteConsoleLine(t *testing.T) {
	assert.Equal(t, []string{"status", "switch"}, completeConsoleLine("s"))
	assert.Equal(t, []string{"retry", "reload"}, completeConsoleLine("RE"))
	assert.Empty(t, completeConsoleLine("x"))
}
