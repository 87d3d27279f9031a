package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/time/rate"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
	"github.com/bnema/chatctl/internal/session"
)

const (
	configInitialBackoff = 500 * time.Millisecond
	configMaxBackoff     = 30 * time.Second
	forgetTimeout        = 10 * time.Second
)

type ControllerDeps struct {
	API         ports.API
	Credentials ports.CredentialStore
	Factory     ports.ClientFactory
	Network     ports.NetworkMonitor
	Prompter    ports.MFAPrompter
	Notifier    ports.Notifier
	Clock       ports.Clock
	Logger      *slog.Logger
	Caches      []ports.AccountScopedCache

	// WebsocketURL is used until the server configuration names one.
	WebsocketURL   string
	ReconnectDelay time.Duration
	// MFALimiter throttles MFA answers sent to the server. Nil means no limit.
	MFALimiter *rate.Limiter
	// MinServerVersion is a semver constraint the server version should meet.
	MinServerVersion string
	FriendlyName     string
}

// Controller owns one session per signed-in account and tracks which one is
// active.
type Controller struct {
	api          ports.API
	credentials  ports.CredentialStore
	factory      ports.ClientFactory
	network      ports.NetworkMonitor
	prompter     ports.MFAPrompter
	notifier     ports.Notifier
	clock        ports.Clock
	logger       *slog.Logger
	wsURL        string
	delay        time.Duration
	mfaLimiter   *rate.Limiter
	minVersion   string
	friendlyName string

	ctx    context.Context
	cancel context.CancelFunc

	attempts sync.WaitGroup
	loops    sync.WaitGroup

	mu       sync.RWMutex
	sessions map[domain.AccountID]*session.Session
	creds    map[domain.AccountID]domain.Credential
	// persisted marks sessions whose credential is known to be in the store.
	persisted map[domain.AccountID]bool
	current   domain.AccountID
	caches    []ports.AccountScopedCache
	config    *domain.ServerConfig
	closed    bool

	configLoaded chan struct{}
}

func NewController(deps ControllerDeps) (*Controller, error) {
	if deps.API == nil {
		return nil, errors.New("api is nil")
	}
	if deps.Credentials == nil {
		return nil, errors.New("credential store is nil")
	}
	if deps.Factory == nil {
		return nil, errors.New("client factory is nil")
	}
	if deps.Network == nil {
		return nil, errors.New("network monitor is nil")
	}
	if deps.Prompter == nil {
		return nil, errors.New("mfa prompter is nil")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is nil")
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = discardLogger()
	}
	if deps.FriendlyName == "" {
		deps.FriendlyName = DeviceName()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:          deps.API,
		credentials:  deps.Credentials,
		factory:      deps.Factory,
		network:      deps.Network,
		prompter:     deps.Prompter,
		notifier:     deps.Notifier,
		clock:        deps.Clock,
		logger:       deps.Logger,
		wsURL:        deps.WebsocketURL,
		delay:        deps.ReconnectDelay,
		mfaLimiter:   deps.MFALimiter,
		minVersion:   deps.MinServerVersion,
		friendlyName: deps.FriendlyName,
		ctx:          ctx,
		cancel:       cancel,
		sessions:     make(map[domain.AccountID]*session.Session),
		creds:        make(map[domain.AccountID]domain.Credential),
		persisted:    make(map[domain.AccountID]bool),
		caches:       slices.Clone(deps.Caches),
		configLoaded: make(chan struct{}),
	}, nil
}

// DeviceName is the cosmetic session name reported to the server.
func DeviceName() string {
	switch runtime.GOOS {
	case "darwin":
		return "chatctl on macOS"
	case "windows":
		return "chatctl on Windows"
	case "linux":
		return "chatctl on Linux"
	default:
		return "chatctl on " + runtime.GOOS
	}
}

// RegisterCache adds a cache that is reset whenever the active account changes.
func (c *Controller) RegisterCache(cache ports.AccountScopedCache) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.caches = append(c.caches, cache)
}

// Hydrate starts one session per stored credential.
func (c *Controller) Hydrate(ctx context.Context, credentials []domain.Credential) error {
	var errs []error
	for _, credential := range credentials {
		if _, err := c.AddSession(ctx, credential, domain.OriginExisting); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("hydrate sessions: %w", err)
	}
	return nil
}

// Restore hydrates from the credential store and reselects the account that
// was active when the store was last written.
func (c *Controller) Restore(ctx context.Context) error {
	credentials, err := c.credentials.List(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	preferred, err := c.credentials.Current(ctx)
	if err != nil {
		return fmt.Errorf("load current account: %w", err)
	}

	if err := c.Hydrate(ctx, credentials); err != nil {
		return err
	}

	if preferred != "" {
		c.mu.Lock()
		if _, ok := c.sessions[preferred]; ok {
			c.current = preferred
		}
		c.mu.Unlock()
	}

	c.logger.Info("sessions restored", "count", len(credentials), "current", string(c.Current()))
	return nil
}

// AddSession registers a session for credential and starts logging it in.
// The login runs in the background; Wait blocks until it settles. A session
// already registered for the account is replaced.
func (c *Controller) AddSession(_ context.Context, credential domain.Credential, origin domain.SessionOrigin) (*session.Session, error) {
	if !credential.Valid() {
		return nil, fmt.Errorf("add session for account %q: credential requires an account id and a token", credential.AccountID)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("controller closed")
	}

	var s *session.Session
	s, err := session.New(session.Options{
		AccountID:      credential.AccountID,
		Factory:        c.factory,
		ClientOptions:  ports.ClientOptions{WebsocketURL: c.websocketURLLocked()},
		Network:        c.network,
		Clock:          c.clock,
		ReconnectDelay: c.delay,
		Logger:         c.logger,
		OnFailure: func(err error) {
			c.handleFailure(credential.AccountID, s, err)
		},
	})
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create session for account %s: %w", credential.AccountID, err)
	}

	replaced := c.sessions[credential.AccountID]
	c.sessions[credential.AccountID] = s
	c.creds[credential.AccountID] = credential
	c.persisted[credential.AccountID] = origin == domain.OriginExisting
	c.selectActiveLocked()
	c.attempts.Add(1)
	c.mu.Unlock()

	if replaced != nil {
		c.logger.Info("replacing session", "account_id", string(credential.AccountID))
		replaced.Destroy()
	}

	go func() {
		defer c.attempts.Done()
		c.drive(s, credential, origin)
	}()

	return s, nil
}

// Retry logs a session that failed to resume in again with its credential.
func (c *Controller) Retry(_ context.Context, id domain.AccountID) error {
	c.mu.Lock()
	s, ok := c.sessions[id]
	credential := c.creds[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("retry account %s: %w", id, domain.ErrAccountNotFound)
	}
	if state := s.State(); state != session.StateReady {
		c.mu.Unlock()
		return fmt.Errorf("retry account %s: %w", id, &domain.InvalidTransitionError{
			Event:    session.Login{}.Name(),
			Required: []string{string(session.StateReady)},
			Actual:   string(state),
		})
	}
	c.attempts.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.attempts.Done()
		c.drive(s, credential, domain.OriginExisting)
	}()

	return nil
}

// Wait blocks until every login started by AddSession or Retry has settled.
func (c *Controller) Wait() {
	c.attempts.Wait()
}

func (c *Controller) drive(s *session.Session, credential domain.Credential, origin domain.SessionOrigin) {
	err := s.Emit(c.ctx, session.Login{Credential: credential, Origin: origin})
	if err != nil {
		c.handleFailure(credential.AccountID, s, err)
		return
	}

	c.logger.Info("session resumed", "account_id", string(credential.AccountID), "origin", string(origin))
	if origin != domain.OriginNew {
		return
	}
	if err := c.credentials.Save(c.ctx, credential); err != nil {
		c.logger.Error("persist credential failed", "account_id", string(credential.AccountID), "error", err)
		c.notifier.Error(credential.AccountID, err)
		return
	}

	c.mu.Lock()
	if c.sessions[credential.AccountID] == s {
		c.persisted[credential.AccountID] = true
	}
	c.mu.Unlock()
}

func (c *Controller) handleFailure(id domain.AccountID, s *session.Session, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.evict(id, s)
	case errors.Is(err, session.ErrDestroyed), errors.Is(err, context.Canceled):
		c.logger.Debug("login abandoned", "account_id", string(id), "error", err)
	default:
		c.logger.Warn("login failed", "account_id", string(id), "error", err)
		c.notifier.Error(id, err)
	}
}

// evict drops a session whose credential the server rejected.
func (c *Controller) evict(id domain.AccountID, s *session.Session) {
	c.mu.Lock()
	registered := c.sessions[id] == s
	if registered {
		delete(c.sessions, id)
		delete(c.creds, id)
		delete(c.persisted, id)
		if c.current == id {
			c.current = ""
		}
		c.selectActiveLocked()
	}
	c.mu.Unlock()

	s.Destroy()
	if !registered {
		return
	}

	c.logger.Warn("credential rejected, signing out", "account_id", string(id))
	ctx, cancel := context.WithTimeout(context.Background(), forgetTimeout)
	defer cancel()
	if err := c.credentials.Forget(ctx, id); err != nil {
		c.logger.Error("forget credential failed", "account_id", string(id), "error", err)
	}
	c.notifier.SignedOut(id)
}

// Logout ends the session of id. Its stored credential is kept.
func (c *Controller) Logout(ctx context.Context, id domain.AccountID) bool {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if c.current == id {
		c.current = ""
	}
	delete(c.sessions, id)
	delete(c.creds, id)
	delete(c.persisted, id)
	c.selectActiveLocked()
	c.mu.Unlock()

	if err := s.Emit(ctx, session.Logout{}); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		c.logger.Warn("logout failed", "account_id", string(id), "error", err)
	}
	s.Destroy()

	c.logger.Info("session logged out", "account_id", string(id))
	return true
}

func (c *Controller) LogoutCurrent(ctx context.Context) bool {
	id := c.Current()
	if id == "" {
		return false
	}
	return c.Logout(ctx, id)
}

// SwitchAccount makes id the active account and resets account scoped caches.
// An id without a session cannot stay active: the previous selection is kept
// and ErrAccountNotFound is returned.
func (c *Controller) SwitchAccount(ctx context.Context, id domain.AccountID) error {
	c.mu.Lock()
	previous := c.current
	c.current = id
	if _, ok := c.sessions[id]; !ok {
		c.current = previous
	}
	c.selectActiveLocked()
	current := c.current
	caches := slices.Clone(c.caches)
	c.mu.Unlock()

	for _, cache := range caches {
		cache.Reset()
	}

	if current != id {
		return fmt.Errorf("switch account %s: %w", id, domain.ErrAccountNotFound)
	}

	if err := c.credentials.SetCurrent(ctx, id); err != nil {
		c.logger.Warn("persist current account failed", "account_id", string(id), "error", err)
	}
	c.logger.Info("switched account", "account_id", string(id))
	return nil
}

func (c *Controller) selectActiveLocked() {
	if c.current != "" {
		if _, ok := c.sessions[c.current]; ok {
			return
		}
	}

	c.current = ""
	for id := range c.sessions {
		if c.current == "" || id < c.current {
			c.current = id
		}
	}
}

func (c *Controller) Current() domain.AccountID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// ActiveSession returns the session of the current account, or nil.
func (c *Controller) ActiveSession() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == "" {
		return nil
	}
	return c.sessions[c.current]
}

// ActiveClient returns the active session's client while it is Online.
func (c *Controller) ActiveClient() ports.RealtimeClient {
	s := c.ActiveSession()
	if s == nil || s.State() != session.StateOnline {
		return nil
	}
	return s.Client()
}

// ClientHandle is whatever client can serve a request right now. Realtime is
// nil when no session is active; API is always set.
type ClientHandle struct {
	Realtime ports.RealtimeClient
	API      ports.API
}

func (h ClientHandle) Authenticated() bool {
	return h.Realtime != nil
}

// Client returns the active session's client, falling back to the anonymous
// API for requests that need no session.
func (c *Controller) Client() ClientHandle {
	handle := ClientHandle{API: c.api}
	if s := c.ActiveSession(); s != nil {
		handle.Realtime = s.Client()
	}
	return handle
}

func (c *Controller) IsLoggedIn() bool {
	return c.ActiveSession() != nil
}

func (c *Controller) IsReady() bool {
	s := c.ActiveSession()
	return s != nil && s.Ready()
}

// Session returns the session registered for id.
func (c *Controller) Session(id domain.AccountID) (*session.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[id]
	return s, ok
}

// Sessions returns a snapshot of every session ordered by account id.
func (c *Controller) Sessions() []SessionStatus {
	c.mu.RLock()
	ids := make([]domain.AccountID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	statuses := make([]SessionStatus, 0, len(ids))
	for _, id := range ids {
		s := c.sessions[id]
		credential := c.creds[id]
		userID := s.UserID()
		if userID == "" {
			userID = credential.UserID
		}
		statuses = append(statuses, SessionStatus{
			AccountID: id,
			Name:      credential.Name,
			UserID:    userID,
			State:     s.State(),
			Ready:     s.Ready(),
			Active:    id == c.current,
		})
	}
	c.mu.RUnlock()

	return statuses
}

func (c *Controller) Status() Status {
	status := Status{
		Sessions:     c.Sessions(),
		Current:      c.Current(),
		ConfigStatus: c.ConfigStatus(),
	}
	if config, ok := c.Config(); ok {
		status.Server = &config
	}
	return status
}

// Start fetches the server configuration in the background, retrying until it
// succeeds or ctx ends.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)

	c.loops.Add(1)
	go func() {
		defer c.loops.Done()
		defer stop()
		defer cancel()
		c.fetchConfig(ctx)
	}()
}

func (c *Controller) fetchConfig(ctx context.Context) {
	backoff := configInitialBackoff
	for attempt := 1; ; attempt++ {
		config, err := c.api.FetchConfig(ctx)
		if err == nil {
			c.setConfig(config)
			return
		}
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("fetch server config failed", "attempt", attempt, "retry_in", backoff, "error", err)
		if !c.sleep(ctx, backoff) {
			return
		}
		backoff = nextConfigBackoff(backoff)
	}
}

func nextConfigBackoff(d time.Duration) time.Duration {
	return min(d*2, configMaxBackoff)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	done := make(chan struct{})
	timer := c.clock.AfterFunc(d, func() { close(done) })

	select {
	case <-done:
		return true
	case <-ctx.Done():
		timer.Stop()
		return false
	}
}

func (c *Controller) setConfig(config domain.ServerConfig) {
	c.mu.Lock()
	first := c.config == nil
	c.config = &config
	c.mu.Unlock()
	if first {
		close(c.configLoaded)
	}

	c.logger.Info("server config loaded", "version", config.Version, "ws", config.WebsocketURL)
	if err := CheckServerVersion(config.Version, c.minVersion); err != nil {
		c.logger.Warn("server version check failed", "error", err)
	}
}

// CheckServerVersion reports whether version satisfies constraint. An empty
// constraint accepts any version.
func CheckServerVersion(version, constraint string) error {
	if constraint == "" {
		return nil
	}

	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("parse version constraint %q: %w", constraint, err)
	}
	got, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("parse server version %q: %w", version, err)
	}
	if !want.Check(got) {
		return fmt.Errorf("server version %s does not satisfy %s", got, constraint)
	}
	return nil
}

func (c *Controller) Config() (domain.ServerConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.config == nil {
		return domain.ServerConfig{}, false
	}
	return *c.config, true
}

// ConfigLoaded is closed once the server configuration has been fetched.
func (c *Controller) ConfigLoaded() <-chan struct{} {
	return c.configLoaded
}

func (c *Controller) ConfigStatus() ConfigStatus {
	if _, ok := c.Config(); ok {
		return ConfigReady
	}
	return ConfigPending
}

func (c *Controller) websocketURLLocked() string {
	if c.config != nil && c.config.WebsocketURL != "" {
		return c.config.WebsocketURL
	}
	return c.wsURL
}

// Close destroys every session and stops background work.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sessions := make([]*session.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.sessions = make(map[domain.AccountID]*session.Session)
	c.creds = make(map[domain.AccountID]domain.Credential)
	c.persisted = make(map[domain.AccountID]bool)
	c.current = ""
	c.mu.Unlock()

	c.cancel()
	for _, s := range sessions {
		s.Destroy()
	}
	c.attempts.Wait()
	c.loops.Wait()
}
