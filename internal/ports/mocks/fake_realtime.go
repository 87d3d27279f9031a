package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

// FakeClient is a scriptable ports.RealtimeClient.
type FakeClient struct {
	mu sync.Mutex

	id         string
	userID     string
	resumeErr  error
	connectErr error
	resumeErrs map[string]error
	// readyOnResume fires the ready listeners from inside UseExistingSession.
	readyOnResume bool

	nextListener int
	ready        map[int]func()
	dropped      map[int]func(error)

	Resumed     []domain.Credential
	Connects    int
	Logouts     int
	Closes      int
	RemovedAll  int
	resumeBlock chan struct{}
}

func NewFakeClient(id string) *FakeClient {
	return &FakeClient{
		id:         id,
		resumeErrs: map[string]error{},
		ready:      map[int]func(){},
		dropped:    map[int]func(error){},
	}
}

// WithResumeErrorFor fails resumes of the given token only.
func (c *FakeClient) WithResumeErrorFor(token string, err error) *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeErrs[token] = err
	return c
}

// WithAutoReady makes a successful resume adopt the credential's user id and
// fire ready.
func (c *FakeClient) WithAutoReady() *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyOnResume = true
	return c
}

func (c *FakeClient) WithResumeError(err error) *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeErr = err
	return c
}

func (c *FakeClient) WithConnectError(err error) *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
	return c
}

// WithReadyOnResume makes a successful resume resolve userID and fire ready.
func (c *FakeClient) WithReadyOnResume(userID string) *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyOnResume = true
	c.userID = userID
	return c
}

// BlockResume makes UseExistingSession wait until the returned func is called.
func (c *FakeClient) BlockResume() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	block := make(chan struct{})
	c.resumeBlock = block
	var once sync.Once
	return func() { once.Do(func() { close(block) }) }
}

func (c *FakeClient) ID() string {
	return c.id
}

func (c *FakeClient) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *FakeClient) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

func (c *FakeClient) UseExistingSession(ctx context.Context, credential domain.Credential) error {
	c.mu.Lock()
	c.Resumed = append(c.Resumed, credential)
	block := c.resumeBlock
	err := c.resumeErr
	if tokenErr, ok := c.resumeErrs[credential.Token]; ok {
		err = tokenErr
	}
	fireReady := c.readyOnResume && err == nil
	if fireReady && c.userID == "" {
		c.userID = credential.UserID
	}
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	if fireReady {
		c.FireReady()
	}
	return nil
}

func (c *FakeClient) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Connects++
	return c.connectErr
}

func (c *FakeClient) ConnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Connects
}

func (c *FakeClient) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Logouts++
	c.userID = ""
	return nil
}

func (c *FakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closes++
	return nil
}

func (c *FakeClient) OnReady(fn func()) ports.Unsubscribe {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.nextListener
	c.nextListener++
	c.ready[key] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.ready, key)
	}
}

func (c *FakeClient) OnDropped(fn func(error)) ports.Unsubscribe {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.nextListener
	c.nextListener++
	c.dropped[key] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.dropped, key)
	}
}

func (c *FakeClient) RemoveAllListeners() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RemovedAll++
	c.ready = map[int]func(){}
	c.dropped = map[int]func(error){}
}

func (c *FakeClient) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready) + len(c.dropped)
}

func (c *FakeClient) FireReady() {
	c.mu.Lock()
	listeners := make([]func(), 0, len(c.ready))
	for _, fn := range c.ready {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (c *FakeClient) FireDropped(err error) {
	c.mu.Lock()
	listeners := make([]func(error), 0, len(c.dropped))
	for _, fn := range c.dropped {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(err)
	}
}

// FakeFactory hands out queued clients in order, then fresh ones.
type FakeFactory struct {
	mu      sync.Mutex
	queue   []*FakeClient
	Created []*FakeClient
	Options []ports.ClientOptions
	// OnCreate configures every client handed out after the queue is empty.
	OnCreate func(client *FakeClient)
}

func NewFakeFactory(clients ...*FakeClient) *FakeFactory {
	return &FakeFactory{queue: clients}
}

func (f *FakeFactory) NewClient(opts ports.ClientOptions) ports.RealtimeClient {
	f.mu.Lock()
	defer f.mu.Unlock()

	var client *FakeClient
	if len(f.queue) > 0 {
		client = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		client = NewFakeClient(fmt.Sprintf("fake-client-%d", len(f.Created)+1))
		if f.OnCreate != nil {
			f.OnCreate(client)
		}
	}
	f.Created = append(f.Created, client)
	f.Options = append(f.Options, opts)
	return client
}

// ClientFor returns the most recent client that resumed a session for id.
func (f *FakeFactory) ClientFor(id domain.AccountID) *FakeClient {
	f.mu.Lock()
	created := append([]*FakeClient(nil), f.Created...)
	f.mu.Unlock()

	for i := len(created) - 1; i >= 0; i-- {
		client := created[i]
		client.mu.Lock()
		resumed := append([]domain.Credential(nil), client.Resumed...)
		client.mu.Unlock()
		for _, credential := range resumed {
			if credential.AccountID == id {
				return client
			}
		}
	}
	return nil
}

func (f *FakeFactory) OptionsSnapshot() []ports.ClientOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.ClientOptions(nil), f.Options...)
}

func (f *FakeFactory) CreatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Created)
}
