package ports

import (
	"context"

	"github.com/bnema/chatctl/internal/domain"
)

// Unsubscribe removes a listener. Calling it more than once is a no-op.
type Unsubscribe func()

// RealtimeClient is one live protocol connection for one account.
type RealtimeClient interface {
	ID() string
	UserID() string
	UseExistingSession(ctx context.Context, credential domain.Credential) error
	Connect(ctx context.Context) error
	Logout(ctx context.Context) error
	Close() error
	OnReady(fn func()) Unsubscribe
	OnDropped(fn func(err error)) Unsubscribe
	RemoveAllListeners()
}

type ClientOptions struct {
	WebsocketURL string
	// AutoReconnect is always false for session-owned clients; the session
	// drives reconnects itself.
	AutoReconnect bool
}

type ClientFactory interface {
	NewClient(opts ClientOptions) RealtimeClient
}

type ClientFactoryFunc func(opts ClientOptions) RealtimeClient

func (f ClientFactoryFunc) NewClient(opts ClientOptions) RealtimeClient {
	return f(opts)
}
