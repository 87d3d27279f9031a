package ports

import (
	"context"

	"github.com/bnema/chatctl/internal/domain"
)

// API is the unauthenticated HTTP surface of the chat server.
type API interface {
	Login(ctx context.Context, data domain.LoginData) (domain.LoginResponse, error)
	FetchConfig(ctx context.Context) (domain.ServerConfig, error)
	Logout(ctx context.Context, credential domain.Credential) error
}
