package ports

import (
	"context"

	"github.com/bnema/chatctl/internal/domain"
)

// CredentialStore persists session credentials between runs.
type CredentialStore interface {
	List(ctx context.Context) ([]domain.Credential, error)
	Save(ctx context.Context, credential domain.Credential) error
	Forget(ctx context.Context, id domain.AccountID) error
	Current(ctx context.Context) (domain.AccountID, error)
	SetCurrent(ctx context.Context, id domain.AccountID) error
}
