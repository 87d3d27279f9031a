package ports

import (
	"context"

	"github.com/bnema/chatctl/internal/domain"
)

// MFAPrompter asks the user to answer an MFA challenge. A nil response with a
// nil error means the user abandoned the prompt.
type MFAPrompter interface {
	Prompt(ctx context.Context, challenge domain.MFAChallenge) (*domain.MFAResponse, error)
}

type Notifier interface {
	SignedOut(id domain.AccountID)
	Error(id domain.AccountID, err error)
	AccountDisabled(email string)
}

// NetworkMonitor reports host connectivity.
type NetworkMonitor interface {
	Online() bool
	Subscribe(fn func(online bool)) Unsubscribe
}

// AccountScopedCache holds data that is only valid for the current account.
type AccountScopedCache interface {
	Reset()
}
