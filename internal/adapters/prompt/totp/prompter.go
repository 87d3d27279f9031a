package totp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

// maxAttempts bounds automatic answers per ticket. A second attempt covers a
// code generated at the edge of its period.
const maxAttempts = 2

var ErrMethodNotAllowed = errors.New("totp not allowed for this challenge")

// Prompter answers TOTP challenges from a shared secret. Challenges that do
// not allow TOTP go to Fallback when set.
type Prompter struct {
	Secret   string
	Clock    ports.Clock
	Fallback ports.MFAPrompter
}

var _ ports.MFAPrompter = Prompter{}

func (p Prompter) Prompt(ctx context.Context, challenge domain.MFAChallenge) (*domain.MFAResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(challenge.AllowedMethods) > 0 && !slices.Contains(challenge.AllowedMethods, domain.MFAMethodTOTP) {
		if p.Fallback != nil {
			return p.Fallback.Prompt(ctx, challenge)
		}
		return nil, ErrMethodNotAllowed
	}

	if challenge.Attempt > maxAttempts {
		return nil, nil
	}

	code, err := totp.GenerateCode(normalizeSecret(p.Secret), p.now())
	if err != nil {
		return nil, fmt.Errorf("generate totp code: %w", err)
	}

	return &domain.MFAResponse{TOTPCode: code}, nil
}

func (p Prompter) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

// normalizeSecret accepts secrets as shown by authenticator setup pages,
// grouped with spaces and in lower case.
func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}
