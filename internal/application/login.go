package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/chatctl/internal/domain"
)

// Login authenticates with a password, answering MFA challenges through the
// prompter until the server accepts or the user cancels. On success the new
// credential is registered as a session and persisted once it resumes.
func (c *Controller) Login(ctx context.Context, req LoginRequest) (domain.Credential, error) {
	friendlyName := req.FriendlyName
	if friendlyName == "" {
		friendlyName = c.friendlyName
	}

	resp, err := c.api.Login(ctx, domain.LoginData{
		Email:        req.Email,
		Password:     req.Password,
		FriendlyName: friendlyName,
	})
	if err != nil {
		return domain.Credential{}, fmt.Errorf("login: %w", err)
	}

	var (
		attempt int
		lastErr error
	)
	for resp.Result == domain.LoginResultMFA {
		attempt++
		answer, err := c.prompter.Prompt(ctx, domain.MFAChallenge{
			Ticket:         resp.Ticket,
			AllowedMethods: resp.AllowedMethods,
			Attempt:        attempt,
			LastErr:        lastErr,
		})
		if err != nil {
			return domain.Credential{}, fmt.Errorf("prompt mfa: %w", err)
		}
		if answer == nil {
			c.logger.Info("mfa cancelled", "attempt", attempt)
			return domain.Credential{}, domain.ErrMFACancelled
		}

		if c.mfaLimiter != nil {
			if err := c.mfaLimiter.Wait(ctx); err != nil {
				return domain.Credential{}, fmt.Errorf("wait for mfa slot: %w", err)
			}
		}

		next, err := c.api.Login(ctx, domain.LoginData{
			MFATicket:    resp.Ticket,
			MFAResponse:  answer,
			FriendlyName: friendlyName,
		})
		if errors.Is(err, domain.ErrInvalidMFACode) {
			c.logger.Warn("mfa code rejected", "attempt", attempt, "method", string(answer.Method()))
			lastErr = err
			continue
		}
		if err != nil {
			return domain.Credential{}, fmt.Errorf("submit mfa: %w", err)
		}
		resp = next
		lastErr = nil
	}

	switch resp.Result {
	case domain.LoginResultDisabled:
		c.notifier.AccountDisabled(req.Email)
		return domain.Credential{}, domain.ErrAccountDisabled
	case domain.LoginResultSuccess:
	default:
		return domain.Credential{}, fmt.Errorf("login: unexpected result %q", resp.Result)
	}

	credential := domain.Credential{
		AccountID: domain.AccountID(resp.UserID),
		UserID:    resp.UserID,
		Name:      resp.Name,
		Token:     resp.Token,
	}
	if credential.Name == "" {
		credential.Name = req.Email
	}
	if _, err := c.AddSession(ctx, credential, domain.OriginNew); err != nil {
		return domain.Credential{}, err
	}

	c.logger.Info("login accepted", "account_id", string(credential.AccountID))
	return credential, nil
}
