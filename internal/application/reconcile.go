package application

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/chatctl/internal/domain"
)

// ReconcileResult lists what Reconcile changed.
type ReconcileResult struct {
	Added   []domain.AccountID
	Removed []domain.AccountID
}

func (r ReconcileResult) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// Reconcile aligns the session set with the credential store after another
// process changed it. Stored credentials without a matching session are
// hydrated, and sessions whose persisted credential disappeared are logged
// out. Sessions from a login that was not saved yet are left alone.
func (c *Controller) Reconcile(ctx context.Context) (ReconcileResult, error) {
	stored, err := c.credentials.List(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load credentials: %w", err)
	}

	byID := make(map[domain.AccountID]domain.Credential, len(stored))
	for _, credential := range stored {
		byID[credential.AccountID] = credential
	}

	var (
		result ReconcileResult
		add    []domain.Credential
	)
	c.mu.RLock()
	for id, credential := range byID {
		known, ok := c.creds[id]
		if !ok || known.Token != credential.Token {
			add = append(add, credential)
		}
	}
	for id := range c.sessions {
		if _, ok := byID[id]; !ok && c.persisted[id] {
			result.Removed = append(result.Removed, id)
		}
	}
	c.mu.RUnlock()

	for _, id := range result.Removed {
		c.Logout(ctx, id)
	}

	var errs []error
	for _, credential := range add {
		if _, err := c.AddSession(ctx, credential, domain.OriginExisting); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Added = append(result.Added, credential.AccountID)
	}

	slices.Sort(result.Added)
	slices.Sort(result.Removed)
	if err := errors.Join(errs...); err != nil {
		return result, fmt.Errorf("reconcile sessions: %w", err)
	}

	if !result.Empty() {
		c.logger.Info("sessions reconciled", "added", len(result.Added), "removed", len(result.Removed))
	}
	return result, nil
}
