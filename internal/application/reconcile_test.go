package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/chatctl/internal/domain"
)

func TestReconcileAddsAndRemovesSessions(t *testing.T) {
	h := newControllerHarness(t)
	require.NoError(t, h.ctrl.Hydrate(context.Background(), []domain.Credential{credential("u-1"), credential("u-2")}))
	h.ctrl.Wait()

	h.creds.EXPECT().List(mock.Anything).Return([]domain.Credential{credential("u-2"), credential("u-3")}, nil).Once()

	result, err := h.ctrl.Reconcile(context.Background())
	require.NoError(t, err)
	h.ctrl.Wait()

	assert.Equal(t, []domain.AccountID{"u-3"}, result.Added)
	assert.Equal(t, []domain.AccountID{"u-1"}, result.Removed)
	assert.Equal(t, []domain.AccountID{"u-2", "u-3"}, sessionIDs(h.ctrl.Sessions()))
	assert.Equal(t, domain.AccountID("u-2"), h.ctrl.Current())
	assertCurrentInvariant(t, h.ctrl)
}

func TestReconcileIsNoOpWhenInSync(t *testing.T) {
	h := newControllerHarness(t)
	require.NoError(t, h.ctrl.Hydrate(context.Background(), []domain.Credential{credential("u-1")}))
	h.ctrl.Wait()
	created := h.factory.CreatedCount()

	h.creds.EXPECT().List(mock.Anything).Return([]domain.Credential{credential("u-1")}, nil).Once()

	result, err := h.ctrl.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, created, h.factory.CreatedCount())
}

func TestReconcileReplacesSessionWithNewToken(t *testing.T) {
	h := newControllerHarness(t)
	require.NoError(t, h.ctrl.Hydrate(context.Background(), []domain.Credential{credential("u-1")}))
	h.ctrl.Wait()

	rotated := credential("u-1")
	rotated.Token = "tok-rotated"
	h.creds.EXPECT().List(mock.Anything).Return([]domain.Credential{rotated}, nil).Once()

	result, err := h.ctrl.Reconcile(context.Background())
	require.NoError(t, err)
	h.ctrl.Wait()

	assert.Equal(t, []domain.AccountID{"u-1"}, result.Added)
	assert.Empty(t, result.Removed)
	assert.Equal(t, 2, h.factory.CreatedCount())
	assert.True(t, h.ctrl.IsReady())
}

func TestReconcileKeepsUnsavedLogin(t *testing.T) {
	h := newControllerHarness(t)
	saveErr := errors.New("disk full")
	h.creds.EXPECT().Save(mock.Anything, mock.Anything).Return(saveErr).Once()
	h.notifier.EXPECT().Error(domain.AccountID("u-1"), saveErr).Once()

	_, err := h.ctrl.AddSession(context.Background(), credential("u-1"), domain.OriginNew)
	require.NoError(t, err)
	h.ctrl.Wait()

	h.creds.EXPECT().List(mock.Anything).Return(nil, nil).Once()

	result, err := h.ctrl.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, []domain.AccountID{"u-1"}, sessionIDs(h.ctrl.Sessions()))
}

func TestReconcileRemovesSavedLoginForgottenElsewhere(t *testing.T) {
	h := newControllerHarness(t)
	h.creds.EXPECT().Save(mock.Anything, credential("u-1")).Return(nil).Once()

	_, err := h.ctrl.AddSession(context.Background(), credential("u-1"), domain.OriginNew)
	require.NoError(t, err)
	h.ctrl.Wait()

	h.creds.EXPECT().List(mock.Anything).Return(nil, nil).Once()

	result, err := h.ctrl.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.AccountID{"u-1"}, result.Removed)
	assert.False(t, h.ctrl.IsLoggedIn())
}

func TestReconcileReportsListFailure(t *testing.T) {
	h := newControllerHarness(t)
	h.creds.EXPECT().List(mock.Anything).Return(nil, errors.New("permission denied")).Once()

	_, err := h.ctrl.Reconcile(context.Background())
	require.ErrorContains(t, err, "load credentials")
}
