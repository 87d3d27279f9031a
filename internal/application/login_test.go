package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bnema/chatctl/internal/domain"
)

func passwordLogin() domain.LoginData {
	return domain.LoginData{Email: "alice@example.com", Password: "hunter2", FriendlyName: "test-device"}
}

func TestLoginWithoutMFAAddsAndPersistsSession(t *testing.T) {
	h := newControllerHarness(t)
	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{
		Result: domain.LoginResultSuccess,
		UserID: "u-1",
		Token:  "tok-1",
		Name:   "alice",
	}, nil).Once()
	h.creds.EXPECT().Save(mock.Anything, domain.Credential{AccountID: "u-1", UserID: "u-1", Name: "alice", Token: "tok-1"}).Return(nil).Once()

	credential, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.NoError(t, err)
	h.ctrl.Wait()

	assert.Equal(t, domain.AccountID("u-1"), credential.AccountID)
	assert.Equal(t, domain.AccountID("u-1"), h.ctrl.Current())
	assert.True(t, h.ctrl.IsReady())
}

func TestLoginReportsPersistFailure(t *testing.T) {
	h := newControllerHarness(t)
	saveErr := errors.New("disk full")
	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{
		Result: domain.LoginResultSuccess,
		UserID: "u-1",
		Token:  "tok-1",
	}, nil).Once()
	h.creds.EXPECT().Save(mock.Anything, mock.Anything).Return(saveErr).Once()
	h.notifier.EXPECT().Error(domain.AccountID("u-1"), saveErr).Once()

	credential, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.NoError(t, err)
	h.ctrl.Wait()

	assert.Equal(t, "alice@example.com", credential.Name)
	assert.True(t, h.ctrl.IsLoggedIn())
}

func TestLoginMFACancelledAddsNoSession(t *testing.T) {
	h := newControllerHarness(t)
	methods := []domain.MFAMethod{domain.MFAMethodTOTP, domain.MFAMethodRecovery}
	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{
		Result:         domain.LoginResultMFA,
		Ticket:         "ticket-1",
		AllowedMethods: methods,
	}, nil).Once()
	h.prompter.EXPECT().Prompt(mock.Anything, domain.MFAChallenge{
		Ticket:         "ticket-1",
		AllowedMethods: methods,
		Attempt:        1,
	}).Return(nil, nil).Once()

	_, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.ErrorIs(t, err, domain.ErrMFACancelled)
	h.ctrl.Wait()

	assert.Empty(t, h.ctrl.Sessions())
	assert.Equal(t, 0, h.factory.CreatedCount())
}

func TestLoginMFARepromptsAfterRejectedCode(t *testing.T) {
	h := newControllerHarness(t)
	methods := []domain.MFAMethod{domain.MFAMethodTOTP}
	wrong := &domain.MFAResponse{TOTPCode: "000000"}
	right := &domain.MFAResponse{TOTPCode: "123456"}

	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{
		Result:         domain.LoginResultMFA,
		Ticket:         "ticket-1",
		AllowedMethods: methods,
	}, nil).Once()
	h.prompter.EXPECT().Prompt(mock.Anything, domain.MFAChallenge{
		Ticket:         "ticket-1",
		AllowedMethods: methods,
		Attempt:        1,
	}).Return(wrong, nil).Once()
	h.api.EXPECT().Login(mock.Anything, domain.LoginData{
		MFATicket:    "ticket-1",
		MFAResponse:  wrong,
		FriendlyName: "test-device",
	}).Return(domain.LoginResponse{}, domain.ErrInvalidMFACode).Once()
	h.prompter.EXPECT().Prompt(mock.Anything, domain.MFAChallenge{
		Ticket:         "ticket-1",
		AllowedMethods: methods,
		Attempt:        2,
		LastErr:        domain.ErrInvalidMFACode,
	}).Return(right, nil).Once()
	h.api.EXPECT().Login(mock.Anything, domain.LoginData{
		MFATicket:    "ticket-1",
		MFAResponse:  right,
		FriendlyName: "test-device",
	}).Return(domain.LoginResponse{
		Result: domain.LoginResultSuccess,
		UserID: "u-1",
		Token:  "tok-1",
		Name:   "alice",
	}, nil).Once()
	h.creds.EXPECT().Save(mock.Anything, domain.Credential{AccountID: "u-1", UserID: "u-1", Name: "alice", Token: "tok-1"}).Return(nil).Once()
	h.ctrl.mfaLimiter = rate.NewLimiter(rate.Inf, 1)

	_, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.NoError(t, err)
	h.ctrl.Wait()

	assert.Equal(t, []domain.AccountID{"u-1"}, sessionIDs(h.ctrl.Sessions()))
}

func TestLoginDisabledAccountNotifies(t *testing.T) {
	h := newControllerHarness(t)
	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{Result: domain.LoginResultDisabled, UserID: "u-1"}, nil).Once()
	h.notifier.EXPECT().AccountDisabled("alice@example.com").Once()

	_, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.ErrorIs(t, err, domain.ErrAccountDisabled)
	assert.Empty(t, h.ctrl.Sessions())
}

func TestLoginPropagatesAPIErrors(t *testing.T) {
	h := newControllerHarness(t)
	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{}, domain.ErrUnauthorized).Once()

	_, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, h.ctrl.Sessions())
}

func TestLoginPromptErrorAborts(t *testing.T) {
	h := newControllerHarness(t)
	promptErr := errors.New("terminal closed")
	h.api.EXPECT().Login(mock.Anything, passwordLogin()).Return(domain.LoginResponse{Result: domain.LoginResultMFA, Ticket: "ticket-1"}, nil).Once()
	h.prompter.EXPECT().Prompt(mock.Anything, mock.Anything).Return(nil, promptErr).Once()

	_, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2"})
	require.ErrorIs(t, err, promptErr)
}

func TestLoginUsesRequestFriendlyName(t *testing.T) {
	h := newControllerHarness(t)
	h.api.EXPECT().Login(mock.Anything, domain.LoginData{
		Email:        "alice@example.com",
		Password:     "hunter2",
		FriendlyName: "work laptop",
	}).Return(domain.LoginResponse{Result: "Pending"}, nil).Once()

	_, err := h.ctrl.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2", FriendlyName: "work laptop"})
	require.ErrorContains(t, err, "unexpected result")
}
