package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

var _ ports.CredentialStore = (*CredentialService)(nil)

// CredentialService stores account records in the repository and their
// session tokens in the secret store.
type CredentialService struct {
	repo   ports.AccountRepository
	store  ports.SecretStore
	clock  ports.Clock
	logger *slog.Logger
}

func NewCredentialService(repo ports.AccountRepository, store ports.SecretStore, clock ports.Clock, logger *slog.Logger) *CredentialService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &CredentialService{
		repo:   repo,
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// SecretKey is the secret store key holding the session token of id.
func SecretKey(id domain.AccountID) string {
	return fmt.Sprintf("chatctl/%s/session_token", id)
}

func (s *CredentialService) List(ctx context.Context) ([]domain.Credential, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	credentials := make([]domain.Credential, 0, len(accounts))
	for _, account := range accounts {
		if account.SecretRef == "" {
			continue
		}
		token, err := s.store.Get(ctx, account.SecretRef)
		if err != nil {
			if !errors.Is(err, domain.ErrSecretNotFound) {
				return nil, fmt.Errorf("get session token for account %s: %w", account.ID, err)
			}
			s.logger.Warn("session token missing, skipping account", "account_id", string(account.ID))
			continue
		}

		credentials = append(credentials, domain.Credential{
			AccountID: account.ID,
			UserID:    account.UserID,
			Name:      account.Name,
			Token:     token,
		})
	}

	return credentials, nil
}

func (s *CredentialService) Save(ctx context.Context, credential domain.Credential) error {
	if !credential.Valid() {
		return errors.New("credential requires an account id and a token")
	}

	account, err := s.repo.GetByID(ctx, credential.AccountID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: credential.AccountID, CreatedAt: s.clock.Now()}
	}
	originalAccount := account
	secretKey := SecretKey(credential.AccountID)

	if err := s.store.Put(ctx, secretKey, credential.Token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}

	account.UserID = credential.UserID
	account.SecretRef = secretKey
	if credential.Name != "" {
		account.Name = credential.Name
	}

	if err := s.repo.Save(ctx, account); err != nil {
		if originalAccount.SecretRef == secretKey {
			return fmt.Errorf("save account: %w", err)
		}
		if rollbackErr := s.store.Delete(ctx, secretKey); rollbackErr != nil {
			return fmt.Errorf("save account and rollback stored token: %w", errors.Join(err, rollbackErr))
		}

		return fmt.Errorf("save account: %w", err)
	}

	previous := originalAccount.SecretRef
	if previous == "" || previous == secretKey {
		return nil
	}
	if err := s.store.Delete(ctx, previous); err != nil {
		var rollbackErr error
		if restoreErr := s.repo.Save(ctx, originalAccount); restoreErr != nil {
			rollbackErr = errors.Join(rollbackErr, restoreErr)
		}
		if newSecretDeleteErr := s.store.Delete(ctx, secretKey); newSecretDeleteErr != nil {
			rollbackErr = errors.Join(rollbackErr, newSecretDeleteErr)
		}
		if rollbackErr != nil {
			return fmt.Errorf("delete previous session token and rollback account update: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("delete previous session token: %w", err)
	}

	return nil
}

// Forget removes the account record and its token. Forgetting an unknown
// account is not an error.
func (s *CredentialService) Forget(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("get account by id: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if account.SecretRef != "" {
		if err := s.store.Delete(ctx, account.SecretRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			if restoreErr := s.repo.Save(ctx, account); restoreErr != nil {
				return fmt.Errorf("delete session token and restore account: %w", errors.Join(err, restoreErr))
			}
			return fmt.Errorf("delete session token: %w", err)
		}
	}

	current, err := s.repo.Current(ctx)
	if err != nil {
		return fmt.Errorf("get current account: %w", err)
	}
	if current == id {
		if err := s.repo.SetCurrent(ctx, ""); err != nil {
			return fmt.Errorf("clear current account: %w", err)
		}
	}

	return nil
}

func (s *CredentialService) Current(ctx context.Context) (domain.AccountID, error) {
	id, err := s.repo.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("get current account: %w", err)
	}
	return id, nil
}

func (s *CredentialService) SetCurrent(ctx context.Context, id domain.AccountID) error {
	if err := s.repo.SetCurrent(ctx, id); err != nil {
		return fmt.Errorf("set current account: %w", err)
	}
	return nil
}

// Accounts lists the stored account records.
func (s *CredentialService) Accounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
