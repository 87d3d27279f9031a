package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

const (
	AccountsPathKey    = "accounts.path"
	accountsFileMode   = 0o600
	accountsDirMode    = 0o700
	accountsConfigDir  = ".chatctl"
	accountsConfigFile = "accounts.toml"
	tempFilePattern    = ".accounts-*.toml.tmp"
)

type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountRepository = (*Repository)(nil)

// NewRepository stores accounts at the accounts.path setting of cfg, or
// ~/.chatctl/accounts.toml.
func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(AccountsPathKey, filepath.Join(homeDir, accountsConfigDir, accountsConfigFile))

	accountsPath := cfg.GetString(AccountsPathKey)
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}
	accountsPath, err = normalizeAccountsPath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

// Path is the accounts file location.
func (r *Repository) Path() string {
	return r.accountsPath
}

// view runs fn on a snapshot of the accounts file under the read lock.
func (r *Repository) view(ctx context.Context, fn func(file fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	return fn(file)
}

// update lets fn edit the accounts file under the write lock and writes the
// result back when fn reports a change.
func (r *Repository) update(ctx context.Context, fn func(file *fileSchema) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	changed, err := fn(&file)
	if err != nil || !changed {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.writeSchema(file)
}

// Save inserts account or replaces the record with the same id in place.
func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if account.ID == "" {
		return errors.New("account id is required")
	}

	encoded := toSchema(account)
	return r.update(ctx, func(file *fileSchema) (bool, error) {
		if i := file.indexOf(encoded.ID); i >= 0 {
			file.Accounts[i] = encoded
		} else {
			file.Accounts = append(file.Accounts, encoded)
		}
		return true, nil
	})
}

// Delete removes the account and clears the current selection when it
// pointed at it.
func (r *Repository) Delete(ctx context.Context, id domain.AccountID) error {
	return r.update(ctx, func(file *fileSchema) (bool, error) {
		i := file.indexOf(string(id))
		if i < 0 {
			return false, domain.ErrAccountNotFound
		}
		file.Accounts = slices.Delete(file.Accounts, i, i+1)
		if file.Current == string(id) {
			file.Current = ""
		}
		return true, nil
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	var account domain.Account
	err := r.view(ctx, func(file fileSchema) error {
		i := file.indexOf(string(id))
		if i < 0 {
			return domain.ErrAccountNotFound
		}
		account = fromSchema(file.Accounts[i])
		return nil
	})
	return account, err
}

// List returns the accounts in file order.
func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.view(ctx, func(file fileSchema) error {
		accounts = make([]domain.Account, 0, len(file.Accounts))
		for _, entry := range file.Accounts {
			accounts = append(accounts, fromSchema(entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Current returns the stored active account. A current id that no longer
// names an account reads as empty.
func (r *Repository) Current(ctx context.Context) (domain.AccountID, error) {
	var current domain.AccountID
	err := r.view(ctx, func(file fileSchema) error {
		if file.hasAccount(file.Current) {
			current = domain.AccountID(file.Current)
		}
		return nil
	})
	return current, err
}

// SetCurrent records id as the active account. An empty id clears it.
func (r *Repository) SetCurrent(ctx context.Context, id domain.AccountID) error {
	return r.update(ctx, func(file *fileSchema) (bool, error) {
		if id != "" && !file.hasAccount(string(id)) {
			return false, fmt.Errorf("set current account %s: %w", id, domain.ErrAccountNotFound)
		}
		if file.Current == string(id) {
			return false, nil
		}
		file.Current = string(id)
		return true, nil
	})
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeAccountsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// writeSchema replaces the accounts file atomically through a temp file in
// the same directory.
func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.accountsPath), accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.accountsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp accounts file: %w", err)
	}

	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp accounts file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp accounts file: %w", err)
	}

	if err := os.Rename(tempName, r.accountsPath); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:        string(account.ID),
		Name:      account.Name,
		UserID:    account.UserID,
		SecretRef: account.SecretRef,
		CreatedAt: formatTime(account.CreatedAt),
	}
}

func fromSchema(account accountSchema) domain.Account {
	return domain.Account{
		ID:        domain.AccountID(account.ID),
		Name:      account.Name,
		UserID:    account.UserID,
		SecretRef: account.SecretRef,
		CreatedAt: parseTime(account.CreatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
