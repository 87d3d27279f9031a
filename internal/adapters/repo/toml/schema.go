package toml

import (
	"fmt"
	"slices"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Current  string          `toml:"current,omitempty"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// indexOf returns the position of the account with id, or -1.
func (s fileSchema) indexOf(id string) int {
	return slices.IndexFunc(s.Accounts, func(entry accountSchema) bool {
		return entry.ID == id
	})
}

func (s fileSchema) hasAccount(id string) bool {
	return id != "" && s.indexOf(id) >= 0
}

type accountSchema struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	UserID    string `toml:"user_id"`
	SecretRef string `toml:"secret_ref"`
	CreatedAt string `toml:"created_at,omitempty"`
}
