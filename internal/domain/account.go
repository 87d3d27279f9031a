package domain

import "time"

type AccountID string

// Account is the persisted record of a signed-in account. The session token
// itself lives in the secret store under SecretRef.
type Account struct {
	ID        AccountID
	Name      string
	UserID    string
	SecretRef string
	CreatedAt time.Time
}

// Credential is everything needed to resume a session without a password.
type Credential struct {
	AccountID AccountID
	UserID    string
	Name      string
	Token     string
}

func (c Credential) Valid() bool {
	return c.AccountID != "" && c.Token != ""
}

// SessionOrigin tags how a session entered the controller. It only feeds
// logging and notifications.
type SessionOrigin string

const (
	OriginExisting SessionOrigin = "existing"
	OriginNew      SessionOrigin = "new"
)
