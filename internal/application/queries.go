package application

import (
	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/session"
)

type ConfigStatus string

const (
	ConfigPending ConfigStatus = "pending"
	ConfigReady   ConfigStatus = "ready"
)

// SessionStatus is a point-in-time view of one session.
type SessionStatus struct {
	AccountID domain.AccountID
	Name      string
	UserID    string
	State     session.State
	Ready     bool
	Active    bool
}

type Status struct {
	Sessions     []SessionStatus
	Current      domain.AccountID
	ConfigStatus ConfigStatus
	Server       *domain.ServerConfig
}
