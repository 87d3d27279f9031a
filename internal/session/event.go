package session

import "github.com/bnema/chatctl/internal/domain"

// Event is one of Login, Success, Disconnect, Retry, Logout, Offline or Online.
type Event interface {
	Name() string
	sessionEvent()
}

// Login resumes an authenticated session with Credential.
type Login struct {
	Credential domain.Credential
	Origin     domain.SessionOrigin
}

// Success is raised by the client once it is ready.
type Success struct{}

// Disconnect is raised by the client when its transport drops.
type Disconnect struct{}

// Retry asks the owned client to reconnect.
type Retry struct{}

type Logout struct{}

// Offline and Online mirror host connectivity changes.
type Offline struct{}

type Online struct{}

func (Login) Name() string      { return "LOGIN" }
func (Success) Name() string    { return "SUCCESS" }
func (Disconnect) Name() string { return "DISCONNECT" }
func (Retry) Name() string      { return "RETRY" }
func (Logout) Name() string     { return "LOGOUT" }
func (Offline) Name() string    { return "OFFLINE" }
func (Online) Name() string     { return "ONLINE" }

func (Login) sessionEvent()      {}
func (Success) sessionEvent()    {}
func (Disconnect) sessionEvent() {}
func (Retry) sessionEvent()      {}
func (Logout) sessionEvent()     {}
func (Offline) sessionEvent()    {}
func (Online) sessionEvent()     {}
