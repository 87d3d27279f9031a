package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrSecretNotFound    = errors.New("secret not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMFACancelled      = errors.New("mfa cancelled")
	ErrInvalidMFACode    = errors.New("invalid mfa code")
	ErrAccountDisabled   = errors.New("account disabled")
	ErrInvalidTransition = errors.New("invalid session transition")
)

// InvalidTransitionError reports an event applied to a session whose state is
// outside the event's valid set.
type InvalidTransitionError struct {
	Event    string
	Required []string
	Actual   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: expected state %s, got %s", e.Event, strings.Join(e.Required, "|"), e.Actual)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
