package application

import (
	"io"
	"log/slog"
)

// LoginRequest starts a password login. FriendlyName overrides the device
// name reported to the server.
type LoginRequest struct {
	Email        string
	Password     string
	FriendlyName string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
