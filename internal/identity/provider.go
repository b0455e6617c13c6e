package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials means the provider rejected the email/password pair.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrUserNotFound means no provider account exists for the email.
	ErrUserNotFound = errors.New("identity: user not found")

	ErrEmailExists = errors.New("identity: email already exists")

	ErrUnavailable = errors.New("identity: provider unavailable")
)

// Provider is the secondary identity authority. The primary credential store
// stays authoritative; this runs alongside it when dual-provider mode is on.
type Provider interface {
	// SignUp creates a provider account and returns its opaque provider id.
	SignUp(ctx context.Context, email, password string) (string, error)

	// SignIn authenticates against the provider.
	SignIn(ctx context.Context, email, password string) (string, error)

	// UpdatePassword sets a new password for the account. currentPassword is
	// needed because the provider requires a fresh sign-in to change it.
	UpdatePassword(ctx context.Context, email, currentPassword, newPassword string) error

	// Delete removes the provider account. Used as the compensation step when
	// the primary store write fails after a successful SignUp.
	Delete(ctx context.Context, email, password string) error

	// Enabled reports whether calls reach a real provider.
	Enabled() bool
}
