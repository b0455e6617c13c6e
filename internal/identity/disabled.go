package identity

import "context"

// Disabled is the single-authority mode: every call succeeds without side
// effects, so the primary credential store is the only identity system.
// This is the default when no provider API key is configured.
type Disabled struct{}

func NewDisabled() Disabled { return Disabled{} }

func (Disabled) SignUp(context.Context, string, string) (string, error) { return "", nil }

func (Disabled) SignIn(context.Context, string, string) (string, error) { return "", nil }

func (Disabled) UpdatePassword(context.Context, string, string, string) error { return nil }

func (Disabled) Delete(context.Context, string, string) error { return nil }

func (Disabled) Enabled() bool { return false }
