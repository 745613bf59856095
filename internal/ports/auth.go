package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
)

// BeginInput carries inputs for initiating a redirect-based auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes a redirect-based flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the
	// authenticated identity together with the bearer token to forward to the backend.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, string, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// Credentials are the email/password pair submitted on the sign-in form.
type Credentials struct {
	Email    string
	Password string
}

// Registration carries the sign-up form.
type Registration struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CredentialAuthenticator exchanges credentials for a grant.
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, c Credentials) (domainauth.Grant, error)
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, r Registration) error
}

// RoleMapper maps provider groups to platform roles.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
