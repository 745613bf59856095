package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider            = (*MockAuthProvider)(nil)
	_ ports.CredentialAuthenticator = (*MockAuthenticator)(nil)
	_ ports.Registrar               = (*MockAuthenticator)(nil)
	_ ports.RoleMapper              = (*StaticRoleMapper)(nil)
)

// ErrBadCredentials is returned by MockAuthenticator for a wrong password.
var ErrBadCredentials = errors.New("invalid email or password")

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, string, error)

	AuthURL     string
	DefaultUser domainauth.Identity
	Token       string

	callCount int
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", m.callCount), fmt.Sprintf("nonce-%d", m.callCount), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, string, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	user := m.DefaultUser
	if user.Email == "" {
		user = domainauth.Identity{
			Subject: "mock-user-1",
			Name:    "Mock User",
			Email:   "mock.user@example.com",
			Groups:  []string{"faculty"},
		}
	}
	tok := m.Token
	if tok == "" {
		tok = "mock-token"
	}
	return user, tok, nil
}

// MockAuthenticator accepts a fixed set of users keyed by email.
type MockAuthenticator struct {
	Users      map[string]MockUser
	Registered []ports.Registration
	Err        error
}

// MockUser is one account known to MockAuthenticator.
type MockUser struct {
	Password string
	Grant    domainauth.Grant
}

func (m *MockAuthenticator) Authenticate(_ context.Context, c ports.Credentials) (domainauth.Grant, error) {
	if m.Err != nil {
		return domainauth.Grant{}, m.Err
	}
	u, ok := m.Users[c.Email]
	if !ok || u.Password != c.Password {
		return domainauth.Grant{}, ErrBadCredentials
	}
	return u.Grant, nil
}

func (m *MockAuthenticator) Register(_ context.Context, r ports.Registration) error {
	if m.Err != nil {
		return m.Err
	}
	m.Registered = append(m.Registered, r)
	return nil
}

// StaticRoleMapper maps groups by simple string membership rules.
type StaticRoleMapper struct {
	FacultyGroup string
	StudentGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.FacultyGroup != "" && g == m.FacultyGroup {
			return domainauth.RoleFaculty
		}
	}
	for _, g := range groups {
		if m.StudentGroup != "" && g == m.StudentGroup {
			return domainauth.RoleStudent
		}
	}
	return ""
}
