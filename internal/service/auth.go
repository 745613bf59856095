package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/ports"
)

// minPasswordLen applies to sign-up only; sign-in defers to the authenticator.
const minPasswordLen = 8

// SessionWriter is the part of a client session the auth flows mutate.
type SessionWriter interface {
	LoginSuccess(ctx context.Context, user domainauth.User, token string) error
	Logout(ctx context.Context) error
}

// OAuthOptions enables the redirect-based sign-in flow.
type OAuthOptions struct {
	Provider ports.AuthProvider
	Roles    ports.RoleMapper
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Authenticator ports.CredentialAuthenticator // Required
	Registrar     ports.Registrar               // Optional: sign-up disabled when nil
	OAuth         *OAuthOptions                 // Optional
}

// AuthService orchestrates sign-in, sign-up and sign-out against a client session.
type AuthService struct {
	authenticator ports.CredentialAuthenticator
	registrar     ports.Registrar
	oauth         *OAuthOptions
}

// ErrSignUpDisabled is returned by Register when no registrar is configured.
var ErrSignUpDisabled = apperrors.Forbidden("Sign up is not available")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Authenticator == nil {
		panic("AuthService requires an Authenticator")
	}
	if opts.OAuth != nil && (opts.OAuth.Provider == nil || opts.OAuth.Roles == nil) {
		panic("AuthService OAuth requires Provider and Roles")
	}
	return &AuthService{
		authenticator: opts.Authenticator,
		registrar:     opts.Registrar,
		oauth:         opts.OAuth,
	}
}

// OAuthEnabled reports whether BeginLogin/CompleteLogin are available.
func (s *AuthService) OAuthEnabled() bool { return s.oauth != nil }

// SignUpEnabled reports whether Register is available.
func (s *AuthService) SignUpEnabled() bool { return s.registrar != nil }

// SignIn authenticates credentials and records the grant in sess.
func (s *AuthService) SignIn(ctx context.Context, sess SessionWriter, creds ports.Credentials) (domainauth.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return domainauth.User{}, apperrors.Validation("Email and password are required")
	}

	grant, err := s.authenticator.Authenticate(ctx, creds)
	if err != nil {
		return domainauth.User{}, upstreamError(err, "Sign in failed")
	}
	if !grant.Valid() {
		return domainauth.User{}, apperrors.Internal("Sign in returned an incomplete session")
	}
	if err := sess.LoginSuccess(ctx, grant.User, grant.Token); err != nil {
		return domainauth.User{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "Could not save your session")
	}
	return grant.User, nil
}

// SignOut clears sess. Memory is always cleared; a durable storage failure is
// still reported.
func (s *AuthService) SignOut(ctx context.Context, sess SessionWriter) error {
	if err := sess.Logout(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "Signed out, but the saved session could not be removed")
	}
	return nil
}

// Register validates and submits a sign-up.
func (s *AuthService) Register(ctx context.Context, r ports.Registration) error {
	if s.registrar == nil {
		return ErrSignUpDisabled
	}
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		return apperrors.ValidationField("email", "Enter a valid email address")
	}
	if len(r.Password) < minPasswordLen {
		return apperrors.ValidationField("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	role := domainauth.ParseRole(r.Role)
	if !role.IsFaculty() && !role.IsStudent() {
		return apperrors.ValidationField("role", "Choose faculty or student")
	}
	r.Role = string(role)

	if err := s.registrar.Register(ctx, r); err != nil {
		return upstreamError(err, "Sign up failed")
	}
	return nil
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates the OAuth flow.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.oauth == nil {
		return nil, apperrors.NotFound("OAuth sign-in is not enabled")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.oauth.Provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the code, maps the IdP groups to a role and records
// the session.
func (s *AuthService) CompleteLogin(ctx context.Context, sess SessionWriter, in CompleteLoginInput) (domainauth.User, error) {
	if s.oauth == nil {
		return domainauth.User{}, apperrors.NotFound("OAuth sign-in is not enabled")
	}
	if in.Code == "" || in.State == "" || in.Nonce == "" {
		return domainauth.User{}, apperrors.Validation("Sign-in response was incomplete")
	}

	identity, token, err := s.oauth.Provider.Exchange(ctx, ports.ExchangeInput(in))
	if err != nil {
		return domainauth.User{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Sign in failed")
	}

	user := domainauth.User{
		Email: identity.Email,
		Name:  identity.Name,
		Role:  s.oauth.Roles.Map(identity.Groups),
	}
	if err := sess.LoginSuccess(ctx, user, token); err != nil {
		return domainauth.User{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "Could not save your session")
	}
	return user, nil
}
