package devauth

// Package devauth provides a config-driven sign-in for local development and
// offline demos (AUTH_MODE=mock). It answers credential sign-in from a fixed
// user list with bcrypt-checked passwords, accepts registrations in memory,
// and short-circuits the OAuth redirect flow.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/ports"
)

var (
	_ ports.AuthProvider            = (*Provider)(nil)
	_ ports.CredentialAuthenticator = (*Provider)(nil)
	_ ports.Registrar               = (*Provider)(nil)
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = apperrors.Unauthorized("Invalid email or password")

// User is one configured account. PasswordHash is a bcrypt hash; a value that
// is not a bcrypt hash is treated as a plaintext password and hashed on load.
type User struct {
	Email        string
	Name         string
	Role         domainauth.Role
	PasswordHash string
}

// Config controls the dev auth provider behavior.
type Config struct {
	Users []User
	// OAuthEmail selects the user returned by the short-circuited OAuth flow.
	// Defaults to the first configured user.
	OAuthEmail string
}

// Provider implements credential sign-in, registration and the OAuth port.
type Provider struct {
	mu        sync.RWMutex
	users     map[string]User
	oauthUser string
	// dummyHash keeps unknown-email checks as slow as real ones.
	dummyHash []byte
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Users) == 0 {
		return nil, errors.New("dev auth: at least one user is required")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("dev-auth-dummy"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("dev auth: %w", err)
	}
	p := &Provider{users: make(map[string]User, len(cfg.Users)), dummyHash: dummy}
	for _, u := range cfg.Users {
		u.Email = normalizeEmail(u.Email)
		if u.Email == "" {
			return nil, errors.New("dev auth: user email is required")
		}
		hash, err := ensureHash(u.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("dev auth: user %s: %w", u.Email, err)
		}
		u.PasswordHash = hash
		if u.Name == "" {
			u.Name = displayName(u.Email)
		}
		p.users[u.Email] = u
		if p.oauthUser == "" {
			p.oauthUser = u.Email
		}
	}
	if cfg.OAuthEmail != "" {
		email := normalizeEmail(cfg.OAuthEmail)
		if _, ok := p.users[email]; !ok {
			return nil, fmt.Errorf("dev auth: oauth user %s is not configured", email)
		}
		p.oauthUser = email
	}
	return p, nil
}

// ParseUsers reads "email:ROLE:password-or-bcrypt" entries.
func ParseUsers(entries []string) ([]User, error) {
	users := make([]User, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.SplitN(e, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("dev auth: malformed user entry %q", e)
		}
		users = append(users, User{
			Email:        parts[0],
			Role:         domainauth.ParseRole(parts[1]),
			PasswordHash: parts[2],
		})
	}
	return users, nil
}

// Authenticate checks the password and issues a fresh opaque token.
func (p *Provider) Authenticate(_ context.Context, c ports.Credentials) (domainauth.Grant, error) {
	p.mu.RLock()
	u, ok := p.users[normalizeEmail(c.Email)]
	p.mu.RUnlock()
	if !ok {
		_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(c.Password))
		return domainauth.Grant{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)); err != nil {
		return domainauth.Grant{}, ErrInvalidCredentials
	}
	return grantFor(u)
}

// Register adds an account. Duplicate emails conflict.
func (p *Provider) Register(_ context.Context, r ports.Registration) error {
	email := normalizeEmail(r.Email)
	if email == "" || r.Password == "" {
		return apperrors.Validation("Email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.users[email]; exists {
		return apperrors.Conflict("An account with this email already exists")
	}
	name := r.Name
	if name == "" {
		name = displayName(email)
	}
	p.users[email] = User{Email: email, Name: name, Role: domainauth.ParseRole(r.Role), PasswordHash: string(hash)}
	return nil
}

// Begin returns a local callback URL and cryptographically secure state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	// The callback handler expects GET /auth/callback?code=...&state=...
	return "/auth/callback?code=dev&state=" + state, state, nonce, nil
}

// Exchange ignores the code (state is checked by the handler) and returns the
// configured OAuth user with a fresh token.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, string, error) {
	p.mu.RLock()
	u := p.users[p.oauthUser]
	p.mu.RUnlock()

	g, err := grantFor(u)
	if err != nil {
		return domainauth.Identity{}, "", err
	}
	id := domainauth.Identity{
		Subject: "dev|" + u.Email,
		Name:    u.Name,
		Email:   u.Email,
		Groups:  []string{string(u.Role)},
	}
	return id, g.Token, nil
}

func grantFor(u User) (domainauth.Grant, error) {
	tok, err := randomString(32)
	if err != nil {
		return domainauth.Grant{}, fmt.Errorf("generate token: %w", err)
	}
	return domainauth.Grant{
		User:  domainauth.User{Email: u.Email, Name: u.Name, Role: u.Role},
		Token: "dev-" + tok,
	}, nil
}

func ensureHash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("password is required")
	}
	if _, err := bcrypt.Cost([]byte(secret)); err == nil {
		return secret, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
