package config

import (
	"fmt"
	"strings"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModePassword signs users in against the backend API.
	AuthModePassword AuthMode = "password"
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "password", "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"eduassist-portal"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	Issuer       string `env:"ISSUER"`
	GroupsClaim  string `env:"GROUPS_CLAIM"  envDefault:"groups"`
	// ForwardToken picks which IdP token is stored as the backend bearer: id or access.
	ForwardToken string `env:"FORWARD_TOKEN" envDefault:"id"`
	// FacultyGroup and StudentGroup map IdP groups onto portal roles.
	FacultyGroup string `env:"FACULTY_GROUP" envDefault:"faculty"`
	StudentGroup string `env:"STUDENT_GROUP" envDefault:"students"`
}

// DevUser is one mock account, written as email:password:ROLE.
type DevUser struct {
	Email    string
	Password string
	Role     domainauth.Role
}

// UnmarshalText implements encoding.TextUnmarshaler for DevUser.
func (u *DevUser) UnmarshalText(text []byte) error {
	parts := strings.SplitN(strings.TrimSpace(string(text)), ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid dev user %q (want email:password:ROLE)", string(text))
	}
	role := domainauth.ParseRole(parts[2])
	if !role.IsFaculty() && !role.IsStudent() {
		return fmt.Errorf("invalid dev user role %q (valid options: FACULTY, STUDENT)", parts[2])
	}
	*u = DevUser{Email: strings.TrimSpace(parts[0]), Password: parts[1], Role: role}
	return nil
}

// DevAuthConfig controls mock/dev authentication identities.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Users []DevUser `env:"USERS" envDefault:"faculty@example.com:faculty:FACULTY;student@example.com:student:STUDENT" envSeparator:";"`
	// OAuthEmail selects the account returned by the short-circuited OAuth flow.
	OAuthEmail string `env:"OAUTH_EMAIL"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SignUpEnabled exposes the registration form.
	SignUpEnabled bool `env:"AUTH_SIGNUP_ENABLED" envDefault:"true"`
}

// Sanitize trims whitespace and normalises enum-like OAuth fields.
func (a *AuthConfig) Sanitize() {
	a.OAuth.Issuer = strings.TrimRight(strings.TrimSpace(a.OAuth.Issuer), "/")
	a.OAuth.RedirectURL = strings.TrimSpace(a.OAuth.RedirectURL)
	a.OAuth.GroupsClaim = strings.TrimSpace(a.OAuth.GroupsClaim)
	if a.OAuth.GroupsClaim == "" {
		a.OAuth.GroupsClaim = "groups"
	}
	switch strings.ToLower(strings.TrimSpace(a.OAuth.ForwardToken)) {
	case "access":
		a.OAuth.ForwardToken = "access"
	default:
		a.OAuth.ForwardToken = "id"
	}
	a.DevAuth.OAuthEmail = strings.TrimSpace(a.DevAuth.OAuthEmail)
}
