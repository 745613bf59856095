package backend

import (
	"context"
	"errors"
	"net/http"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/ports"
)

var (
	_ ports.CredentialAuthenticator = (*Client)(nil)
	_ ports.Registrar               = (*Client)(nil)
)

// ErrIncompleteLogin is returned when the backend accepts credentials but
// omits the token or the user.
var ErrIncompleteLogin = errors.New("backend: login response missing token or user")

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	User        struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	} `json:"user"`
}

// Authenticate signs in with email and password.
func (c *Client) Authenticate(ctx context.Context, cr ports.Credentials) (domainauth.Grant, error) {
	in := map[string]string{"email": cr.Email, "password": cr.Password}
	var out loginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/login", in, &out); err != nil {
		return domainauth.Grant{}, err
	}

	tok := out.AccessToken
	if tok == "" {
		tok = out.Token
	}
	grant := domainauth.Grant{
		Token: tok,
		User: domainauth.User{
			Email: out.User.Email,
			Name:  out.User.Name,
			Role:  domainauth.ParseRole(out.User.Role),
		},
	}
	if grant.User.Email == "" {
		grant.User.Email = cr.Email
	}
	if !grant.Valid() {
		return domainauth.Grant{}, ErrIncompleteLogin
	}
	return grant, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, r ports.Registration) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/register", r, nil)
}
