package devauth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/ports"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	prov, err := NewProvider(Config{Users: []User{
		{Email: "Prof@Example.com", Role: domainauth.RoleFaculty, PasswordHash: string(hash)},
		{Email: "student@example.com", Name: "Sam", Role: domainauth.RoleStudent, PasswordHash: "plain-pass"},
	}})
	require.NoError(t, err)
	return prov
}

func TestProvider_Authenticate(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	g, err := prov.Authenticate(ctx, ports.Credentials{Email: "prof@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.True(t, g.Valid())
	assert.Equal(t, domainauth.RoleFaculty, g.User.Role)
	assert.Equal(t, "prof", g.User.Name)
	assert.True(t, strings.HasPrefix(g.Token, "dev-"))

	g2, err := prov.Authenticate(ctx, ports.Credentials{Email: "student@example.com", Password: "plain-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", g2.User.Name)
	assert.NotEqual(t, g.Token, g2.Token)
}

func TestProvider_AuthenticateRejects(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	_, err := prov.Authenticate(ctx, ports.Credentials{Email: "prof@example.com", Password: "nope"})
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = prov.Authenticate(ctx, ports.Credentials{Email: "ghost@example.com", Password: "s3cret"})
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestProvider_Register(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	reg := ports.Registration{Email: "new@example.com", Password: "pw", Role: "student"}
	require.NoError(t, prov.Register(ctx, reg))
	assert.True(t, apperrors.IsConflict(prov.Register(ctx, reg)))
	assert.True(t, apperrors.IsValidation(prov.Register(ctx, ports.Registration{Email: "x@example.com"})))

	g, err := prov.Authenticate(ctx, ports.Credentials{Email: "new@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStudent, g.User.Role)
}

func TestProvider_BeginAndExchange(t *testing.T) {
	prov := newTestProvider(t)
	url, state, nonce, err := prov.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/auth/callback?"))
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)

	id, tok, err := prov.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	require.NoError(t, err)
	assert.Equal(t, "prof@example.com", id.Email)
	assert.Equal(t, []string{"FACULTY"}, id.Groups)
	assert.NotEmpty(t, tok)
}

func TestParseUsers(t *testing.T) {
	users, err := ParseUsers([]string{"a@example.com:faculty:pw", " ", "b@example.com:STUDENT:$2a$10$abc"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, domainauth.RoleFaculty, users[0].Role)
	assert.Equal(t, "$2a$10$abc", users[1].PasswordHash)

	_, err = ParseUsers([]string{"broken"})
	assert.Error(t, err)
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)

	_, err = NewProvider(Config{Users: []User{{Email: "a@example.com", PasswordHash: "pw"}}, OAuthEmail: "b@example.com"})
	assert.Error(t, err)
}
