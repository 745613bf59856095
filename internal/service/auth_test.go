package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	apperrors "github.com/eduassist/portal/internal/errors"
	mocks "github.com/eduassist/portal/internal/mocks/auth"
	"github.com/eduassist/portal/internal/ports"
)

func newAuthenticator() *mocks.MockAuthenticator {
	return &mocks.MockAuthenticator{Users: map[string]mocks.MockUser{
		"prof@example.edu": {
			Password: "secret-pw",
			Grant: domainauth.Grant{
				User:  domainauth.User{Email: "prof@example.edu", Name: "Prof", Role: domainauth.RoleFaculty},
				Token: "tok-1",
			},
		},
	}}
}

func TestNewAuthService_PanicsWithoutAuthenticator(t *testing.T) {
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{}) })
	assert.Panics(t, func() {
		NewAuthService(AuthServiceOptions{Authenticator: newAuthenticator(), OAuth: &OAuthOptions{}})
	})
}

func TestAuthService_SignIn(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{Authenticator: newAuthenticator()})
	ctx := context.Background()

	t.Run("success records grant", func(t *testing.T) {
		sess := &fakeSession{}
		user, err := svc.SignIn(ctx, sess, ports.Credentials{Email: " prof@example.edu ", Password: "secret-pw"})
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleFaculty, user.Role)
		assert.Equal(t, "tok-1", sess.token)
		require.NotNil(t, sess.user)
		assert.Equal(t, "prof@example.edu", sess.user.Email)
	})

	t.Run("missing fields", func(t *testing.T) {
		sess := &fakeSession{}
		_, err := svc.SignIn(ctx, sess, ports.Credentials{Email: "prof@example.edu"})
		assert.True(t, apperrors.IsValidation(err))
		assert.Nil(t, sess.user)
	})

	t.Run("bad password leaves session untouched", func(t *testing.T) {
		sess := &fakeSession{}
		_, err := svc.SignIn(ctx, sess, ports.Credentials{Email: "prof@example.edu", Password: "nope"})
		require.Error(t, err)
		assert.ErrorIs(t, err, mocks.ErrBadCredentials)
		assert.Nil(t, sess.user)
	})

	t.Run("upstream 401 is unauthorized", func(t *testing.T) {
		auth := &mocks.MockAuthenticator{Err: statusErr(401)}
		_, err := NewAuthService(AuthServiceOptions{Authenticator: auth}).
			SignIn(ctx, &fakeSession{}, ports.Credentials{Email: "a@b.c", Password: "x"})
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("session write failure", func(t *testing.T) {
		sess := &fakeSession{loginErr: errors.New("redis down")}
		_, err := svc.SignIn(ctx, sess, ports.Credentials{Email: "prof@example.edu", Password: "secret-pw"})
		assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
	})
}

func TestAuthService_SignOut(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{Authenticator: newAuthenticator()})

	sess := &fakeSession{user: &domainauth.User{Email: "x@y.z"}, token: "t"}
	require.NoError(t, svc.SignOut(context.Background(), sess))
	assert.True(t, sess.loggedOut)

	sess = &fakeSession{logoutErr: errors.New("disk full")}
	err := svc.SignOut(context.Background(), sess)
	assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
	assert.True(t, sess.loggedOut)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without registrar", func(t *testing.T) {
		svc := NewAuthService(AuthServiceOptions{Authenticator: newAuthenticator()})
		assert.False(t, svc.SignUpEnabled())
		assert.ErrorIs(t, svc.Register(ctx, ports.Registration{}), ErrSignUpDisabled)
	})

	auth := newAuthenticator()
	svc := NewAuthService(AuthServiceOptions{Authenticator: auth, Registrar: auth})
	require.True(t, svc.SignUpEnabled())

	tests := []struct {
		name  string
		reg   ports.Registration
		field string
	}{
		{"bad email", ports.Registration{Email: "nope", Password: "long-enough", Role: "student"}, "email"},
		{"short password", ports.Registration{Email: "a@b.edu", Password: "short", Role: "student"}, "password"},
		{"unknown role", ports.Registration{Email: "a@b.edu", Password: "long-enough", Role: "admin"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(ctx, tt.reg)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}

	t.Run("normalises role", func(t *testing.T) {
		err := svc.Register(ctx, ports.Registration{Email: " new@b.edu ", Name: " New ", Password: "long-enough", Role: "student"})
		require.NoError(t, err)
		require.Len(t, auth.Registered, 1)
		assert.Equal(t, "STUDENT", auth.Registered[0].Role)
		assert.Equal(t, "new@b.edu", auth.Registered[0].Email)
		assert.Equal(t, "New", auth.Registered[0].Name)
	})

	t.Run("conflict passes through", func(t *testing.T) {
		dup := &mocks.MockAuthenticator{Err: statusErr(409)}
		err := NewAuthService(AuthServiceOptions{Authenticator: dup, Registrar: dup}).
			Register(ctx, ports.Registration{Email: "a@b.edu", Password: "long-enough", Role: "FACULTY"})
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestAuthService_OAuthFlow(t *testing.T) {
	ctx := context.Background()
	provider := &mocks.MockAuthProvider{
		DefaultUser: domainauth.Identity{Email: "s@example.edu", Name: "Stu", Groups: []string{"learners"}},
		Token:       "id-token",
	}
	svc := NewAuthService(AuthServiceOptions{
		Authenticator: newAuthenticator(),
		OAuth: &OAuthOptions{
			Provider: provider,
			Roles:    mocks.StaticRoleMapper{FacultyGroup: "staff", StudentGroup: "learners"},
		},
	})
	require.True(t, svc.OAuthEnabled())

	res, err := svc.BeginLogin(ctx, "http://localhost/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", res.AuthURL)
	assert.NotEmpty(t, res.State)
	assert.NotEmpty(t, res.Nonce)

	sess := &fakeSession{}
	user, err := svc.CompleteLogin(ctx, sess, CompleteLoginInput{Code: "c", State: res.State, Nonce: res.Nonce})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStudent, user.Role)
	assert.Equal(t, "id-token", sess.token)

	_, err = svc.CompleteLogin(ctx, sess, CompleteLoginInput{Code: "c"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthService_OAuthExchangeFailure(t *testing.T) {
	provider := &mocks.MockAuthProvider{
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.Identity, string, error) {
			return domainauth.Identity{}, "", errors.New("nonce mismatch")
		},
	}
	svc := NewAuthService(AuthServiceOptions{
		Authenticator: newAuthenticator(),
		OAuth:         &OAuthOptions{Provider: provider, Roles: mocks.StaticRoleMapper{}},
	})
	sess := &fakeSession{}
	_, err := svc.CompleteLogin(context.Background(), sess, CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Nil(t, sess.user)
}

func TestAuthService_OAuthDisabled(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{Authenticator: newAuthenticator()})
	_, err := svc.BeginLogin(context.Background(), "http://x/cb")
	assert.True(t, apperrors.IsNotFound(err))
}
