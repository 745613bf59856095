package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eduassist/portal/config"
	"github.com/eduassist/portal/internal/adapters/authroles"
	"github.com/eduassist/portal/internal/adapters/devauth"
	"github.com/eduassist/portal/internal/adapters/oidc"
	"github.com/eduassist/portal/internal/backend"
	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth    config.AuthConfig
	Backend *backend.Client
	// OAuthRedirectURL is used when OAUTH_REDIRECT_URL is unset.
	OAuthRedirectURL string
	Logger           *slog.Logger
}

// BuildAuthService creates an auth service for the configured auth mode.
//
// password: credentials and registrations go to the backend API.
// mock: a fixed user list answers credentials and the OAuth flow.
// oauth: the backend still answers credentials; OIDC adds the redirect flow.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (*service.AuthService, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthService(cfg, logger)
	case config.AuthModeOAuth:
		return buildOAuthService(ctx, cfg, logger)
	default:
		if cfg.Backend == nil {
			return nil, errors.New("password auth requires a backend client")
		}
		opts := service.AuthServiceOptions{Authenticator: cfg.Backend}
		if cfg.Auth.SignUpEnabled {
			opts.Registrar = cfg.Backend
		}
		return service.NewAuthService(opts), nil
	}
}

func buildDevAuthService(cfg AuthConfig, logger *slog.Logger) (*service.AuthService, error) {
	users := make([]devauth.User, 0, len(cfg.Auth.DevAuth.Users))
	for _, u := range cfg.Auth.DevAuth.Users {
		users = append(users, devauth.User{Email: u.Email, Role: u.Role, PasswordHash: u.Password})
	}
	prov, err := devauth.NewProvider(devauth.Config{
		Users:      users,
		OAuthEmail: cfg.Auth.DevAuth.OAuthEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("create dev auth provider: %w", err)
	}
	logger.Warn("mock authentication enabled; do not use in production", "users", len(users))

	opts := service.AuthServiceOptions{
		Authenticator: prov,
		// devauth reports the configured role as the only group.
		OAuth: &service.OAuthOptions{Provider: prov, Roles: authroles.StaticRoleMapper{
			FacultyGroup: string(domainauth.RoleFaculty),
			StudentGroup: string(domainauth.RoleStudent),
		}},
	}
	if cfg.Auth.SignUpEnabled {
		opts.Registrar = prov
	}
	return service.NewAuthService(opts), nil
}

func buildOAuthService(ctx context.Context, cfg AuthConfig, logger *slog.Logger) (*service.AuthService, error) {
	if cfg.Backend == nil {
		return nil, errors.New("oauth auth requires a backend client")
	}
	oauth := cfg.Auth.OAuth
	redirectURL := oauth.RedirectURL
	if redirectURL == "" {
		redirectURL = cfg.OAuthRedirectURL
	}

	forward := oidc.ForwardIDToken
	if oauth.ForwardToken == "access" {
		forward = oidc.ForwardAccessToken
	}

	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  redirectURL,
		Scope:        oauth.Scope,
		Issuer:       oauth.Issuer,
		GroupsClaim:  oauth.GroupsClaim,
		ForwardToken: forward,
	})
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	logger.Info("oauth sign-in enabled", "issuer", oauth.Issuer, "forward_token", string(forward))

	opts := service.AuthServiceOptions{
		Authenticator: cfg.Backend,
		OAuth:         &service.OAuthOptions{Provider: prov, Roles: roleMapper(oauth)},
	}
	if cfg.Auth.SignUpEnabled {
		opts.Registrar = cfg.Backend
	}
	return service.NewAuthService(opts), nil
}

func roleMapper(oauth config.OAuthConfig) authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{
		FacultyGroup: oauth.FacultyGroup,
		StudentGroup: oauth.StudentGroup,
	}
}
