package oidc

// Package oidc provides the OIDC/OAuth sign-in adapter for the portal.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/ports"
)

var _ ports.AuthProvider = (*Provider)(nil)

// ForwardToken selects which token from the IdP is sent to the backend as the bearer.
type ForwardToken string

const (
	ForwardIDToken     ForwardToken = "id_token"
	ForwardAccessToken ForwardToken = "access_token"
)

// Provider implements ports.AuthProvider using OIDC/OAuth2.
type Provider struct {
	config       *oauth2.Config
	httpClient   *http.Client
	groupsClaim  string
	forwardToken ForwardToken

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	// Issuer is the issuer URL or its discovery document URL.
	Issuer string
	// GroupsClaim names the claim carrying group membership. Defaults to "groups".
	GroupsClaim  string
	ForwardToken ForwardToken
	HTTPClient   *http.Client // Optional
}

// NewProvider performs discovery and creates a Provider.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.Issuer == "" {
		return nil, errors.New("issuer URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	forward := config.ForwardToken
	switch forward {
	case "":
		forward = ForwardIDToken
	case ForwardIDToken, ForwardAccessToken:
	default:
		return nil, fmt.Errorf("unsupported forward token %q", forward)
	}
	groupsClaim := config.GroupsClaim
	if groupsClaim == "" {
		groupsClaim = "groups"
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	issuer := strings.TrimSuffix(config.Issuer, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(config.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		groupsClaim:  groupsClaim,
		forwardToken: forward,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

// Begin returns the IdP authorization URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// redirect_uri comes from the oauth2 config and must match the IdP registration.
	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange trades the code for tokens, verifies the ID token and nonce, and
// returns the identity plus the token to forward to the backend.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, string, error) {
	if in.Code == "" {
		return domainauth.Identity{}, "", errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Identity{}, "", errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.Identity{}, "", errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, "", fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return domainauth.Identity{}, "", err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Identity{}, "", fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != in.Nonce {
		return domainauth.Identity{}, "", errors.New("invalid nonce")
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, "", fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	id := p.identityFromClaims(idTok.Subject, claims)

	if id.Email == "" {
		if fillErr := p.fillFromUserInfo(ctx, token, &id); fillErr != nil {
			return domainauth.Identity{}, "", fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if id.Email == "" {
		return domainauth.Identity{}, "", errors.New("identity has no email claim")
	}

	bearer := rawID
	if p.forwardToken == ForwardAccessToken {
		bearer = token.AccessToken
	}
	return id, bearer, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, token *oauth2.Token, id *domainauth.Identity) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return err
	}
	var claims map[string]any
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	fill := p.identityFromClaims(ui.Subject, claims)
	if fill.Email == "" {
		fill.Email = ui.Email
	}
	mergeIdentity(id, fill)
	return nil
}

func (p *Provider) identityFromClaims(subject string, claims map[string]any) domainauth.Identity {
	name := stringClaim(claims, "name")
	if name == "" {
		name = strings.TrimSpace(stringClaim(claims, "given_name") + " " + stringClaim(claims, "family_name"))
	}
	return domainauth.Identity{
		Subject: subject,
		Name:    name,
		Email:   firstNonEmpty(stringClaim(claims, "email"), stringClaim(claims, "preferred_username")),
		Groups:  stringsClaim(claims, p.groupsClaim),
	}
}

// mergeIdentity fills empty fields of dst from src.
func mergeIdentity(dst *domainauth.Identity, src domainauth.Identity) {
	if dst.Subject == "" {
		dst.Subject = src.Subject
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if len(dst.Groups) == 0 {
		dst.Groups = src.Groups
	}
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// stringsClaim accepts a list claim or a single string.
func stringsClaim(claims map[string]any, key string) []string {
	switch v := claims[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
