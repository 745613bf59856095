// Package session holds per-client authentication state and its durable mirror.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/ports"
)

const (
	// AccessTokenKey is the durable storage key holding the bearer token.
	AccessTokenKey = "access-token"
	// UserKey holds the JSON user recorded next to the token.
	UserKey = "user"
)

// ErrEmptyToken is returned by LoginSuccess when no token is supplied.
var ErrEmptyToken = errors.New("session: token is required")

// StoreOptions groups dependencies for NewStore.
type StoreOptions struct {
	Storage ports.DurableStorage
	Logger  *slog.Logger
}

// Store is the single writer of one client's session.
//
// The in-memory token and user are set together by LoginSuccess and cleared
// together by Logout. The token is mirrored into durable storage; until the
// client signs in on this process, Token falls back to the durable copy.
type Store struct {
	storage ports.DurableStorage
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
	user  *domainauth.User

	hydrateOnce sync.Once
	readyOnce   sync.Once
	ready       chan struct{}
	restored    bool
}

// NewStore creates an empty, not yet hydrated store.
func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: opts.Storage,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Hydrate reads durable storage once and then signals Ready.
// Ready is signalled even when the read fails; the durable copy is then
// simply unavailable as a fallback. Subsequent calls are no-ops.
func (s *Store) Hydrate(ctx context.Context) error {
	var err error
	s.hydrateOnce.Do(func() {
		defer s.markReady()

		var tok string
		tok, err = s.storage.Get(ctx, AccessTokenKey)
		switch {
		case errors.Is(err, ports.ErrKeyNotFound):
			err = nil
		case err != nil:
			err = fmt.Errorf("hydrate session: %w", err)
			return
		}

		s.mu.Lock()
		s.restored = tok != ""
		s.mu.Unlock()
	})
	return err
}

// Ready is closed once the store may be trusted to report "signed out".
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Restored reports whether hydration found a durable token.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// LoginSuccess records a signed-in user and token in one step. The user is
// stored as given.
// The durable writes happen first, outside the lock; if either fails the
// in-memory session is unchanged.
func (s *Store) LoginSuccess(ctx context.Context, user domainauth.User, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	// The user goes first: a durable user without a token never resolves.
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	if err := s.storage.Set(ctx, AccessTokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	u := user
	s.mu.Lock()
	s.user = &u
	s.token = token
	s.mu.Unlock()
	s.markReady()
	return nil
}

// Logout clears the session and removes the durable token and user.
// Memory is always cleared; a storage failure is reported after the fact.
// Calling Logout on an empty store is a no-op apart from the storage removes.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.restored = false
	s.mu.Unlock()
	s.markReady()

	var errs []error
	if err := s.storage.Remove(ctx, AccessTokenKey); err != nil {
		errs = append(errs, fmt.Errorf("remove token: %w", err))
	}
	if err := s.storage.Remove(ctx, UserKey); err != nil {
		errs = append(errs, fmt.Errorf("remove user: %w", err))
	}
	return errors.Join(errs...)
}

// Snapshot returns a copy of the in-memory session.
func (s *Store) Snapshot() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := domainauth.Session{Token: s.token}
	if s.user != nil {
		u := *s.user
		sess.User = &u
	}
	return sess
}

// Resolve returns the effective session: the in-memory one when set,
// otherwise the durable token with the user recorded beside it. A durable
// token without a readable user resolves with a nil User.
func (s *Store) Resolve(ctx context.Context) domainauth.Session {
	if sess := s.Snapshot(); sess.Token != "" {
		return sess
	}
	tok := s.Token(ctx)
	if tok == "" {
		return domainauth.Session{}
	}
	return domainauth.Session{Token: tok, User: s.durableUser(ctx)}
}

func (s *Store) durableUser(ctx context.Context) *domainauth.User {
	raw, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		if !errors.Is(err, ports.ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "durable user read failed", "error", err)
		}
		return nil
	}
	var u domainauth.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.WarnContext(ctx, "durable user is not valid JSON", "error", err)
		return nil
	}
	return &u
}

// Token resolves the bearer token: memory first, then durable storage.
// It returns "" when neither source has one.
func (s *Store) Token(ctx context.Context) string {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()
	if tok != "" {
		return tok
	}

	tok, err := s.storage.Get(ctx, AccessTokenKey)
	if err != nil {
		if !errors.Is(err, ports.ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "durable token read failed", "error", err)
		}
		return ""
	}
	return tok
}
