package httpx

import (
	"context"

	"github.com/eduassist/portal/internal/session"
)

type sessionKey struct{}

// SetSessionInContext returns a child context carrying the client's store.
// A nil store returns ctx unchanged.
func SetSessionInContext(ctx context.Context, st *session.Store) context.Context {
	if st == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, st)
}

// GetSessionFromContext returns the client's store and whether one is present.
func GetSessionFromContext(ctx context.Context) (*session.Store, bool) {
	st, ok := ctx.Value(sessionKey{}).(*session.Store)
	return st, ok && st != nil
}

// AuthFacts projects the request's session for templates. Requests without a
// session yield the zero Facts (signed out, neither role).
func AuthFacts(ctx context.Context) session.Facts {
	st, ok := GetSessionFromContext(ctx)
	if !ok {
		return session.Facts{}
	}
	return session.NewAuth(st).Facts(ctx)
}
