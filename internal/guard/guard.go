// Package guard decides whether a navigation may proceed or must go to sign-in.
package guard

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// State is the outcome of one guarded navigation.
type State int

const (
	// StateHydrating means the session has not finished reading durable storage.
	StateHydrating State = iota
	// StateAuthorized means the guarded view may render.
	StateAuthorized
	// StateRedirecting means the client must be sent to sign-in.
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateHydrating:
		return "hydrating"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Session is what the guard needs from a session store.
type Session interface {
	Ready() <-chan struct{}
	IsAuthenticated(ctx context.Context) bool
}

// Decision is the terminal state and, when redirecting, the target.
type Decision struct {
	State    State
	Redirect string
}

// Config controls guard behavior.
type Config struct {
	SignInPath string
	// HydrationTimeout bounds the wait for Ready. Zero waits for the request context only.
	HydrationTimeout time.Duration
	// PreserveDestination appends the requested path as redirect_uri on sign-in redirects.
	PreserveDestination bool
	Logger              *slog.Logger
}

// Guard evaluates navigations. The zero value redirects to /signin.
type Guard struct {
	cfg Config
}

// New returns a Guard for cfg.
func New(cfg Config) Guard {
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/signin"
	}
	return Guard{cfg: cfg}
}

func (g Guard) logger() *slog.Logger {
	if g.cfg.Logger != nil {
		return g.cfg.Logger
	}
	return slog.Default()
}

// Evaluate waits for sess to finish hydrating, then decides.
// dest is the requested path and query, used only when PreserveDestination is set.
// The decision is never cached; every navigation re-evaluates.
func (g Guard) Evaluate(ctx context.Context, sess Session, dest string) Decision {
	if !g.awaitReady(ctx, sess) {
		g.logger().DebugContext(ctx, "session still hydrating; evaluating with durable fallback")
	}
	if ctx.Err() == nil && sess.IsAuthenticated(ctx) {
		return Decision{State: StateAuthorized}
	}
	return Decision{State: StateRedirecting, Redirect: g.SignInURL(dest)}
}

// awaitReady reports whether the session signalled Ready before the
// context ended or the hydration timeout elapsed.
func (g Guard) awaitReady(ctx context.Context, sess Session) bool {
	ready := sess.Ready()
	select {
	case <-ready:
		return true
	default:
	}

	var timeout <-chan time.Time
	if g.cfg.HydrationTimeout > 0 {
		t := time.NewTimer(g.cfg.HydrationTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ready:
		return true
	case <-ctx.Done():
		return false
	case <-timeout:
		return false
	}
}

// SignInURL is the sign-in location for a request to dest.
func (g Guard) SignInURL(dest string) string {
	path := g.cfg.SignInPath
	if path == "" {
		path = "/signin"
	}
	if !g.cfg.PreserveDestination {
		return path
	}
	dest = SafeRedirectPath(dest)
	if dest == "/" {
		return path
	}
	return path + "?redirect_uri=" + url.QueryEscape(dest)
}

// SafeRedirectPath ensures the redirect target is a local path to prevent open redirects.
func SafeRedirectPath(p string) string {
	if p == "" {
		return "/"
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") ||
		strings.HasPrefix(u.Path, "//") || strings.Contains(p, "\\") {
		return "/"
	}
	return u.RequestURI()
}
