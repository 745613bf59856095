package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduassist/portal/internal/guard"
	"github.com/eduassist/portal/internal/session"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush lets long-polling handlers push partial responses through the logger.
func (w *respWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CookieConfig controls attributes of cookies the portal sets.
type CookieConfig struct {
	Domain string
	// Secure forces the Secure attribute even on plain-HTTP requests.
	Secure bool
}

func (c CookieConfig) secure(r *http.Request) bool {
	return c.Secure || r.TLS != nil || isForwardedHTTPS(r)
}

// ClientSessionConfig groups ClientSession dependencies.
type ClientSessionConfig struct {
	Manager *session.Manager
	Cookies CookieConfig
	// ExistingOnly attaches stores for known client ids and passes other
	// requests through without a session.
	ExistingOnly bool
}

// clientIDMaxAge keeps the client id for a year; the session itself has no expiry.
const clientIDMaxAge = 365 * 24 * 3600

// ClientSession attaches the browser client's session store to the request.
// Clients without a valid client_id cookie get a fresh id.
func ClientSession(cfg ClientSessionConfig) func(http.Handler) http.Handler {
	if cfg.Manager == nil {
		panic("ClientSession requires a Manager") //nolint:forbidigo // fail fast during server setup
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientIDFromRequest(r)
			if id == "" && cfg.ExistingOnly {
				next.ServeHTTP(w, r)
				return
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientIDCookie,
					Value:    id,
					Path:     "/",
					Domain:   cfg.Cookies.Domain,
					HttpOnly: true,
					Secure:   cfg.Cookies.secure(r),
					SameSite: http.SameSiteLaxMode,
					MaxAge:   clientIDMaxAge,
				})
			}
			ctx := SetSessionInContext(r.Context(), cfg.Manager.Store(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(ClientIDCookie)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// guardSession adapts a Store to the guard's view of a session.
type guardSession struct {
	store *session.Store
}

func (g guardSession) Ready() <-chan struct{} { return g.store.Ready() }

func (g guardSession) IsAuthenticated(ctx context.Context) bool {
	return session.NewAuth(g.store).IsAuthenticated(ctx)
}

// RequireSession is the route guard. It waits for the client's session to
// hydrate, then either runs next or sends the client to sign-in. The decision
// is made on every request.
func RequireSession(g guard.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, ok := GetSessionFromContext(r.Context())
			if !ok {
				redirectToSignIn(w, r, g.SignInURL(destinationForRequest(r)))
				return
			}
			d := g.Evaluate(r.Context(), guardSession{store: st}, destinationForRequest(r))
			if d.State == guard.StateAuthorized {
				next.ServeHTTP(w, r)
				return
			}
			redirectToSignIn(w, r, d.Redirect)
		})
	}
}

// redirectToSignIn sends unauthenticated requests away without rendering.
// API requests get a 401 JSON body instead.
func redirectToSignIn(w http.ResponseWriter, r *http.Request, target string) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	if IsHTMX(r) {
		SetHXRedirect(w, target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// destinationForRequest is the page the user was trying to reach. HTMX
// requests report the page they were issued from.
func destinationForRequest(r *http.Request) string {
	if IsHTMX(r) {
		if current := r.Header.Get("Hx-Current-Url"); current != "" {
			if u, err := url.Parse(current); err == nil {
				return u.RequestURI()
			}
		}
	}
	return r.URL.RequestURI()
}

type browserRequestKey struct{}

// BrowserDetection records whether the request came from a browser so
// downstream handlers can choose between HTML and JSON.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if isBrowser, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return isBrowser
	}
	return isBrowserRequest(r)
}

// isBrowserRequest: /api/ and /static/ are never browser requests, HTMX always
// is, otherwise the Accept header decides (missing means browser).
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/static/") {
		return false
	}
	if IsHTMX(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
