package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/guard"
	"github.com/eduassist/portal/internal/ports"
	"github.com/eduassist/portal/internal/service"
)

// AuthServiceInterface defines the auth operations the handlers need.
type AuthServiceInterface interface {
	SignIn(ctx context.Context, sess service.SessionWriter, creds ports.Credentials) (domainauth.User, error)
	SignOut(ctx context.Context, sess service.SessionWriter) error
	Register(ctx context.Context, r ports.Registration) error
	SignUpEnabled() bool
	OAuthEnabled() bool
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, sess service.SessionWriter, in service.CompleteLoginInput) (domainauth.User, error)
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// AuthHandlers serves sign-in, sign-up, sign-out and the OAuth flow.
type AuthHandlers struct {
	Svc AuthServiceInterface
	UI  *UIHandlers
	// CallbackURL is the absolute OAuth redirect URL registered with the IdP.
	CallbackURL string
	Logger      *slog.Logger
}

const oauthCookieMaxAge = 600

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) cookies() CookieConfig { return h.UI.Cookies }

// postSignInTarget reads redirect_uri from the form or query and keeps it local.
func postSignInTarget(r *http.Request) string {
	return guard.SafeRedirectPath(r.FormValue("redirect_uri"))
}

// SignInPage renders the sign-in form. Signed-in clients go straight on.
// GET /signin.
func (h *AuthHandlers) SignInPage(w http.ResponseWriter, r *http.Request) {
	if AuthFacts(r.Context()).Authenticated {
		http.Redirect(w, r, postSignInTarget(r), http.StatusSeeOther)
		return
	}
	h.UI.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Sign In", PageTitle: "Sign In", CurrentPage: PageSignIn},
		Fetch: func(_ context.Context, data map[string]any) error {
			data["RedirectURI"] = postSignInTarget(r)
			data["OAuthEnabled"] = h.Svc.OAuthEnabled()
			data["SignUpEnabled"] = h.Svc.SignUpEnabled()
			return nil
		},
	})
}

// SignIn submits credentials and records the session.
// POST /signin.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	st, ok := GetSessionFromContext(r.Context())
	if !ok {
		h.UI.mutationFailed(w, r, errors.New("no client session"), "Sign in failed. Please try again.")
		return
	}
	user, err := h.Svc.SignIn(r.Context(), st, ports.Credentials{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		h.UI.mutationFailed(w, r, err, "Sign in failed. Please check your email and password.")
		return
	}
	h.logger().InfoContext(r.Context(), "user signed in", "email", user.Email, "role", string(user.Role))
	h.UI.mutationSucceeded(w, r, "Signed in successfully", postSignInTarget(r))
}

// SignUpPage renders the registration form.
// GET /signup.
func (h *AuthHandlers) SignUpPage(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.SignUpEnabled() {
		h.UI.NotFound(w, r)
		return
	}
	h.UI.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Sign Up", PageTitle: "Create your account", CurrentPage: PageSignUp},
		Fetch: func(_ context.Context, data map[string]any) error {
			data["Roles"] = []domainauth.Role{domainauth.RoleStudent, domainauth.RoleFaculty}
			return nil
		},
	})
}

// SignUp registers an account and sends the user to sign-in.
// POST /signup.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	err := h.Svc.Register(r.Context(), ports.Registration{
		Email:    r.FormValue("email"),
		Name:     r.FormValue("name"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
	})
	if err != nil {
		h.UI.mutationFailed(w, r, err, "Registration failed. Please try again.")
		return
	}
	h.UI.mutationSucceeded(w, r, "Account created. Please sign in.", "/signin")
}

// SignOut clears the client's session.
// POST /signout.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if st, ok := GetSessionFromContext(r.Context()); ok {
		if err := h.Svc.SignOut(r.Context(), st); err != nil {
			h.logger().WarnContext(r.Context(), "sign out incomplete", "error", err)
		}
	}
	h.UI.mutationSucceeded(w, r, "Signed out", "/signin")
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	facts := AuthFacts(r.Context())
	resp := map[string]any{
		"authenticated": facts.Authenticated,
		"faculty":       facts.Faculty,
		"student":       facts.Student,
	}
	if facts.User != nil {
		resp["user"] = map[string]string{
			"email": facts.User.Email,
			"name":  facts.User.Name,
			"role":  string(facts.User.Role),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Login starts the OAuth flow.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := guard.SafeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), oauthCallbackURL(r, h.CallbackURL))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		WriteAppError(w, err)
		return
	}

	h.setCookie(w, r, "oauth_state", result.State, oauthCookieMaxAge)
	h.setCookie(w, r, "oauth_nonce", result.Nonce, oauthCookieMaxAge)
	h.setCookie(w, r, "post_login_redirect", redirectURI, oauthCookieMaxAge)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the OAuth flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_callback",
			Err:     errors.New("code and state are required"),
		})
		return
	}
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}
	st, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_session",
			Err:     errors.New("no client session"),
		})
		return
	}

	user, err := h.Svc.CompleteLogin(r.Context(), st, service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "login completion failed", "error", err)
		setFlash(w, r, h.cookies(), Toast{Type: toastError, Message: toastMessage(err, "Sign in failed")})
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	h.logger().InfoContext(r.Context(), "user signed in via oauth", "email", user.Email, "role", string(user.Role))

	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")
	target := "/"
	if c, cookieErr := r.Cookie("post_login_redirect"); cookieErr == nil {
		target = guard.SafeRedirectPath(c.Value)
		h.clearCookie(w, r, "post_login_redirect")
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandlers) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	c := h.cookies()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearCookie mirrors the attributes used when setting so browsers drop it.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	c := h.cookies()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCallbackURL derives the callback from the request when none is configured.
func oauthCallbackURL(r *http.Request, configured string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	scheme := "http"
	if r.TLS != nil || isForwardedHTTPS(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/auth/callback"
}
